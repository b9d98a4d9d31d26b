package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps conversations as rows in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts or replaces the conversation stored under name.
func (s *SQLiteStore) Save(name string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO conversations (name, data, updated_at) VALUES (?, ?, ?)`,
		name, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save history %q: %w", name, err)
	}
	return nil
}

// Load returns the conversation stored under name. A missing row matches
// fs.ErrNotExist.
func (s *SQLiteStore) Load(name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM conversations WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history %q: %w", name, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history %q: %w", name, err)
	}
	return data, nil
}

// Delete removes the conversation stored under name. A missing row matches
// fs.ErrNotExist.
func (s *SQLiteStore) Delete(name string) error {
	res, err := s.db.Exec(`DELETE FROM conversations WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete history %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("history %q: %w", name, fs.ErrNotExist)
	}
	return nil
}

// List returns stored names, most recently updated first.
func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM conversations ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list histories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
