// Package storage holds HistoryStore implementations for saved
// conversations.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per conversation name in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates a FileStore. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Path returns the file that backs name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.Dir, SanitizeName(name)+".json")
}

// Save writes data for name with user-only permissions.
func (s *FileStore) Save(name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := os.WriteFile(s.Path(name), data, 0o600); err != nil {
		return fmt.Errorf("failed to write history %q: %w", name, err)
	}
	return nil
}

// Load returns the data saved for name. A missing file matches
// fs.ErrNotExist.
func (s *FileStore) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read history %q: %w", name, err)
	}
	return data, nil
}

// Delete removes the file for name. A missing file matches fs.ErrNotExist.
func (s *FileStore) Delete(name string) error {
	if err := os.Remove(s.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("history %q: %w", name, fs.ErrNotExist)
		}
		return fmt.Errorf("failed to delete history %q: %w", name, err)
	}
	return nil
}

// List returns the saved conversation names.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list histories: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return names, nil
}

// SanitizeName replaces characters that are unsafe in file names.
func SanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '\n', '\r', '\t':
			return '-'
		}
		return r
	}, name)
	name = strings.Trim(name, "-.")
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "conversation"
	}
	return name
}
