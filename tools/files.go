package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/martinemde/codeinterp/agentloop"
)

const defaultReadLimit = 2000

// Files implements the file tools. Every path resolves inside Root.
type Files struct {
	Root string
}

// NewFiles creates file tools rooted at root.
func NewFiles(root string) *Files {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Files{Root: root}
}

// resolve maps a relative or absolute path into Root, rejecting paths that
// escape it.
func (f *Files) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(f.Root, resolved)
	}
	resolved = filepath.Clean(resolved)
	rel, err := filepath.Rel(f.Root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the work directory", path)
	}
	return resolved, nil
}

// ReadFileDefinition describes read_file.
func ReadFileDefinition() agentloop.ToolDefinition {
	return agentloop.ToolDefinition{
		Name:        "read_file",
		Description: "Read a file from the work directory. Returns line-numbered content.",
		Parameters: schema([]string{"file_path"}, map[string]interface{}{
			"file_path": prop("string", "Path of the file, relative to the work directory."),
			"offset":    prop("integer", "1-based line number to start reading from."),
			"limit":     prop("integer", "Maximum number of lines to read. Default: 2000."),
		}),
	}
}

// ReadFile executes read_file.
func (f *Files) ReadFile(_ context.Context, arguments json.RawMessage) (string, error) {
	args, err := agentloop.ParseToolArguments(arguments)
	if err != nil {
		return "", err
	}
	filePath, _ := agentloop.GetStringArg(args, "file_path")
	offset, _ := agentloop.GetIntArg(args, "offset")
	limit, _ := agentloop.GetIntArg(args, "limit")
	if limit <= 0 {
		limit = defaultReadLimit
	}

	resolved, err := f.resolve(filePath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	start := 0
	if offset > 0 {
		start = offset - 1
	}
	if start >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if start+limit < end {
		end = start + limit
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, lines[i])
	}
	return sb.String(), nil
}

// WriteFileDefinition describes write_file.
func WriteFileDefinition() agentloop.ToolDefinition {
	return agentloop.ToolDefinition{
		Name:        "write_file",
		Description: "Write content to a file. Creates the file and parent directories if needed.",
		Parameters: schema([]string{"file_path", "content"}, map[string]interface{}{
			"file_path": prop("string", "Path to write to, relative to the work directory."),
			"content":   prop("string", "The full file content to write."),
		}),
	}
}

// WriteFile executes write_file.
func (f *Files) WriteFile(_ context.Context, arguments json.RawMessage) (string, error) {
	args, err := agentloop.ParseToolArguments(arguments)
	if err != nil {
		return "", err
	}
	filePath, _ := agentloop.GetStringArg(args, "file_path")
	content, ok := agentloop.GetStringArg(args, "content")
	if !ok {
		return "", fmt.Errorf("content is required")
	}
	resolved, err := f.resolve(filePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("write_file: failed to create directory: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), filePath), nil
}

// EditFileDefinition describes edit_file.
func EditFileDefinition() agentloop.ToolDefinition {
	replaceAll := prop("boolean", "Replace every occurrence. Default: false.")
	return agentloop.ToolDefinition{
		Name:        "edit_file",
		Description: "Replace an exact string occurrence in a file. The old_string must be unique in the file unless replace_all is true.",
		Parameters: schema([]string{"file_path", "old_string", "new_string"}, map[string]interface{}{
			"file_path":   prop("string", "Path of the file to edit."),
			"old_string":  prop("string", "Exact text to find."),
			"new_string":  prop("string", "Replacement text."),
			"replace_all": replaceAll,
		}),
	}
}

// EditFile executes edit_file.
func (f *Files) EditFile(_ context.Context, arguments json.RawMessage) (string, error) {
	args, err := agentloop.ParseToolArguments(arguments)
	if err != nil {
		return "", err
	}
	filePath, _ := agentloop.GetStringArg(args, "file_path")
	oldString, _ := agentloop.GetStringArg(args, "old_string")
	newString, _ := agentloop.GetStringArg(args, "new_string")
	replaceAll, _ := agentloop.GetBoolArg(args, "replace_all")
	if oldString == "" {
		return "", fmt.Errorf("old_string is required")
	}

	resolved, err := f.resolve(filePath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	content := string(data)

	count := strings.Count(content, oldString)
	switch {
	case count == 0:
		return "", fmt.Errorf("old_string not found in %s", filePath)
	case count > 1 && !replaceAll:
		return "", fmt.Errorf("old_string found %d times in %s. Provide more context to make it unique, or set replace_all=true", count, filePath)
	}

	replacements := 1
	if replaceAll {
		content = strings.ReplaceAll(content, oldString, newString)
		replacements = count
	} else {
		content = strings.Replace(content, oldString, newString, 1)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	return fmt.Sprintf("Successfully replaced %d occurrence(s) in %s", replacements, filePath), nil
}

// ListDirectoryDefinition describes list_directory.
func ListDirectoryDefinition() agentloop.ToolDefinition {
	return agentloop.ToolDefinition{
		Name:        "list_directory",
		Description: "List the entries of a directory. Directories end with a slash.",
		Parameters: schema(nil, map[string]interface{}{
			"path": prop("string", "Directory to list, relative to the work directory. Default: the work directory."),
		}),
	}
}

// ListDirectory executes list_directory.
func (f *Files) ListDirectory(_ context.Context, arguments json.RawMessage) (string, error) {
	args, err := agentloop.ParseToolArguments(arguments)
	if err != nil {
		return "", err
	}
	path, _ := agentloop.GetStringArg(args, "path")
	if path == "" {
		path = "."
	}
	resolved, err := f.resolve(path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("list_directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "%s/\n", entry.Name())
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&sb, "%s (%d bytes)\n", entry.Name(), size)
	}
	if sb.Len() == 0 {
		return "(empty directory)", nil
	}
	return sb.String(), nil
}
