package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxSearchMatches = 100
	maxSearchLineLen = 200
)

const readFileSchema = `
{
  "type": "object",
  "properties": {
    "path": { "type": "string", "description": "Path of the file to read, relative to the workspace" }
  },
  "required": ["path"]
}
`

const writeFileSchema = `
{
  "type": "object",
  "properties": {
    "path": { "type": "string", "description": "Path of the file to write, relative to the workspace" },
    "content": { "type": "string", "description": "The content to write" }
  },
  "required": ["path", "content"]
}
`

const listFilesSchema = `
{
  "type": "object",
  "properties": {
    "path": { "type": "string", "description": "Directory to list, relative to the workspace. Defaults to the workspace root" }
  }
}
`

const searchFilesSchema = `
{
  "type": "object",
  "properties": {
    "path": { "type": "string", "description": "Directory to search in, relative to the workspace. Defaults to the workspace root" },
    "query": { "type": "string", "description": "The string to search for" }
  },
  "required": ["query"]
}
`

const fileInfoSchema = `
{
  "type": "object",
  "properties": {
    "path": { "type": "string", "description": "Path to inspect, relative to the workspace" }
  },
  "required": ["path"]
}
`

// Workspace is the builtin file toolset. All paths are resolved inside the
// bot's runtime directory, escaping it is an error.
type Workspace struct {
	baseDir string
}

func NewWorkspace(baseDir string) *Workspace {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return &Workspace{baseDir: baseDir}
}

func (w *Workspace) resolve(p string) (string, error) {
	if p == "" || p == "." {
		return w.baseDir, nil
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("path %q must be relative to the workspace", p)
	}

	full := filepath.Join(w.baseDir, p)
	rel, err := filepath.Rel(w.baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", p)
	}
	return full, nil
}

func (w *Workspace) ReadFile(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	path, err := w.resolve(input.Path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}

func (w *Workspace) WriteFile(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	path, err := w.resolve(input.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(path, []byte(input.Content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(input.Content), input.Path), nil
}

func (w *Workspace) ListFiles(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	path, err := w.resolve(input.Path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("failed to list directory: %w", err)
	}
	if len(entries) == 0 {
		return "(empty)", nil
	}

	var b strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&b, "[DIR]  %s\n", entry.Name())
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&b, "[FILE] %s (%d bytes)\n", entry.Name(), size)
	}
	return b.String(), nil
}

func (w *Workspace) SearchFiles(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Path  string `json:"path"`
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Query == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	root, err := w.resolve(input.Path)
	if err != nil {
		return "", err
	}

	var results strings.Builder
	matchCount := 0

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		matches, err := w.searchFile(path, input.Query, &results, maxSearchMatches-matchCount)
		if err != nil {
			return nil
		}
		matchCount += matches
		if matchCount >= maxSearchMatches {
			results.WriteString("... (too many matches, stopping search)\n")
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if matchCount == 0 {
		return "No matches found.", nil
	}
	return results.String(), nil
}

// searchFile scans one file for query, appending up to limit matches to out.
// Binary files are skipped.
func (w *Workspace) searchFile(path, query string, out *strings.Builder, limit int) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	// Null byte in the head means binary.
	head := make([]byte, 512)
	n, _ := file.Read(head)
	for i := 0; i < n; i++ {
		if head[i] == 0 {
			return 0, nil
		}
	}
	if _, err := file.Seek(0, 0); err != nil {
		return 0, err
	}

	display := path
	if rel, err := filepath.Rel(w.baseDir, path); err == nil {
		display = rel
	}

	matches := 0
	lineNum := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() && matches < limit {
		lineNum++
		line := scanner.Text()
		if !utf8.ValidString(line) || !strings.Contains(line, query) {
			continue
		}

		shown := strings.TrimSpace(line)
		if len(shown) > maxSearchLineLen {
			shown = shown[:maxSearchLineLen] + "..."
		}
		fmt.Fprintf(out, "%s:%d: %s\n", display, lineNum, shown)
		matches++
	}
	return matches, nil
}

func (w *Workspace) FileInfo(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	path, err := w.resolve(input.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %w", err)
	}

	return fmt.Sprintf(
		"Path: %s\nSize: %d bytes\nIsDir: %t\nMode: %s\nModTime: %s\n",
		input.Path,
		info.Size(),
		info.IsDir(),
		info.Mode(),
		info.ModTime().Format(time.RFC3339),
	), nil
}

func (w *Workspace) GetDefinitions() map[string]struct {
	Description string
	Schema      string
	Handler     func(context.Context, json.RawMessage) (string, error)
} {
	return map[string]struct {
		Description string
		Schema      string
		Handler     func(context.Context, json.RawMessage) (string, error)
	}{
		"read_file":    {"Read a file from the bot workspace", readFileSchema, w.ReadFile},
		"write_file":   {"Write content to a file in the bot workspace", writeFileSchema, w.WriteFile},
		"list_files":   {"List a directory in the bot workspace", listFilesSchema, w.ListFiles},
		"search_files": {"Search workspace files for a string", searchFilesSchema, w.SearchFiles},
		"file_info":    {"Get metadata about a workspace file (size, mode, modtime)", fileInfoSchema, w.FileInfo},
	}
}
