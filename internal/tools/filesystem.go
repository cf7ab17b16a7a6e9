package tools

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSystem performs file operations relative to a working directory.
// Absolute paths are used as given.
type FileSystem struct {
	workingDir string
}

func NewFileSystem(workingDir string) *FileSystem {
	if workingDir == "" {
		workingDir = "."
	}
	return &FileSystem{
		workingDir: workingDir,
	}
}

func (fs *FileSystem) WorkingDir() string {
	return fs.workingDir
}

// Resolve returns the absolute form of path.
func (fs *FileSystem) Resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(fs.workingDir, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	return absPath, nil
}

// Exists reports whether path names an existing file or directory.
func (fs *FileSystem) Exists(path string) bool {
	absPath, err := fs.Resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(absPath)
	return err == nil
}

func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	absPath, err := fs.Resolve(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return content, nil
}

// WriteFile replaces the file's content, creating parent directories as
// needed. It returns the number of bytes written.
func (fs *FileSystem) WriteFile(path, content string) (int, error) {
	absPath, err := fs.Resolve(path)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return len(content), nil
}

func (fs *FileSystem) DeleteFile(path string) error {
	absPath, err := fs.Resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
