// Package fsio abstracts project file access behind a narrow interface.
//
// All paths are project-relative with forward slashes. The rest of the core
// goes through FS and never touches the os package directly.
package fsio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo carries the file attributes the core needs.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// FS is the filesystem surface the core depends on.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error

	// ListFiles returns the project-relative paths of all regular files
	// under dir, sorted. Directories below dir whose name starts with a
	// dot are skipped. A missing dir yields an empty list, not an error.
	ListFiles(dir string) ([]string, error)

	Exists(path string) (bool, error)
	MkdirAll(path string) error
	DeleteFile(path string) error
	Stat(path string) (FileInfo, error)
}

// Dir is the OS filesystem rooted at a project directory.
type Dir struct {
	root string
}

// NewDir opens a directory as the project filesystem root.
func NewDir(root string) (*Dir, error) {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absPath)
	}

	return &Dir{root: absPath}, nil
}

// CreateDir creates the root directory if needed and opens it.
func CreateDir(root string) (*Dir, error) {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	return NewDir(absPath)
}

// Root returns the absolute root path.
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) abs(path string) string {
	return filepath.Join(d.root, filepath.FromSlash(path))
}

// ReadFile reads a project file.
func (d *Dir) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(d.abs(path))
}

// WriteFile writes a project file, creating parent directories as needed.
func (d *Dir) WriteFile(path string, data []byte) error {
	target := d.abs(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	return os.WriteFile(target, data, 0o644)
}

// ListFiles walks dir and returns project-relative paths of regular files.
func (d *Dir) ListFiles(dir string) ([]string, error) {
	start := d.abs(dir)
	if _, err := os.Stat(start); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat directory: %w", err)
	}

	var files []string
	err := filepath.WalkDir(start, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != start && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(d.root, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		files = append(files, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// Exists reports whether a file or directory exists.
func (d *Dir) Exists(path string) (bool, error) {
	_, err := os.Stat(d.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MkdirAll creates a directory and any missing parents.
func (d *Dir) MkdirAll(path string) error {
	return os.MkdirAll(d.abs(path), 0o755)
}

// DeleteFile removes a project file.
func (d *Dir) DeleteFile(path string) error {
	return os.Remove(d.abs(path))
}

// Stat returns size and modification time of a project file.
func (d *Dir) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(d.abs(path))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: info.Size(), ModTime: info.ModTime()}, nil
}
