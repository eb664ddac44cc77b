package fsio

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// Mem is an in-memory FS for tests.
type Mem struct {
	files map[string]memFile
	dirs  map[string]bool
}

type memFile struct {
	data    []byte
	modTime time.Time
}

// NewMem creates an empty in-memory filesystem.
func NewMem() *Mem {
	return &Mem{
		files: make(map[string]memFile),
		dirs:  make(map[string]bool),
	}
}

// ReadFile returns a stored file's content.
func (m *Mem) ReadFile(p string) ([]byte, error) {
	f, ok := m.files[path.Clean(p)]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", p, fs.ErrNotExist)
	}
	data := make([]byte, len(f.data))
	copy(data, f.data)
	return data, nil
}

// WriteFile stores a file, creating implicit parents.
func (m *Mem) WriteFile(p string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[path.Clean(p)] = memFile{data: stored, modTime: time.Now()}
	return nil
}

// ListFiles returns sorted file paths under dir, skipping files inside
// dot-named directories below dir.
func (m *Mem) ListFiles(dir string) ([]string, error) {
	dir = path.Clean(dir)
	var files []string
	for p := range m.files {
		rel, ok := under(dir, p)
		if !ok {
			continue
		}
		if hiddenBelow(rel) {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

// under reports whether p lives under dir and returns the remainder.
func under(dir, p string) (string, bool) {
	if dir == "." {
		return p, true
	}
	rest, ok := strings.CutPrefix(p, dir+"/")
	if !ok {
		return "", false
	}
	return rest, true
}

// hiddenBelow reports whether any directory segment of rel starts with a dot.
func hiddenBelow(rel string) bool {
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// Exists reports whether a file or directory exists.
func (m *Mem) Exists(p string) (bool, error) {
	p = path.Clean(p)
	if _, ok := m.files[p]; ok {
		return true, nil
	}
	if m.dirs[p] {
		return true, nil
	}
	for f := range m.files {
		if strings.HasPrefix(f, p+"/") {
			return true, nil
		}
	}
	return false, nil
}

// MkdirAll records a directory.
func (m *Mem) MkdirAll(p string) error {
	m.dirs[path.Clean(p)] = true
	return nil
}

// DeleteFile removes a stored file.
func (m *Mem) DeleteFile(p string) error {
	p = path.Clean(p)
	if _, ok := m.files[p]; !ok {
		return fmt.Errorf("delete %s: %w", p, fs.ErrNotExist)
	}
	delete(m.files, p)
	return nil
}

// Stat returns the stored file's attributes.
func (m *Mem) Stat(p string) (FileInfo, error) {
	f, ok := m.files[path.Clean(p)]
	if !ok {
		return FileInfo{}, fmt.Errorf("stat %s: %w", p, fs.ErrNotExist)
	}
	return FileInfo{Size: int64(len(f.data)), ModTime: f.modTime}, nil
}
