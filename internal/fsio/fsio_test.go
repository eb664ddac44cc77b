package fsio

import (
	"errors"
	"io/fs"
	"testing"
)

// implementations returns each FS under test by name.
func implementations(t *testing.T) map[string]FS {
	t.Helper()

	dir, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}

	return map[string]FS{
		"dir": dir,
		"mem": NewMem(),
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			content := []byte("---\nid: REQ-001\n---\n")
			if err := fsys.WriteFile("requirements/REQ-001.md", content); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			got, err := fsys.ReadFile("requirements/REQ-001.md")
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if string(got) != string(content) {
				t.Errorf("expected %q, got %q", content, got)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := fsys.ReadFile("requirements/REQ-404.md")
			if !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("expected fs.ErrNotExist, got %v", err)
			}
		})
	}
}

func TestListFiles(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			seed := []string{
				"usecases/UC-001.md",
				"requirements/REQ-002.md",
				"requirements/REQ-001.md",
				".tracyfy/links/abc.yaml",
				".git/config",
			}
			for _, p := range seed {
				if err := fsys.WriteFile(p, []byte(p)); err != nil {
					t.Fatalf("WriteFile(%s) failed: %v", p, err)
				}
			}

			all, err := fsys.ListFiles(".")
			if err != nil {
				t.Fatalf("ListFiles failed: %v", err)
			}
			expected := []string{
				"requirements/REQ-001.md",
				"requirements/REQ-002.md",
				"usecases/UC-001.md",
			}
			if len(all) != len(expected) {
				t.Fatalf("expected %v, got %v", expected, all)
			}
			for i := range expected {
				if all[i] != expected[i] {
					t.Errorf("position %d: expected %s, got %s", i, expected[i], all[i])
				}
			}

			// Listing inside a dot directory still works when named directly.
			links, err := fsys.ListFiles(".tracyfy/links")
			if err != nil {
				t.Fatalf("ListFiles(.tracyfy/links) failed: %v", err)
			}
			if len(links) != 1 || links[0] != ".tracyfy/links/abc.yaml" {
				t.Errorf("expected link record listed, got %v", links)
			}
		})
	}
}

func TestListFilesMissingDir(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			files, err := fsys.ListFiles("risks")
			if err != nil {
				t.Fatalf("ListFiles on missing dir failed: %v", err)
			}
			if len(files) != 0 {
				t.Errorf("expected empty list, got %v", files)
			}
		})
	}
}

func TestExists(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			if err := fsys.WriteFile("counters/requirement", []byte("3")); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			tests := []struct {
				path     string
				expected bool
			}{
				{"counters/requirement", true},
				{"counters", true},
				{"counters/useCase", false},
				{"baselines", false},
			}
			for _, tt := range tests {
				ok, err := fsys.Exists(tt.path)
				if err != nil {
					t.Fatalf("Exists(%s) failed: %v", tt.path, err)
				}
				if ok != tt.expected {
					t.Errorf("Exists(%s) = %v, expected %v", tt.path, ok, tt.expected)
				}
			}
		})
	}
}

func TestMkdirAll(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			if err := fsys.MkdirAll(".tracyfy/baselines"); err != nil {
				t.Fatalf("MkdirAll failed: %v", err)
			}
			ok, err := fsys.Exists(".tracyfy/baselines")
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if !ok {
				t.Error("created directory does not exist")
			}
		})
	}
}

func TestDeleteFile(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			if err := fsys.WriteFile("risks/RISK-001.md", []byte("x")); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			if err := fsys.DeleteFile("risks/RISK-001.md"); err != nil {
				t.Fatalf("DeleteFile failed: %v", err)
			}
			ok, err := fsys.Exists("risks/RISK-001.md")
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if ok {
				t.Error("file still exists after delete")
			}

			if err := fsys.DeleteFile("risks/RISK-001.md"); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("expected fs.ErrNotExist, got %v", err)
			}
		})
	}
}

func TestStat(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			content := []byte("12345")
			if err := fsys.WriteFile("information/INFO-001.md", content); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			info, err := fsys.Stat("information/INFO-001.md")
			if err != nil {
				t.Fatalf("Stat failed: %v", err)
			}
			if info.Size != int64(len(content)) {
				t.Errorf("expected size %d, got %d", len(content), info.Size)
			}
			if info.ModTime.IsZero() {
				t.Error("expected non-zero mod time")
			}
		})
	}
}
