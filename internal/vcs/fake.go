package vcs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
)

// Fake is an in-memory VCS for tests. Commit snapshots the whole working
// tree from the backing filesystem, so ReadFileAtCommit and per-path logs
// behave like a real repository without one on disk.
type Fake struct {
	FS          fsio.FS
	Initialized bool
	Commits     []Commit // oldest first
	TagList     []Tag

	PushCalls int
	PullCalls int
	PushErr   error
	PullErr   error
	// PullFn, when set, runs on Pull after the error check. Tests use it to
	// simulate a remote changing files underneath the caller.
	PullFn func() error

	staged    []string
	snapshots map[string]map[string][]byte
	perFile   map[string][]string
	seq       int
}

// NewFake creates a fake VCS over the given filesystem.
func NewFake(fs fsio.FS) *Fake {
	return &Fake{
		FS:        fs,
		snapshots: make(map[string]map[string][]byte),
		perFile:   make(map[string][]string),
	}
}

// Init marks the repository initialized.
func (f *Fake) Init() error {
	f.Initialized = true
	return nil
}

// Add records a staged path.
func (f *Fake) Add(path string) error {
	f.staged = append(f.staged, path)
	return nil
}

// Commit snapshots the current tree and appends a commit.
func (f *Fake) Commit(message string) (string, error) {
	f.seq++
	hash := fmt.Sprintf("%040x", f.seq)

	snapshot := make(map[string][]byte)
	for _, dir := range []string{".", ".tracyfy"} {
		paths, err := f.FS.ListFiles(dir)
		if err != nil {
			return "", err
		}
		for _, p := range paths {
			content, err := f.FS.ReadFile(p)
			if err != nil {
				return "", err
			}
			snapshot[p] = content
		}
	}

	var prev map[string][]byte
	if len(f.Commits) > 0 {
		prev = f.snapshots[f.Commits[len(f.Commits)-1].Hash]
	}
	for p, content := range snapshot {
		if old, ok := prev[p]; !ok || string(old) != string(content) {
			f.perFile[p] = append(f.perFile[p], hash)
		}
	}

	f.snapshots[hash] = snapshot
	f.Commits = append(f.Commits, Commit{
		Hash:    hash,
		Author:  SignatureName,
		Email:   SignatureEmail,
		Message: message,
		When:    time.Now(),
	})
	f.staged = nil
	return hash, nil
}

// Tag records a tag at HEAD.
func (f *Fake) Tag(name, message string) error {
	for _, t := range f.TagList {
		if t.Name == name {
			return fmt.Errorf("tag %s already exists", name)
		}
	}
	head, err := f.Head()
	if err != nil {
		return err
	}
	f.TagList = append(f.TagList, Tag{Name: name, Message: message, Hash: head})
	return nil
}

// ListTags returns recorded tags sorted by name.
func (f *Fake) ListTags() ([]Tag, error) {
	tags := make([]Tag, len(f.TagList))
	copy(tags, f.TagList)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// Log returns commits newest-first, filtered to path when non-empty.
func (f *Fake) Log(path string, limit int) ([]Commit, error) {
	byHash := make(map[string]Commit, len(f.Commits))
	for _, c := range f.Commits {
		byHash[c.Hash] = c
	}

	var commits []Commit
	if path == "" {
		for i := len(f.Commits) - 1; i >= 0; i-- {
			commits = append(commits, f.Commits[i])
		}
	} else {
		hashes := f.perFile[path]
		for i := len(hashes) - 1; i >= 0; i-- {
			commits = append(commits, byHash[hashes[i]])
		}
	}

	if limit > 0 && len(commits) > limit {
		commits = commits[:limit]
	}
	return commits, nil
}

// ReadFileAtCommit returns content from a recorded snapshot.
func (f *Fake) ReadFileAtCommit(commitHash, path string) ([]byte, error) {
	snapshot, ok := f.snapshots[commitHash]
	if !ok {
		return nil, fmt.Errorf("unknown commit %s", commitHash)
	}
	content, ok := snapshot[path]
	if !ok {
		return nil, fmt.Errorf("file %s not in commit %s", path, commitHash)
	}
	return content, nil
}

// ListFilesAtCommit returns the sorted paths in a recorded snapshot.
func (f *Fake) ListFilesAtCommit(commitHash string) ([]string, error) {
	snapshot, ok := f.snapshots[commitHash]
	if !ok {
		return nil, fmt.Errorf("unknown commit %s", commitHash)
	}
	paths := make([]string, 0, len(snapshot))
	for p := range snapshot {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// Head returns the latest commit hash.
func (f *Fake) Head() (string, error) {
	if len(f.Commits) == 0 {
		return "", errors.New("no commits")
	}
	return f.Commits[len(f.Commits)-1].Hash, nil
}

// Push counts the call and returns the configured error.
func (f *Fake) Push(ctx context.Context) error {
	f.PushCalls++
	return f.PushErr
}

// Pull counts the call, then runs the configured hook.
func (f *Fake) Pull(ctx context.Context) error {
	f.PullCalls++
	if f.PullErr != nil {
		return f.PullErr
	}
	if f.PullFn != nil {
		return f.PullFn()
	}
	return nil
}
