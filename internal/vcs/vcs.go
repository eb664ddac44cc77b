// Package vcs abstracts the version-control substrate behind a narrow
// interface. The core records every artifact mutation as a commit and
// resolves historical file content through this package, never by invoking
// git itself.
package vcs

import (
	"context"
	"time"
)

// Commit describes one commit in the project history.
type Commit struct {
	Hash    string
	Author  string
	Email   string
	Message string
	When    time.Time
}

// Tag describes a tag and the commit it points at.
type Tag struct {
	Name    string
	Message string
	Hash    string
}

// VCS is the version-control surface the core depends on. Push and Pull
// touch the network and take a context; the remaining operations are local.
type VCS interface {
	// Init initializes the underlying repository. Initializing an already
	// initialized repository is a no-op.
	Init() error

	// Add stages a path. A path deleted from the working tree is staged
	// as a removal.
	Add(path string) error

	// Commit records staged changes and returns the new commit hash.
	Commit(message string) (string, error)

	// Tag creates an annotated tag at HEAD.
	Tag(name, message string) error

	// ListTags returns all tags, sorted by name.
	ListTags() ([]Tag, error)

	// Log returns commits newest-first. A non-empty path restricts the log
	// to commits touching that path; limit 0 means unlimited.
	Log(path string, limit int) ([]Commit, error)

	// ReadFileAtCommit returns a file's content as stored at a commit.
	ReadFileAtCommit(commitHash, path string) ([]byte, error)

	// ListFilesAtCommit returns all file paths in a commit's tree, sorted.
	ListFilesAtCommit(commitHash string) ([]string, error)

	// Head returns the current HEAD commit hash.
	Head() (string, error)

	Push(ctx context.Context) error
	Pull(ctx context.Context) error
}
