// Package status compares the working tree's artifact files against HEAD.
package status

import (
	"fmt"
	"sort"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/cache"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
	"github.com/Neizinp/tracyfy-sub003/internal/vcs"
)

// Result lists artifact files that differ between the working tree and HEAD.
// Paths are project-relative and sorted.
type Result struct {
	Head     string
	Added    []string
	Modified []string
	Deleted  []string
}

// Options configures status computation.
type Options struct {
	// Cache, when set, reuses digests for files whose stat is unchanged.
	Cache *cache.Cache
}

// Compute compares artifact files in the working tree against the HEAD
// commit. On a repository with no commits yet every tracked file is Added.
func Compute(files fsio.FS, repo vcs.VCS, matcher *artifact.Matcher, opts Options) (*Result, error) {
	result := &Result{}

	current, err := workingDigests(files, matcher, opts.Cache)
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		// No commits yet: everything in the tree is new.
		for path := range current {
			result.Added = append(result.Added, path)
		}
		sort.Strings(result.Added)
		return result, nil
	}
	result.Head = head

	committed, err := headDigests(repo, matcher, head)
	if err != nil {
		return nil, err
	}

	for path, digest := range current {
		headDigest, ok := committed[path]
		switch {
		case !ok:
			result.Added = append(result.Added, path)
		case digest != headDigest:
			result.Modified = append(result.Modified, path)
		}
	}
	for path := range committed {
		if _, ok := current[path]; !ok {
			result.Deleted = append(result.Deleted, path)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Modified)
	sort.Strings(result.Deleted)
	return result, nil
}

// HasChanges reports whether anything differs from HEAD.
func (r *Result) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Modified) > 0 || len(r.Deleted) > 0
}

// TotalChanges returns the number of differing files.
func (r *Result) TotalChanges() int {
	return len(r.Added) + len(r.Modified) + len(r.Deleted)
}

func workingDigests(files fsio.FS, matcher *artifact.Matcher, digestCache *cache.Cache) (map[string]string, error) {
	paths, err := files.ListFiles(".")
	if err != nil {
		return nil, fmt.Errorf("listing working tree: %w", err)
	}

	digests := make(map[string]string)
	for _, path := range paths {
		if _, ok := matcher.Match(path); !ok {
			continue
		}
		content, err := files.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		digest := ""
		if digestCache != nil {
			if info, err := files.Stat(path); err == nil {
				digest, _ = digestCache.Digest(path, info, content)
			}
		}
		if digest == "" {
			digest = cache.HashHex(content)
		}
		digests[path] = digest
	}
	return digests, nil
}

func headDigests(repo vcs.VCS, matcher *artifact.Matcher, head string) (map[string]string, error) {
	paths, err := repo.ListFilesAtCommit(head)
	if err != nil {
		return nil, fmt.Errorf("listing files at %s: %w", head, err)
	}

	digests := make(map[string]string)
	for _, path := range paths {
		if _, ok := matcher.Match(path); !ok {
			continue
		}
		content, err := repo.ReadFileAtCommit(head, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s at %s: %w", path, head, err)
		}
		digests[path] = cache.HashHex(content)
	}
	return digests, nil
}
