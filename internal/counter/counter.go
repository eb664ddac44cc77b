// Package counter mints type-prefixed artifact identifiers from persisted
// per-type counters.
//
// Counters only ever grow; an ID is never reissued, even after its artifact
// is permanently deleted. Every allocation commits the counter file, so the
// repository history carries the allocation record.
package counter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
	"github.com/Neizinp/tracyfy-sub003/internal/vcs"
)

// CountersDir holds one plain-text counter file per artifact type.
const CountersDir = "counters"

// ErrUnknownType reports an allocation request for a type without a
// configured prefix. This is a caller bug, surfaced immediately.
var ErrUnknownType = errors.New("unconfigured artifact type")

// Allocator issues sequential artifact IDs. It performs read-then-write
// without an internal lock; callers serialize allocations per type.
type Allocator struct {
	files fsio.FS
	repo  vcs.VCS
}

// NewAllocator creates an allocator over the project filesystem and
// repository.
func NewAllocator(files fsio.FS, repo vcs.VCS) *Allocator {
	return &Allocator{files: files, repo: repo}
}

// FilePath returns the counter file path for a type.
func FilePath(t artifact.Type) string {
	return CountersDir + "/" + string(t)
}

// Current returns the last issued sequence number for a type, 0 when no
// counter file exists yet.
func (a *Allocator) Current(t artifact.Type) (int, error) {
	if artifact.Prefix(t) == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return a.read(t)
}

// Next issues the next ID for a type.
func (a *Allocator) Next(t artifact.Type) (string, error) {
	ids, err := a.NextBlock(t, 1)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// NextBlock reserves count consecutive IDs in a single read-modify-write:
// one counter write and one commit regardless of count. IDs are returned
// in ascending order.
func (a *Allocator) NextBlock(t artifact.Type, count int) ([]string, error) {
	if artifact.Prefix(t) == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if count < 1 {
		return nil, fmt.Errorf("block size %d must be positive", count)
	}

	current, err := a.read(t)
	if err != nil {
		return nil, err
	}
	last := current + count

	path := FilePath(t)
	if err := a.files.WriteFile(path, []byte(strconv.Itoa(last)+"\n")); err != nil {
		return nil, fmt.Errorf("writing counter %s: %w", path, err)
	}
	if err := a.repo.Add(path); err != nil {
		return nil, err
	}
	if _, err := a.repo.Commit(fmt.Sprintf("Update %s counter", t)); err != nil {
		return nil, err
	}

	ids := make([]string, 0, count)
	for seq := current + 1; seq <= last; seq++ {
		ids = append(ids, artifact.FormatID(t, seq))
	}
	return ids, nil
}

// NextWithSync pulls the latest counter state before allocating and pushes
// afterward. Both pull and push are best-effort: failures are logged and
// swallowed, allocation proceeds on the local counter either way. The
// allocation itself re-reads the counter after the pull, so a fast-forward
// from a collaborator is never overwritten with a stale value.
func (a *Allocator) NextWithSync(ctx context.Context, t artifact.Type) (string, error) {
	if artifact.Prefix(t) == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	if err := a.repo.Pull(ctx); err != nil {
		logrus.Debugf("counter pull skipped: %v", err)
	}

	id, err := a.Next(t)
	if err != nil {
		return "", err
	}

	if err := a.repo.Push(ctx); err != nil {
		logrus.Debugf("counter push skipped: %v", err)
	}
	return id, nil
}

func (a *Allocator) read(t artifact.Type) (int, error) {
	path := FilePath(t)
	data, err := a.files.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading counter %s: %w", path, err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing counter %s: %w", path, err)
	}
	return value, nil
}
