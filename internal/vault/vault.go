// Package vault is the artifact store. It owns typed creation with
// allocated IDs, revisioned updates, soft delete and restore, permanent
// deletion with its cascade, link edits and the embedded-link migration.
// Every mutation lands as one commit whose message names the artifact.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/cache"
	"github.com/Neizinp/tracyfy-sub003/internal/counter"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
	"github.com/Neizinp/tracyfy-sub003/internal/graph"
	"github.com/Neizinp/tracyfy-sub003/internal/link"
	"github.com/Neizinp/tracyfy-sub003/internal/project"
	"github.com/Neizinp/tracyfy-sub003/internal/vcs"
)

var (
	// ErrNotFound reports an ID with no artifact file.
	ErrNotFound = errors.New("artifact not found")
	// ErrDeleted reports a mutation on a soft-deleted artifact.
	ErrDeleted = errors.New("artifact is deleted")
	// ErrNotDeleted reports a restore of an artifact that is not deleted.
	ErrNotDeleted = errors.New("artifact is not deleted")
)

// DefaultStatus is assigned to new artifacts without an explicit status.
const DefaultStatus = "draft"

// Draft is caller-supplied artifact content. On update, zero-valued fields
// keep the current value; a non-nil Verifies replaces the reference list.
type Draft struct {
	Title    string
	Status   string
	Priority string
	Body     string
	Verifies []string
}

// Vault orchestrates artifact mutations over the project state.
type Vault struct {
	proj      *project.Project
	files     fsio.FS
	repo      vcs.VCS
	alloc     *counter.Allocator
	links     *link.Store
	scanCache *cache.Cache

	now func() time.Time
}

// Option configures a Vault.
type Option func(*Vault)

// WithCache reuses parsed artifacts for files whose stat is unchanged.
func WithCache(c *cache.Cache) Option {
	return func(v *Vault) {
		v.scanCache = c
	}
}

// New creates a vault over an opened project.
func New(p *project.Project, opts ...Option) *Vault {
	v := &Vault{
		proj:  p,
		files: p.Files,
		repo:  p.Repo,
		alloc: counter.NewAllocator(p.Files, p.Repo),
		links: link.NewStore(p.Files),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Links exposes the link record store.
func (v *Vault) Links() *link.Store {
	return v.links
}

// Allocator exposes the ID allocator.
func (v *Vault) Allocator() *counter.Allocator {
	return v.alloc
}

// Create allocates the next ID of the type and writes the artifact as a new
// file. The allocation itself commits the counter; the artifact lands in a
// second commit naming it.
func (v *Vault) Create(t artifact.Type, d Draft) (*artifact.Artifact, error) {
	id, err := v.alloc.Next(t)
	if err != nil {
		return nil, err
	}

	now := v.now().UTC()
	a := &artifact.Artifact{
		ID:           id,
		Type:         t,
		Title:        d.Title,
		Status:       d.Status,
		Priority:     d.Priority,
		Revision:     artifact.DefaultRevision,
		DateCreated:  now,
		LastModified: now,
		Verifies:     d.Verifies,
		Body:         d.Body,
	}
	if a.Status == "" {
		a.Status = DefaultStatus
	}

	target := artifact.PathFor(t, id)
	if err := v.writeAt(target, a); err != nil {
		return nil, err
	}
	v.proj.AddMember(t, id)
	if err := v.stageManifest(); err != nil {
		return nil, err
	}
	if _, err := v.repo.Commit(fmt.Sprintf("Add %s: %s", id, a.Title)); err != nil {
		return nil, err
	}
	return a, nil
}

// Get loads one artifact by ID. Soft-deleted artifacts load normally; the
// IsDeleted flag is the caller's to inspect.
func (v *Vault) Get(id string) (*artifact.Artifact, error) {
	p, err := v.locate(id)
	if err != nil {
		return nil, err
	}
	return v.load(p)
}

// LoadAll returns every tracked artifact sorted by ID, soft-deleted ones
// included. Files that fail to parse are skipped with a warning so one bad
// file does not take the project down.
func (v *Vault) LoadAll() ([]*artifact.Artifact, error) {
	entries, err := v.scan()
	if err != nil {
		return nil, err
	}
	all := make([]*artifact.Artifact, 0, len(entries))
	for _, e := range entries {
		all = append(all, e.art)
	}
	return all, nil
}

// Update applies a draft to an existing artifact, bumps its revision and
// commits. A draft that changes nothing is a no-op without a commit.
func (v *Vault) Update(id string, d Draft) (*artifact.Artifact, error) {
	p, err := v.locate(id)
	if err != nil {
		return nil, err
	}
	a, err := v.load(p)
	if err != nil {
		return nil, err
	}
	if a.IsDeleted {
		return nil, fmt.Errorf("%w: %s", ErrDeleted, id)
	}

	changed := false
	apply := func(dst *string, src string) {
		if src != "" && src != *dst {
			*dst = src
			changed = true
		}
	}
	apply(&a.Title, d.Title)
	apply(&a.Status, d.Status)
	apply(&a.Priority, d.Priority)
	apply(&a.Body, d.Body)
	if d.Verifies != nil && !equalStrings(a.Verifies, d.Verifies) {
		a.Verifies = d.Verifies
		changed = true
	}
	if !changed {
		return a, nil
	}

	a.Revision = artifact.NextRevision(a.Revision)
	a.LastModified = v.now().UTC()
	if err := v.writeAt(p, a); err != nil {
		return nil, err
	}
	if _, err := v.repo.Commit(fmt.Sprintf("Update %s: %s", id, a.Title)); err != nil {
		return nil, err
	}
	return a, nil
}

// SoftDelete marks an artifact deleted without touching its revision. The
// artifact stays on disk and in the graph.
func (v *Vault) SoftDelete(id string) (*artifact.Artifact, error) {
	p, err := v.locate(id)
	if err != nil {
		return nil, err
	}
	a, err := v.load(p)
	if err != nil {
		return nil, err
	}
	if a.IsDeleted {
		return nil, fmt.Errorf("%w: %s", ErrDeleted, id)
	}

	now := v.now().UTC()
	a.IsDeleted = true
	a.DeletedAt = now
	a.LastModified = now
	if err := v.writeAt(p, a); err != nil {
		return nil, err
	}
	if _, err := v.repo.Commit(fmt.Sprintf("Delete %s: %s", id, a.Title)); err != nil {
		return nil, err
	}
	return a, nil
}

// Restore clears the deletion mark. The revision stays as it was.
func (v *Vault) Restore(id string) (*artifact.Artifact, error) {
	p, err := v.locate(id)
	if err != nil {
		return nil, err
	}
	a, err := v.load(p)
	if err != nil {
		return nil, err
	}
	if !a.IsDeleted {
		return nil, fmt.Errorf("%w: %s", ErrNotDeleted, id)
	}

	a.IsDeleted = false
	a.DeletedAt = time.Time{}
	a.LastModified = v.now().UTC()
	if err := v.writeAt(p, a); err != nil {
		return nil, err
	}
	if _, err := v.repo.Commit(fmt.Sprintf("Restore %s: %s", id, a.Title)); err != nil {
		return nil, err
	}
	return a, nil
}

// PermanentDelete removes the artifact file and cascades: every link record
// touching the artifact is deleted, references to it in other artifacts are
// stripped (with a revision bump), and project membership is updated. The
// whole cascade is one commit. The allocated ID is never reused.
func (v *Vault) PermanentDelete(id string) error {
	p, err := v.locate(id)
	if err != nil {
		return err
	}
	a, err := v.load(p)
	if err != nil {
		return err
	}

	if err := v.files.DeleteFile(p); err != nil {
		return fmt.Errorf("deleting %s: %w", p, err)
	}
	if err := v.repo.Add(p); err != nil {
		return err
	}
	if v.scanCache != nil {
		if err := v.scanCache.Remove(p); err != nil {
			logrus.Debugf("cache remove for %s failed: %v", p, err)
		}
	}

	removed, err := v.links.RemoveTouching(id)
	if err != nil {
		return err
	}
	for _, l := range removed {
		if err := v.repo.Add(link.Path(l.ID)); err != nil {
			return err
		}
	}

	entries, err := v.scan()
	if err != nil {
		return err
	}
	now := v.now().UTC()
	for _, e := range entries {
		if !stripReferences(e.art, id) {
			continue
		}
		e.art.Revision = artifact.NextRevision(e.art.Revision)
		e.art.LastModified = now
		if err := v.writeAt(e.path, e.art); err != nil {
			return err
		}
	}

	v.proj.RemoveMember(a.Type, id)
	if err := v.stageManifest(); err != nil {
		return err
	}
	if _, err := v.repo.Commit(fmt.Sprintf("Purge %s: %s", id, a.Title)); err != nil {
		return err
	}
	return nil
}

// AddLink records a directed link between two artifacts and commits the
// record. Targets outside the loaded set are allowed; gap detection reports
// them, creation does not reject them.
func (v *Vault) AddLink(sourceID, targetID string, t link.Type) (link.Link, error) {
	l, err := v.links.Add(link.Link{SourceID: sourceID, TargetID: targetID, Type: t})
	if err != nil {
		return link.Link{}, err
	}
	if err := v.repo.Add(link.Path(l.ID)); err != nil {
		return link.Link{}, err
	}
	if _, err := v.repo.Commit(fmt.Sprintf("Link %s to %s (%s)", sourceID, targetID, t)); err != nil {
		return link.Link{}, err
	}
	return l, nil
}

// RemoveLink deletes the record matching the triple and commits.
func (v *Vault) RemoveLink(sourceID, targetID string, t link.Type) error {
	all, err := v.links.List()
	if err != nil {
		return err
	}
	for _, l := range all {
		if l.SourceID != sourceID || l.TargetID != targetID || l.Type != t {
			continue
		}
		if err := v.links.Remove(l.ID); err != nil {
			return err
		}
		if err := v.repo.Add(link.Path(l.ID)); err != nil {
			return err
		}
		_, err := v.repo.Commit(fmt.Sprintf("Unlink %s from %s (%s)", sourceID, targetID, t))
		return err
	}
	return fmt.Errorf("%w: %s -%s-> %s", link.ErrNotFound, sourceID, t, targetID)
}

// MigrateEmbedded folds embedded front-matter links into standalone records
// and clears the migrated entries from the embedded arrays, all in one
// commit. Refs with an unknown relation type stay embedded. Revisions do
// not change; the relations themselves are untouched, only their storage
// moves.
func (v *Vault) MigrateEmbedded() ([]link.Link, error) {
	entries, err := v.scan()
	if err != nil {
		return nil, err
	}
	artifacts := make([]*artifact.Artifact, 0, len(entries))
	pathByID := make(map[string]string, len(entries))
	for _, e := range entries {
		artifacts = append(artifacts, e.art)
		pathByID[e.art.ID] = e.path
	}

	created, affected, err := v.links.MigrateEmbedded(artifacts)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 && len(affected) == 0 {
		return nil, nil
	}

	for _, l := range created {
		if err := v.repo.Add(link.Path(l.ID)); err != nil {
			return nil, err
		}
	}
	now := v.now().UTC()
	for _, a := range affected {
		a.LastModified = now
		if err := v.writeAt(pathByID[a.ID], a); err != nil {
			return nil, err
		}
	}
	if _, err := v.repo.Commit("Migrate embedded links"); err != nil {
		return nil, err
	}
	return created, nil
}

// BuildGraph loads all artifacts and link records into one graph.
func (v *Vault) BuildGraph() (*graph.Graph, error) {
	artifacts, err := v.LoadAll()
	if err != nil {
		return nil, err
	}
	records, err := v.links.List()
	if err != nil {
		return nil, err
	}
	return graph.Build(artifacts, records), nil
}

// History returns the commits touching an artifact's file, newest first.
func (v *Vault) History(id string, limit int) ([]vcs.Commit, error) {
	p, err := v.locate(id)
	if err != nil {
		return nil, err
	}
	return v.repo.Log(p, limit)
}

type entry struct {
	path string
	art  *artifact.Artifact
}

// scan loads every tracked artifact file, sorted by ID.
func (v *Vault) scan() ([]entry, error) {
	paths, err := v.files.ListFiles(".")
	if err != nil {
		return nil, fmt.Errorf("listing project files: %w", err)
	}

	var entries []entry
	for _, p := range paths {
		if _, ok := v.proj.Matcher.Match(p); !ok {
			continue
		}
		a, err := v.load(p)
		if err != nil {
			logrus.Warnf("skipping unreadable artifact %s: %v", p, err)
			continue
		}
		entries = append(entries, entry{path: p, art: a})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].art.ID < entries[j].art.ID })
	return entries, nil
}

// locate resolves an artifact ID to its file. The conventional path is
// tried first; projects with custom path rules fall back to a scan.
func (v *Vault) locate(id string) (string, error) {
	if t := artifact.TypeFromID(id); t != artifact.TypeUnknown {
		conventional := artifact.PathFor(t, id)
		exists, err := v.files.Exists(conventional)
		if err != nil {
			return "", err
		}
		if exists {
			return conventional, nil
		}
	}

	paths, err := v.files.ListFiles(".")
	if err != nil {
		return "", fmt.Errorf("listing project files: %w", err)
	}
	name := artifact.FileName(id)
	for _, p := range paths {
		if _, ok := v.proj.Matcher.Match(p); !ok {
			continue
		}
		if path.Base(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (v *Vault) load(p string) (*artifact.Artifact, error) {
	if v.scanCache != nil {
		if info, err := v.files.Stat(p); err == nil {
			if hit, err := v.scanCache.Lookup(p, info); err == nil && hit != nil && hit.Artifact != nil {
				return hit.Artifact, nil
			}
		}
	}

	content, err := v.files.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	a, err := artifact.ParseFile(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	v.cacheStore(p, content, a)
	return a, nil
}

// writeAt renders the artifact, writes it, stages it and refreshes the
// cache. Committing is the caller's move.
func (v *Vault) writeAt(p string, a *artifact.Artifact) error {
	data, err := artifact.Format(a)
	if err != nil {
		return err
	}
	if err := v.files.WriteFile(p, data); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	if err := v.repo.Add(p); err != nil {
		return err
	}
	v.cacheStore(p, data, a)
	return nil
}

func (v *Vault) cacheStore(p string, content []byte, a *artifact.Artifact) {
	if v.scanCache == nil {
		return
	}
	info, err := v.files.Stat(p)
	if err != nil {
		return
	}
	if err := v.scanCache.Store(p, info, cache.HashHex(content), a); err != nil {
		logrus.Debugf("cache store for %s failed: %v", p, err)
	}
}

func (v *Vault) stageManifest() error {
	if err := v.proj.SaveManifest(); err != nil {
		return err
	}
	return v.repo.Add(project.ManifestPath)
}

// stripReferences drops mentions of a deleted artifact from embedded links
// and verifies lists. It reports whether anything changed.
func stripReferences(a *artifact.Artifact, deletedID string) bool {
	changed := false

	if len(a.Embedded) > 0 {
		kept := a.Embedded[:0]
		for _, ref := range a.Embedded {
			if ref.TargetID == deletedID {
				changed = true
				continue
			}
			kept = append(kept, ref)
		}
		if len(kept) == 0 {
			a.Embedded = nil
		} else {
			a.Embedded = kept
		}
	}

	if len(a.Verifies) > 0 {
		kept := a.Verifies[:0]
		for _, ref := range a.Verifies {
			if ref == deletedID {
				changed = true
				continue
			}
			kept = append(kept, ref)
		}
		if len(kept) == 0 {
			a.Verifies = nil
		} else {
			a.Verifies = kept
		}
	}
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
