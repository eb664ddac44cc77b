package link

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
)

// RecordsDir holds one YAML record per link.
const RecordsDir = ".tracyfy/links"

var (
	ErrDuplicate = errors.New("duplicate link")
	ErrNotFound  = errors.New("link not found")
	ErrSelfLink  = errors.New("link source equals target")
	ErrBadType   = errors.New("unknown link type")
)

// Store reads and writes standalone link records. It is the canonical link
// storage; embedded front-matter links survive only until migrated.
type Store struct {
	fs  fsio.FS
	now func() time.Time
}

// NewStore creates a record store over the project filesystem.
func NewStore(fs fsio.FS) *Store {
	return &Store{fs: fs, now: time.Now}
}

// Path returns the record file path for a link ID.
func Path(id string) string {
	return RecordsDir + "/" + id + ".yaml"
}

// List returns all link records in record-file order. Non-record files
// in the directory, like the scaffolded .gitkeep, are ignored.
func (s *Store) List() ([]Link, error) {
	paths, err := s.fs.ListFiles(RecordsDir)
	if err != nil {
		return nil, fmt.Errorf("listing link records: %w", err)
	}

	var links []Link
	for _, p := range paths {
		if !strings.HasSuffix(p, ".yaml") {
			continue
		}
		data, err := s.fs.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading link record %s: %w", p, err)
		}
		var l Link
		if err := yaml.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("parsing link record %s: %w", p, err)
		}
		links = append(links, l)
	}
	return links, nil
}

// Get returns one link record by ID.
func (s *Store) Get(id string) (Link, error) {
	data, err := s.fs.ReadFile(Path(id))
	if err != nil {
		return Link{}, fmt.Errorf("reading link %s: %w", id, ErrNotFound)
	}
	var l Link
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Link{}, fmt.Errorf("parsing link %s: %w", id, err)
	}
	return l, nil
}

// Add validates and persists a new link record. A missing ID is assigned,
// a missing scope defaults to project. An existing record with the same
// (source, target, type) is a duplicate.
func (s *Store) Add(l Link) (Link, error) {
	if l.SourceID == "" || l.TargetID == "" {
		return Link{}, fmt.Errorf("link endpoints required")
	}
	if l.SourceID == l.TargetID {
		return Link{}, ErrSelfLink
	}
	if !Valid(l.Type) {
		return Link{}, fmt.Errorf("%w: %q", ErrBadType, l.Type)
	}

	existing, err := s.List()
	if err != nil {
		return Link{}, err
	}
	for _, e := range existing {
		if e.SourceID == l.SourceID && e.TargetID == l.TargetID && e.Type == l.Type {
			return Link{}, fmt.Errorf("%w: %s -%s-> %s", ErrDuplicate, l.SourceID, l.Type, l.TargetID)
		}
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Scope == "" {
		l.Scope = ScopeProject
	}
	if l.Created.IsZero() {
		l.Created = s.now().UTC()
	}

	if err := s.write(l); err != nil {
		return Link{}, err
	}
	return l, nil
}

// Remove deletes one link record.
func (s *Store) Remove(id string) error {
	if err := s.fs.DeleteFile(Path(id)); err != nil {
		return fmt.Errorf("removing link %s: %w", id, err)
	}
	return nil
}

// RemoveTouching deletes every record with the artifact as source or
// target and returns the removed links. Used when an artifact is
// permanently deleted.
func (s *Store) RemoveTouching(artifactID string) ([]Link, error) {
	links, err := s.List()
	if err != nil {
		return nil, err
	}

	var removed []Link
	for _, l := range links {
		if l.SourceID != artifactID && l.TargetID != artifactID {
			continue
		}
		if err := s.Remove(l.ID); err != nil {
			return removed, err
		}
		removed = append(removed, l)
	}
	return removed, nil
}

// MigrateEmbedded folds embedded front-matter links into standalone
// records, skipping relations that already have one. A ref with an
// unknown relation type is left embedded rather than recorded. Each
// artifact's embedded array is rewritten to the refs that did not
// migrate; persisting the returned artifacts is the caller's write to
// make.
func (s *Store) MigrateEmbedded(artifacts []*artifact.Artifact) ([]Link, []*artifact.Artifact, error) {
	existing, err := s.List()
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, l := range existing {
		seen[dedupKey(l.SourceID, l.TargetID, l.Type)] = true
	}

	var created []Link
	var affected []*artifact.Artifact
	for _, a := range artifacts {
		if len(a.Embedded) == 0 {
			continue
		}

		var kept []artifact.LinkRef
		for _, ref := range a.Embedded {
			if ref.TargetID == "" || ref.TargetID == a.ID {
				continue
			}
			if !Valid(Type(ref.Type)) {
				logrus.Warnf("keeping embedded link %s -> %s: unknown type %q", a.ID, ref.TargetID, ref.Type)
				kept = append(kept, ref)
				continue
			}
			key := dedupKey(a.ID, ref.TargetID, Type(ref.Type))
			if seen[key] {
				continue
			}
			seen[key] = true

			l := Link{
				ID:       uuid.NewString(),
				SourceID: a.ID,
				TargetID: ref.TargetID,
				Type:     Type(ref.Type),
				Scope:    ScopeProject,
				Created:  s.now().UTC(),
			}
			if err := s.write(l); err != nil {
				return created, affected, err
			}
			created = append(created, l)
		}

		if len(kept) != len(a.Embedded) {
			a.Embedded = kept
			affected = append(affected, a)
		}
	}
	return created, affected, nil
}

func (s *Store) write(l Link) error {
	data, err := yaml.Marshal(&l)
	if err != nil {
		return fmt.Errorf("encoding link %s: %w", l.ID, err)
	}
	if err := s.fs.WriteFile(Path(l.ID), data); err != nil {
		return fmt.Errorf("writing link %s: %w", l.ID, err)
	}
	return nil
}

func dedupKey(source, target string, t Type) string {
	return source + "\x00" + target + "\x00" + string(t)
}
