// Package baseline creates and compares immutable project snapshots. A
// baseline pins every tracked artifact to the commit that last touched it,
// records the pins in a YAML file under .tracyfy/baselines/, and marks the
// repository state with an annotated tag. Baselines are never modified or
// deleted once created.
package baseline

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
	"github.com/Neizinp/tracyfy-sub003/internal/vcs"
)

// RecordsDir holds one YAML record per baseline.
const RecordsDir = ".tracyfy/baselines"

var (
	// ErrLabelTaken reports a label that already names a baseline.
	ErrLabelTaken = errors.New("baseline label already exists")
	// ErrNotFound reports a label that names no baseline.
	ErrNotFound = errors.New("baseline not found")
	// ErrNoCommits reports an attempt to baseline a repository with no
	// history to pin.
	ErrNoCommits = errors.New("repository has no commits to baseline")
)

// Pin records where one artifact stood when the baseline was created.
type Pin struct {
	Path   string        `yaml:"path"`
	Commit string        `yaml:"commit"`
	Type   artifact.Type `yaml:"type"`
}

// Baseline is one immutable snapshot record.
type Baseline struct {
	ID        string         `yaml:"id"`
	Project   string         `yaml:"project"`
	Label     string         `yaml:"label"`
	Name      string         `yaml:"name"`
	Message   string         `yaml:"message,omitempty"`
	TagRef    string         `yaml:"tagRef"`
	Commit    string         `yaml:"commit"`
	CreatedAt time.Time      `yaml:"createdAt"`
	Artifacts map[string]Pin `yaml:"artifacts"`
	Added     []string       `yaml:"added,omitempty"`
	Removed   []string       `yaml:"removed,omitempty"`
}

// ModifiedArtifact is one artifact pinned to different commits on the two
// sides of a diff. Revisions are resolved from the file content at each
// side's commit, "01" when unreadable.
type ModifiedArtifact struct {
	ID           string
	FromCommit   string
	ToCommit     string
	FromRevision string
	ToRevision   string
}

// Diff is the comparison of two baselines. Added and Removed are from the
// perspective of the current side.
type Diff struct {
	Current  string
	Previous string
	Added    []string
	Removed  []string
	Modified []ModifiedArtifact
}

// Manager creates, lists and diffs baselines for one project.
type Manager struct {
	files   fsio.FS
	repo    vcs.VCS
	matcher *artifact.Matcher
	project string

	cached  bool
	records []Baseline

	now func() time.Time
}

// NewManager creates a baseline manager.
func NewManager(files fsio.FS, repo vcs.VCS, matcher *artifact.Matcher, project string) *Manager {
	return &Manager{
		files:   files,
		repo:    repo,
		matcher: matcher,
		project: project,
		now:     time.Now,
	}
}

// Invalidate drops the cached record list. The next List reloads from disk.
func (m *Manager) Invalidate() {
	m.cached = false
	m.records = nil
}

// List returns all baselines ordered oldest-first by creation time.
func (m *Manager) List() ([]Baseline, error) {
	if m.cached {
		return m.records, nil
	}

	paths, err := m.files.ListFiles(RecordsDir)
	if err != nil {
		return nil, fmt.Errorf("listing baselines: %w", err)
	}

	var records []Baseline
	for _, p := range paths {
		if !strings.HasSuffix(p, ".yaml") {
			continue
		}
		data, err := m.files.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading baseline %s: %w", p, err)
		}
		var b Baseline
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parsing baseline %s: %w", p, err)
		}
		records = append(records, b)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Label < records[j].Label
	})

	m.records = records
	m.cached = true
	return records, nil
}

// Get returns the baseline with the given label.
func (m *Manager) Get(label string) (*Baseline, error) {
	records, err := m.List()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Label == label {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
}

// Latest returns the most recently created baseline, nil when none exist.
func (m *Manager) Latest() (*Baseline, error) {
	records, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[len(records)-1], nil
}

// Create pins the committed state at HEAD as a new baseline. An empty label
// derives v<n+1> from the number of existing baselines. The record is
// committed and HEAD tagged; Added and Removed are computed against the
// most recent earlier baseline.
func (m *Manager) Create(label, message string) (*Baseline, error) {
	existing, err := m.List()
	if err != nil {
		return nil, err
	}

	if label == "" {
		label = fmt.Sprintf("v%d", len(existing)+1)
	}
	for _, b := range existing {
		if b.Label == label {
			return nil, fmt.Errorf("%w: %q", ErrLabelTaken, label)
		}
	}
	recordPath := RecordsDir + "/" + Slug(label) + ".yaml"
	exists, err := m.files.Exists(recordPath)
	if err != nil {
		return nil, fmt.Errorf("checking baseline record: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: record %s", ErrLabelTaken, recordPath)
	}

	head, err := m.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCommits, err)
	}

	pins, err := m.resolvePins(head)
	if err != nil {
		return nil, err
	}

	b := &Baseline{
		ID:        uuid.NewString(),
		Project:   m.project,
		Label:     label,
		Name:      fmt.Sprintf("[%s] %s", m.project, label),
		Message:   message,
		TagRef:    TagRef(m.project, label),
		Commit:    head,
		CreatedAt: m.now().UTC(),
		Artifacts: pins,
	}

	var previous *Baseline
	if len(existing) > 0 {
		previous = &existing[len(existing)-1]
	}
	b.Added, b.Removed = membershipDelta(b, previous)

	tagMessage := message
	if tagMessage == "" {
		tagMessage = b.Name
	}
	if err := m.repo.Tag(b.TagRef, tagMessage); err != nil {
		return nil, fmt.Errorf("tagging baseline %s: %w", label, err)
	}

	data, err := yaml.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding baseline %s: %w", label, err)
	}
	if err := m.files.WriteFile(recordPath, data); err != nil {
		return nil, fmt.Errorf("writing baseline %s: %w", label, err)
	}
	if err := m.repo.Add(recordPath); err != nil {
		return nil, err
	}
	if _, err := m.repo.Commit(fmt.Sprintf("Create baseline %s", b.Name)); err != nil {
		return nil, err
	}

	m.Invalidate()
	return b, nil
}

// Compare diffs two baselines by label.
func (m *Manager) Compare(currentLabel, previousLabel string) (*Diff, error) {
	current, err := m.Get(currentLabel)
	if err != nil {
		return nil, err
	}
	previous, err := m.Get(previousLabel)
	if err != nil {
		return nil, err
	}
	return m.DiffRecords(current, previous), nil
}

// DiffRecords diffs two baseline records. Artifacts only in current are
// Added, only in previous are Removed, and in both with different pinned
// commits are Modified.
func (m *Manager) DiffRecords(current, previous *Baseline) *Diff {
	d := &Diff{Current: current.Label, Previous: previous.Label}
	d.Added, d.Removed = membershipDelta(current, previous)

	for id, curPin := range current.Artifacts {
		prevPin, ok := previous.Artifacts[id]
		if !ok || prevPin.Commit == curPin.Commit {
			continue
		}
		d.Modified = append(d.Modified, ModifiedArtifact{
			ID:           id,
			FromCommit:   prevPin.Commit,
			ToCommit:     curPin.Commit,
			FromRevision: m.revisionAt(prevPin),
			ToRevision:   m.revisionAt(curPin),
		})
	}
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].ID < d.Modified[j].ID })
	return d
}

// resolvePins maps every tracked artifact in the HEAD tree to the commit
// that last touched it.
func (m *Manager) resolvePins(head string) (map[string]Pin, error) {
	paths, err := m.repo.ListFilesAtCommit(head)
	if err != nil {
		return nil, fmt.Errorf("listing files at HEAD: %w", err)
	}

	pins := make(map[string]Pin)
	for _, p := range paths {
		typ, ok := m.matcher.Match(p)
		if !ok {
			continue
		}
		commits, err := m.repo.Log(p, 1)
		if err != nil {
			return nil, fmt.Errorf("resolving last commit of %s: %w", p, err)
		}
		if len(commits) == 0 {
			continue
		}

		id := strings.TrimSuffix(path.Base(p), ".md")
		pins[id] = Pin{Path: p, Commit: commits[0].Hash, Type: typ}
	}
	return pins, nil
}

func (m *Manager) revisionAt(pin Pin) string {
	content, err := m.repo.ReadFileAtCommit(pin.Commit, pin.Path)
	if err != nil {
		return artifact.DefaultRevision
	}
	return artifact.ParseRevision(content)
}

// membershipDelta returns sorted artifact IDs present only in current and
// only in previous. A nil previous yields empty sets.
func membershipDelta(current, previous *Baseline) (added, removed []string) {
	cur := mapset.NewSet[string]()
	for id := range current.Artifacts {
		cur.Add(id)
	}
	prev := mapset.NewSet[string]()
	if previous != nil {
		for id := range previous.Artifacts {
			prev.Add(id)
		}
	}

	added = cur.Difference(prev).ToSlice()
	removed = prev.Difference(cur).ToSlice()
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// TagRef builds the git ref name for a baseline tag. Labels and project
// names may contain characters git refuses in ref names, so both are
// slugged.
func TagRef(project, label string) string {
	return "baselines/" + Slug(project) + "/" + Slug(label)
}

// Slug lowers a name to [a-z0-9._-], mapping runs of anything else to a
// single hyphen.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
