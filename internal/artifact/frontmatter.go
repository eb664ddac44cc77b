package artifact

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoFrontMatter reports a file without a leading front matter block.
var ErrNoFrontMatter = errors.New("missing front matter")

// frontMatter is the YAML block at the top of an artifact file.
type frontMatter struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	Status    string     `yaml:"status,omitempty"`
	Priority  string     `yaml:"priority,omitempty"`
	Revision  string     `yaml:"revision"`
	Created   time.Time  `yaml:"created"`
	Modified  time.Time  `yaml:"modified"`
	Deleted   bool       `yaml:"deleted,omitempty"`
	DeletedAt *time.Time `yaml:"deletedAt,omitempty"`
	Links     []LinkRef  `yaml:"links,omitempty"`
	Verifies  []string   `yaml:"verifies,omitempty"`
}

// ParseFile decodes an artifact file: a YAML front matter block between
// "---" delimiters followed by a free-text Markdown body. The artifact type
// is resolved from the ID here, at ingestion.
func ParseFile(data []byte) (*Artifact, error) {
	rest, ok := strings.CutPrefix(string(data), "---\n")
	if !ok {
		return nil, ErrNoFrontMatter
	}

	block, body, ok := strings.Cut(rest, "\n---\n")
	if !ok {
		block, ok = strings.CutSuffix(rest, "\n---")
		if !ok {
			return nil, fmt.Errorf("unterminated front matter")
		}
		body = ""
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}
	if fm.ID == "" {
		return nil, fmt.Errorf("front matter missing id")
	}
	if fm.Revision == "" {
		fm.Revision = DefaultRevision
	}

	a := &Artifact{
		ID:           fm.ID,
		Type:         TypeFromID(fm.ID),
		Title:        fm.Title,
		Status:       fm.Status,
		Priority:     fm.Priority,
		Revision:     fm.Revision,
		IsDeleted:    fm.Deleted,
		DateCreated:  fm.Created,
		LastModified: fm.Modified,
		Embedded:     fm.Links,
		Verifies:     fm.Verifies,
		Body:         strings.TrimPrefix(body, "\n"),
	}
	if fm.DeletedAt != nil {
		a.DeletedAt = *fm.DeletedAt
	}
	return a, nil
}

// Format renders an artifact back into file form. The body is written
// verbatim below the front matter.
func Format(a *Artifact) ([]byte, error) {
	fm := frontMatter{
		ID:       a.ID,
		Title:    a.Title,
		Status:   a.Status,
		Priority: a.Priority,
		Revision: a.Revision,
		Created:  a.DateCreated,
		Modified: a.LastModified,
		Deleted:  a.IsDeleted,
		Links:    a.Embedded,
		Verifies: a.Verifies,
	}
	if !a.DeletedAt.IsZero() {
		t := a.DeletedAt
		fm.DeletedAt = &t
	}

	block, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(block)
	b.WriteString("---\n")
	if a.Body != "" {
		b.WriteString("\n")
		b.WriteString(a.Body)
	}
	return []byte(b.String()), nil
}

// ParseRevision extracts the revision label from file content, best-effort.
// Any parse failure or absent field yields the default revision.
func ParseRevision(data []byte) string {
	a, err := ParseFile(data)
	if err != nil {
		return DefaultRevision
	}
	return a.Revision
}
