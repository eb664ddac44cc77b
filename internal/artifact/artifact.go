// Package artifact defines the tracked artifact model and its identifiers.
package artifact

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type represents the kind of a tracked artifact.
type Type string

const (
	TypeRequirement Type = "requirement"
	TypeUseCase     Type = "useCase"
	TypeTestCase    Type = "testCase"
	TypeInformation Type = "information"
	TypeRisk        Type = "risk"
	TypeUnknown     Type = ""
)

// DefaultRevision is the revision assigned to a newly created artifact.
const DefaultRevision = "01"

// typePrefixes maps each artifact type to its ID prefix.
var typePrefixes = map[Type]string{
	TypeRequirement: "REQ",
	TypeUseCase:     "UC",
	TypeTestCase:    "TC",
	TypeInformation: "INFO",
	TypeRisk:        "RISK",
}

// typeDirs maps each artifact type to its folder in the project tree.
var typeDirs = map[Type]string{
	TypeRequirement: "requirements",
	TypeUseCase:     "usecases",
	TypeTestCase:    "testcases",
	TypeInformation: "information",
	TypeRisk:        "risks",
}

// Types returns all configured artifact types in a stable order.
func Types() []Type {
	return []Type{TypeRequirement, TypeUseCase, TypeTestCase, TypeInformation, TypeRisk}
}

// Prefix returns the ID prefix for a type, or "" if the type is not configured.
func Prefix(t Type) string {
	return typePrefixes[t]
}

// Dir returns the project folder holding files of the given type.
func Dir(t Type) string {
	return typeDirs[t]
}

// FormatID renders an artifact ID from a type prefix and sequence number.
func FormatID(t Type, seq int) string {
	return fmt.Sprintf("%s-%03d", typePrefixes[t], seq)
}

// TypeFromID resolves an artifact type from an ID prefix. This is the only
// place the prefix convention is interpreted; callers carry the resolved
// Type from here on. Unrecognized IDs resolve to TypeUnknown.
func TypeFromID(id string) Type {
	prefix, _, ok := strings.Cut(id, "-")
	if !ok {
		return TypeUnknown
	}
	for t, p := range typePrefixes {
		if p == prefix {
			return t
		}
	}
	return TypeUnknown
}

// ParseType resolves a type from its name, accepting a few spellings used
// in folder names and CLI input.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "requirement", "requirements", "req":
		return TypeRequirement, nil
	case "usecase", "usecases", "uc":
		return TypeUseCase, nil
	case "testcase", "testcases", "tc":
		return TypeTestCase, nil
	case "information", "info":
		return TypeInformation, nil
	case "risk", "risks":
		return TypeRisk, nil
	}
	return TypeUnknown, fmt.Errorf("unknown artifact type %q", s)
}

// LinkRef is a legacy link embedded in an artifact's front matter.
// Standalone link records supersede these; the graph still reads both.
type LinkRef struct {
	TargetID string `yaml:"targetId"`
	Type     string `yaml:"type"`
}

// Artifact is one tracked engineering item loaded from a project file.
type Artifact struct {
	ID           string
	Type         Type
	Title        string
	Status       string
	Priority     string
	Revision     string
	IsDeleted    bool
	DeletedAt    time.Time
	DateCreated  time.Time
	LastModified time.Time

	// Embedded holds legacy front-matter links; Verifies holds a test
	// case's direct requirement references.
	Embedded []LinkRef
	Verifies []string

	// Body is the free-text Markdown below the front matter, kept verbatim.
	Body string
}

// FileName returns the file name for an artifact ID.
func FileName(id string) string {
	return id + ".md"
}

// PathFor returns the project-relative path for an artifact.
func PathFor(t Type, id string) string {
	return typeDirs[t] + "/" + FileName(id)
}

// Path returns the project-relative path of the artifact's file.
func (a *Artifact) Path() string {
	return PathFor(a.Type, a.ID)
}

// NextRevision increments a zero-padded revision counter, preserving its
// width ("01" -> "02", "99" -> "100"). Unparsable input restarts at the
// default revision.
func NextRevision(rev string) string {
	n, err := strconv.Atoi(rev)
	if err != nil || n < 0 {
		return DefaultRevision
	}
	width := len(rev)
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%0*d", width, n+1)
}
