// Package link defines typed, directed relations between artifacts and the
// standalone record store that holds them.
package link

import "time"

// Type is the relation kind of a link.
type Type string

const (
	TypeParent        Type = "parent"
	TypeChild         Type = "child"
	TypeDependsOn     Type = "depends_on"
	TypeConflictsWith Type = "conflicts_with"
	TypeDuplicates    Type = "duplicates"
	TypeRefines       Type = "refines"
	TypeSatisfies     Type = "satisfies"
	TypeVerifies      Type = "verifies"
	TypeConstrains    Type = "constrains"
	TypeRequires      Type = "requires"
	TypeRelatedTo     Type = "related_to"
	TypeDerivedFrom   Type = "derived_from"
)

// Types returns the closed set of relation kinds.
func Types() []Type {
	return []Type{
		TypeParent, TypeChild, TypeDependsOn, TypeConflictsWith,
		TypeDuplicates, TypeRefines, TypeSatisfies, TypeVerifies,
		TypeConstrains, TypeRequires, TypeRelatedTo, TypeDerivedFrom,
	}
}

// Valid reports whether t is a known relation kind.
func Valid(t Type) bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Scope governs a link's visibility, not its existence: project-scoped
// links render only inside their project, global ones everywhere.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

// Link is a directed relation between two artifacts.
type Link struct {
	ID       string    `yaml:"id"`
	SourceID string    `yaml:"sourceId"`
	TargetID string    `yaml:"targetId"`
	Type     Type      `yaml:"type"`
	Scope    Scope     `yaml:"scope,omitempty"`
	Created  time.Time `yaml:"created"`
}
