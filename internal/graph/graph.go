// Package graph builds the unified edge model over artifacts and links.
//
// Links exist in two physical representations: standalone records and legacy
// arrays embedded in artifact front matter. Build merges both, plus the
// synthetic verifies edges derived from test case reference lists, into one
// deduplicated edge set indexed in both directions. Everything that traverses
// or diffs relations reads from here.
package graph

import (
	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/link"
)

// Edge is one directed, typed relation in the unified edge set.
type Edge struct {
	SourceID string
	TargetID string
	Type     link.Type
}

// Graph is the merged edge model. It is built once from a loaded snapshot
// and never mutated afterward; lookups are safe from any call site.
type Graph struct {
	artifacts map[string]*artifact.Artifact
	order     []string
	edges     []Edge
	from      map[string][]Edge
	to        map[string][]Edge
}

// Build merges artifacts and link records into a graph. Standalone records
// are ingested first, then per artifact its embedded links followed by its
// verifies references. The first occurrence of a (source, target, type)
// relation wins; later duplicates are dropped. Edges pointing at artifacts
// missing from the snapshot are retained.
func Build(artifacts []*artifact.Artifact, links []link.Link) *Graph {
	g := &Graph{
		artifacts: make(map[string]*artifact.Artifact, len(artifacts)),
		from:      make(map[string][]Edge),
		to:        make(map[string][]Edge),
	}

	for _, a := range artifacts {
		if _, ok := g.artifacts[a.ID]; ok {
			continue
		}
		g.artifacts[a.ID] = a
		g.order = append(g.order, a.ID)
	}

	seen := make(map[Edge]bool)
	for _, l := range links {
		g.add(seen, Edge{SourceID: l.SourceID, TargetID: l.TargetID, Type: l.Type})
	}
	for _, a := range artifacts {
		for _, ref := range a.Embedded {
			g.add(seen, Edge{SourceID: a.ID, TargetID: ref.TargetID, Type: link.Type(ref.Type)})
		}
		for _, reqID := range a.Verifies {
			g.add(seen, Edge{SourceID: a.ID, TargetID: reqID, Type: link.TypeVerifies})
		}
	}
	return g
}

func (g *Graph) add(seen map[Edge]bool, e Edge) {
	if e.SourceID == "" || e.TargetID == "" || e.SourceID == e.TargetID {
		return
	}
	if seen[e] {
		return
	}
	seen[e] = true

	g.edges = append(g.edges, e)
	g.from[e.SourceID] = append(g.from[e.SourceID], e)
	g.to[e.TargetID] = append(g.to[e.TargetID], e)
}

// EdgesFrom returns the outgoing edges of an artifact in insertion order.
func (g *Graph) EdgesFrom(id string) []Edge {
	return g.from[id]
}

// EdgesTo returns the incoming edges of an artifact in insertion order.
func (g *Graph) EdgesTo(id string) []Edge {
	return g.to[id]
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// EdgeCount returns the number of merged edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Artifact returns a loaded artifact by ID.
func (g *Graph) Artifact(id string) (*artifact.Artifact, bool) {
	a, ok := g.artifacts[id]
	return a, ok
}

// Has reports whether the artifact is part of the loaded snapshot.
func (g *Graph) Has(id string) bool {
	_, ok := g.artifacts[id]
	return ok
}

// Artifacts returns the loaded artifacts in ingestion order.
func (g *Graph) Artifacts() []*artifact.Artifact {
	out := make([]*artifact.Artifact, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.artifacts[id])
	}
	return out
}

// Size returns the number of loaded artifacts.
func (g *Graph) Size() int {
	return len(g.order)
}
