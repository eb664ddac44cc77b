// Package impact computes transitive dependency chains over the artifact
// graph. Traversals are pure functions of the graph snapshot passed in;
// they never mutate it.
package impact

import (
	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/graph"
	"github.com/Neizinp/tracyfy-sub003/internal/link"
)

// Direction selects which way edges are followed from the source.
type Direction string

const (
	Downstream Direction = "downstream"
	Upstream   Direction = "upstream"
	Both       Direction = "both"
)

// Options bound a traversal. MaxDepth 0 means unlimited.
type Options struct {
	Direction Direction
	MaxDepth  int
}

// Node is one artifact reached by a traversal. Direction is the direction
// of the step that discovered it; LinkType the traversed edge's relation.
type Node struct {
	ArtifactID string
	Type       artifact.Type
	Level      int
	Direction  Direction
	LinkType   link.Type
	ParentID   string
}

// Chain is a traversal result. ByLevel and ByType group the same node list;
// they are never computed independently of it.
type Chain struct {
	SourceID string
	Nodes    []Node
	ByLevel  map[int][]Node
	ByType   map[artifact.Type][]Node
}

// Summary aggregates a chain.
type Summary struct {
	Total      int
	Upstream   int
	Downstream int
	ByType     map[artifact.Type]int
	MaxDepth   int
}

type queueItem struct {
	id    string
	level int
}

// Compute runs a breadth-first traversal from sourceID. The visited set is
// seeded with the source, so the source is never emitted even when a cycle
// leads back to it. In both mode, downstream neighbors are expanded before
// upstream neighbors at every node; the first discovery of an artifact
// fixes its direction. An unknown source yields an empty chain.
func Compute(g *graph.Graph, sourceID string, opts Options) *Chain {
	chain := &Chain{
		SourceID: sourceID,
		ByLevel:  make(map[int][]Node),
		ByType:   make(map[artifact.Type][]Node),
	}

	visited := map[string]bool{sourceID: true}
	queue := []queueItem{{id: sourceID, level: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if opts.MaxDepth > 0 && item.level >= opts.MaxDepth {
			continue
		}

		if opts.Direction != Upstream {
			for _, e := range g.EdgesFrom(item.id) {
				if visited[e.TargetID] {
					continue
				}
				visited[e.TargetID] = true
				node := newNode(g, e.TargetID, item, Downstream, e.Type)
				chain.append(node)
				queue = append(queue, queueItem{id: e.TargetID, level: node.Level})
			}
		}
		if opts.Direction != Downstream {
			for _, e := range g.EdgesTo(item.id) {
				if visited[e.SourceID] {
					continue
				}
				visited[e.SourceID] = true
				node := newNode(g, e.SourceID, item, Upstream, e.Type)
				chain.append(node)
				queue = append(queue, queueItem{id: e.SourceID, level: node.Level})
			}
		}
	}
	return chain
}

func newNode(g *graph.Graph, id string, parent queueItem, dir Direction, lt link.Type) Node {
	return Node{
		ArtifactID: id,
		Type:       typeOf(g, id),
		Level:      parent.level + 1,
		Direction:  dir,
		LinkType:   lt,
		ParentID:   parent.id,
	}
}

// typeOf prefers the type resolved at ingestion; endpoints missing from the
// snapshot fall back to the ID prefix.
func typeOf(g *graph.Graph, id string) artifact.Type {
	if a, ok := g.Artifact(id); ok {
		return a.Type
	}
	return artifact.TypeFromID(id)
}

func (c *Chain) append(n Node) {
	c.Nodes = append(c.Nodes, n)
	c.ByLevel[n.Level] = append(c.ByLevel[n.Level], n)
	c.ByType[n.Type] = append(c.ByType[n.Type], n)
}

// Summarize aggregates counts over a chain's node list.
func Summarize(c *Chain) Summary {
	s := Summary{ByType: make(map[artifact.Type]int)}
	for _, n := range c.Nodes {
		s.Total++
		switch n.Direction {
		case Downstream:
			s.Downstream++
		case Upstream:
			s.Upstream++
		}
		s.ByType[n.Type]++
		if n.Level > s.MaxDepth {
			s.MaxDepth = n.Level
		}
	}
	return s
}
