// Package gap classifies artifact connectivity over the unified graph.
//
// Dangling references are a reportable data-quality condition, never an
// error: a deleted target with links still pointing at it is an expected,
// recoverable state.
package gap

import (
	"sort"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/graph"
)

// Class is a connectivity classification. Every loaded artifact gets
// exactly one, decided in the precedence order listed here.
type Class string

const (
	// OrphanLink marks an artifact with at least one outgoing edge whose
	// target is missing from the loaded set. Highest precedence.
	OrphanLink Class = "orphan_link"
	// Unlinked marks an artifact with no edges in either direction.
	Unlinked Class = "unlinked"
	// NoOutgoing marks an artifact with incoming edges only.
	NoOutgoing Class = "no_outgoing"
	// NoIncoming marks an artifact with outgoing edges only.
	NoIncoming Class = "no_incoming"
	// None marks an artifact connected in both directions.
	None Class = "none"
)

// Classes returns all classes in precedence order.
func Classes() []Class {
	return []Class{OrphanLink, Unlinked, NoOutgoing, NoIncoming, None}
}

// Finding is the classification of one artifact. OrphanTargets names the
// missing target IDs for display; it is populated only for OrphanLink.
type Finding struct {
	ArtifactID    string
	Type          artifact.Type
	Class         Class
	OrphanTargets []string
}

// Report holds the classification of every loaded artifact, ordered by
// artifact ID.
type Report struct {
	Findings []Finding
	ByClass  map[Class][]string
	Counts   map[Class]int
	Total    int
}

// Detect classifies every artifact in the graph.
func Detect(g *graph.Graph) *Report {
	report := &Report{
		ByClass: make(map[Class][]string),
		Counts:  make(map[Class]int),
	}

	ids := make([]string, 0, g.Size())
	for _, a := range g.Artifacts() {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		a, _ := g.Artifact(id)
		finding := classify(g, a)
		report.Findings = append(report.Findings, finding)
		report.ByClass[finding.Class] = append(report.ByClass[finding.Class], id)
		report.Counts[finding.Class]++
		report.Total++
	}
	return report
}

func classify(g *graph.Graph, a *artifact.Artifact) Finding {
	finding := Finding{ArtifactID: a.ID, Type: a.Type}

	outgoing := g.EdgesFrom(a.ID)
	incoming := g.EdgesTo(a.ID)

	seen := make(map[string]bool)
	for _, e := range outgoing {
		if g.Has(e.TargetID) || seen[e.TargetID] {
			continue
		}
		seen[e.TargetID] = true
		finding.OrphanTargets = append(finding.OrphanTargets, e.TargetID)
	}

	switch {
	case len(finding.OrphanTargets) > 0:
		finding.Class = OrphanLink
	case len(outgoing) == 0 && len(incoming) == 0:
		finding.Class = Unlinked
	case len(outgoing) == 0:
		finding.Class = NoOutgoing
	case len(incoming) == 0:
		finding.Class = NoIncoming
	default:
		finding.Class = None
	}
	return finding
}
