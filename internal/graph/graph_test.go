package graph

import (
	"testing"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/link"
)

func req(id string) *artifact.Artifact {
	return &artifact.Artifact{ID: id, Type: artifact.TypeFromID(id)}
}

func TestBuildMergesRepresentations(t *testing.T) {
	artifacts := []*artifact.Artifact{
		{
			ID:   "REQ-001",
			Type: artifact.TypeRequirement,
			Embedded: []artifact.LinkRef{
				{TargetID: "UC-001", Type: "satisfies"}, // duplicate of the record below
				{TargetID: "INFO-001", Type: "related_to"},
			},
		},
		req("UC-001"),
		req("INFO-001"),
	}
	links := []link.Link{
		{ID: "r1", SourceID: "REQ-001", TargetID: "UC-001", Type: link.TypeSatisfies},
	}

	g := Build(artifacts, links)

	if g.EdgeCount() != 2 {
		t.Fatalf("expected 2 merged edges, got %d: %+v", g.EdgeCount(), g.Edges())
	}

	from := g.EdgesFrom("REQ-001")
	if len(from) != 2 {
		t.Fatalf("expected 2 outgoing edges, got %d", len(from))
	}
	// The standalone record is ingested first, the embedded duplicate is
	// dropped, the remaining embedded link follows.
	if from[0].TargetID != "UC-001" || from[0].Type != link.TypeSatisfies {
		t.Errorf("unexpected first edge: %+v", from[0])
	}
	if from[1].TargetID != "INFO-001" || from[1].Type != link.TypeRelatedTo {
		t.Errorf("unexpected second edge: %+v", from[1])
	}
}

func TestBuildSyntheticVerifies(t *testing.T) {
	artifacts := []*artifact.Artifact{
		req("REQ-001"),
		req("REQ-002"),
		{
			ID:       "TC-001",
			Type:     artifact.TypeTestCase,
			Verifies: []string{"REQ-001", "REQ-002"},
		},
	}
	// REQ-001 is already verified through a standalone record; the synthetic
	// edge must not duplicate it.
	links := []link.Link{
		{ID: "r1", SourceID: "TC-001", TargetID: "REQ-001", Type: link.TypeVerifies},
	}

	g := Build(artifacts, links)

	from := g.EdgesFrom("TC-001")
	if len(from) != 2 {
		t.Fatalf("expected 2 verifies edges, got %d: %+v", len(from), from)
	}
	for _, e := range from {
		if e.Type != link.TypeVerifies {
			t.Errorf("expected verifies edge, got %+v", e)
		}
	}

	to := g.EdgesTo("REQ-002")
	if len(to) != 1 || to[0].SourceID != "TC-001" {
		t.Errorf("incoming index wrong: %+v", to)
	}
}

func TestBuildRetainsOrphanEdges(t *testing.T) {
	artifacts := []*artifact.Artifact{
		{
			ID:       "REQ-001",
			Type:     artifact.TypeRequirement,
			Embedded: []artifact.LinkRef{{TargetID: "UC-404", Type: "satisfies"}},
		},
	}

	g := Build(artifacts, nil)

	from := g.EdgesFrom("REQ-001")
	if len(from) != 1 || from[0].TargetID != "UC-404" {
		t.Fatalf("orphan edge dropped: %+v", from)
	}
	if g.Has("UC-404") {
		t.Error("missing target should not appear as loaded artifact")
	}
}

func TestBuildRejectsSelfAndEmptyEdges(t *testing.T) {
	artifacts := []*artifact.Artifact{
		{
			ID:   "REQ-001",
			Type: artifact.TypeRequirement,
			Embedded: []artifact.LinkRef{
				{TargetID: "REQ-001", Type: "related_to"},
				{TargetID: "", Type: "satisfies"},
			},
		},
	}
	links := []link.Link{
		{ID: "r1", SourceID: "REQ-002", TargetID: "REQ-002", Type: link.TypeChild},
	}

	g := Build(artifacts, links)
	if g.EdgeCount() != 0 {
		t.Errorf("expected all edges rejected, got %+v", g.Edges())
	}
}

func TestEdgesInsertionOrder(t *testing.T) {
	links := []link.Link{
		{ID: "a", SourceID: "REQ-001", TargetID: "UC-003", Type: link.TypeSatisfies},
		{ID: "b", SourceID: "REQ-001", TargetID: "UC-001", Type: link.TypeSatisfies},
		{ID: "c", SourceID: "REQ-001", TargetID: "UC-002", Type: link.TypeSatisfies},
	}

	g := Build(nil, links)

	from := g.EdgesFrom("REQ-001")
	expected := []string{"UC-003", "UC-001", "UC-002"}
	if len(from) != len(expected) {
		t.Fatalf("expected %d edges, got %d", len(expected), len(from))
	}
	for i, target := range expected {
		if from[i].TargetID != target {
			t.Errorf("position %d: expected %s, got %s", i, target, from[i].TargetID)
		}
	}
}

func TestArtifactsOrderAndLookup(t *testing.T) {
	artifacts := []*artifact.Artifact{
		req("UC-001"),
		req("REQ-001"),
		req("REQ-001"), // duplicate ID, first wins
		req("TC-001"),
	}

	g := Build(artifacts, nil)

	if g.Size() != 3 {
		t.Fatalf("expected 3 artifacts, got %d", g.Size())
	}
	order := g.Artifacts()
	if order[0].ID != "UC-001" || order[1].ID != "REQ-001" || order[2].ID != "TC-001" {
		t.Errorf("ingestion order not preserved: %v", order)
	}

	a, ok := g.Artifact("REQ-001")
	if !ok || a.Type != artifact.TypeRequirement {
		t.Errorf("lookup failed: %+v, %v", a, ok)
	}
	if _, ok := g.Artifact("RISK-001"); ok {
		t.Error("unexpected artifact found")
	}
}
