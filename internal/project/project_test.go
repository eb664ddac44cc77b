package project

import (
	"strings"
	"testing"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
	"github.com/Neizinp/tracyfy-sub003/internal/vcs"
)

func TestInitScaffold(t *testing.T) {
	files := fsio.NewMem()
	repo := vcs.NewFake(files)

	p, err := Init(files, repo, "pump", "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if p.Manifest.Name != "pump" {
		t.Errorf("Name = %s", p.Manifest.Name)
	}
	if p.Manifest.ID == "" {
		t.Error("manifest ID not assigned")
	}
	if !repo.Initialized {
		t.Error("repository not initialized")
	}

	wantFiles := []string{
		"requirements/.gitkeep",
		"usecases/.gitkeep",
		"testcases/.gitkeep",
		"information/.gitkeep",
		"risks/.gitkeep",
		"counters/.gitkeep",
		".tracyfy/links/.gitkeep",
		".tracyfy/baselines/.gitkeep",
		".gitignore",
		ManifestPath,
	}
	for _, path := range wantFiles {
		exists, err := files.Exists(path)
		if err != nil {
			t.Fatalf("Exists %s: %v", path, err)
		}
		if !exists {
			t.Errorf("scaffold missing %s", path)
		}
	}

	ignore, err := files.ReadFile(".gitignore")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(ignore), ".tracyfy/cache/") {
		t.Errorf(".gitignore = %q", ignore)
	}

	if len(repo.Commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(repo.Commits))
	}
	if repo.Commits[0].Message != "Initialize project pump" {
		t.Errorf("initial commit message = %q", repo.Commits[0].Message)
	}
}

func TestInitRejectsExistingProject(t *testing.T) {
	files := fsio.NewMem()
	repo := vcs.NewFake(files)

	if _, err := Init(files, repo, "pump", ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := Init(files, repo, "pump", ""); err == nil {
		t.Error("second Init succeeded, want error")
	}
}

func TestInitRequiresName(t *testing.T) {
	files := fsio.NewMem()
	repo := vcs.NewFake(files)
	if _, err := Init(files, repo, "", ""); err == nil {
		t.Error("Init with empty name succeeded, want error")
	}
}

func TestOpenFS(t *testing.T) {
	files := fsio.NewMem()
	repo := vcs.NewFake(files)

	created, err := Init(files, repo, "pump", "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	opened, err := OpenFS(files, repo, "")
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	if opened.Manifest.ID != created.Manifest.ID || opened.Manifest.Name != "pump" {
		t.Errorf("manifest = %+v", opened.Manifest)
	}

	// Default rules apply when no rules file exists.
	if typ, ok := opened.Matcher.Match("requirements/REQ-001.md"); !ok || typ != artifact.TypeRequirement {
		t.Errorf("Match = %v, %v", typ, ok)
	}
}

func TestOpenFSWithoutManifest(t *testing.T) {
	files := fsio.NewMem()
	repo := vcs.NewFake(files)
	if _, err := OpenFS(files, repo, ""); err == nil {
		t.Error("OpenFS without manifest succeeded, want error")
	}
}

func TestOpenFSCustomRules(t *testing.T) {
	files := fsio.NewMem()
	repo := vcs.NewFake(files)
	if _, err := Init(files, repo, "pump", ""); err != nil {
		t.Fatalf("Init: %v", err)
	}

	rules := "rules:\n  - type: requirement\n    paths: [\"specs/**/*.md\"]\n"
	if err := files.WriteFile(RulesPath, []byte(rules)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := OpenFS(files, repo, "")
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	if typ, ok := p.Matcher.Match("specs/safety/REQ-001.md"); !ok || typ != artifact.TypeRequirement {
		t.Errorf("custom rule Match = %v, %v", typ, ok)
	}
	if _, ok := p.Matcher.Match("requirements/REQ-001.md"); ok {
		t.Error("default rule still active after override")
	}
}

func TestMembership(t *testing.T) {
	files := fsio.NewMem()
	repo := vcs.NewFake(files)
	p, err := Init(files, repo, "pump", "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	p.AddMember(artifact.TypeRequirement, "REQ-002")
	p.AddMember(artifact.TypeRequirement, "REQ-001")
	p.AddMember(artifact.TypeRequirement, "REQ-002")

	members := p.Members(artifact.TypeRequirement)
	if len(members) != 2 || members[0] != "REQ-001" || members[1] != "REQ-002" {
		t.Errorf("Members = %v", members)
	}
	if !p.HasMember("REQ-001") || p.HasMember("REQ-009") {
		t.Error("HasMember misreports")
	}

	p.RemoveMember(artifact.TypeRequirement, "REQ-001")
	members = p.Members(artifact.TypeRequirement)
	if len(members) != 1 || members[0] != "REQ-002" {
		t.Errorf("Members after remove = %v", members)
	}

	if err := p.SaveManifest(); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}
	reopened, err := OpenFS(files, repo, "")
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	if !reopened.HasMember("REQ-002") {
		t.Error("membership not persisted")
	}
}
