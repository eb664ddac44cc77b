// Package project scaffolds tracyfy projects and maintains the project
// manifest. The manifest carries the project identity and per-type artifact
// membership; artifact content itself lives in the type folders.
package project

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/counter"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
	"github.com/Neizinp/tracyfy-sub003/internal/vcs"
)

const (
	// StateDir holds tracyfy's own records, separated from artifact content.
	StateDir = ".tracyfy"
	// ManifestPath is the project manifest location.
	ManifestPath = ".tracyfy/project.yaml"
	// RulesPath optionally overrides the default path rules.
	RulesPath = ".tracyfy/rules.yaml"

	linksDir     = ".tracyfy/links"
	baselinesDir = ".tracyfy/baselines"
)

// gitignore keeps the local cache database and environment files out of the
// repository.
const gitignore = ".tracyfy/cache/\n.env\n"

// Manifest is the persisted project record.
type Manifest struct {
	ID           string                     `yaml:"id"`
	Name         string                     `yaml:"name"`
	Artifacts    map[artifact.Type][]string `yaml:"artifacts,omitempty"`
	LastModified time.Time                  `yaml:"lastModified"`
}

// Project is an opened tracyfy project.
type Project struct {
	Dir      string
	Files    fsio.FS
	Repo     vcs.VCS
	Matcher  *artifact.Matcher
	Manifest Manifest
}

// Create scaffolds a new project at dir: type folders, counters, state dir,
// manifest, .gitignore, an initialized repository and the initial commit.
func Create(name, dir string) (*Project, error) {
	files, err := fsio.CreateDir(dir)
	if err != nil {
		return nil, err
	}
	return Init(files, vcs.New(files.Root()), name, files.Root())
}

// Init lays out a project over an already-opened filesystem and repository.
func Init(files fsio.FS, repo vcs.VCS, name, dir string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name required")
	}
	exists, err := files.Exists(ManifestPath)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("project already initialized at %s", ManifestPath)
	}

	if err := repo.Init(); err != nil {
		return nil, err
	}

	// Empty folders are invisible to git; a .gitkeep in each makes the
	// layout part of the initial commit.
	var created []string
	keep := func(folder string) {
		created = append(created, folder+"/.gitkeep")
	}
	for _, t := range artifact.Types() {
		keep(artifact.Dir(t))
	}
	keep(counter.CountersDir)
	keep(linksDir)
	keep(baselinesDir)
	for _, path := range created {
		if err := files.WriteFile(path, nil); err != nil {
			return nil, fmt.Errorf("scaffolding %s: %w", path, err)
		}
	}

	if err := files.WriteFile(".gitignore", []byte(gitignore)); err != nil {
		return nil, fmt.Errorf("writing .gitignore: %w", err)
	}
	created = append(created, ".gitignore")

	p := &Project{
		Dir:     dir,
		Files:   files,
		Repo:    repo,
		Matcher: artifact.NewMatcher(artifact.DefaultRules()),
		Manifest: Manifest{
			ID:           uuid.NewString(),
			Name:         name,
			Artifacts:    make(map[artifact.Type][]string),
			LastModified: time.Now().UTC(),
		},
	}
	if err := p.SaveManifest(); err != nil {
		return nil, err
	}
	created = append(created, ManifestPath)

	for _, path := range created {
		if err := repo.Add(path); err != nil {
			return nil, err
		}
	}
	if _, err := repo.Commit(fmt.Sprintf("Initialize project %s", name)); err != nil {
		return nil, err
	}
	return p, nil
}

// Open loads the project at dir.
func Open(dir string) (*Project, error) {
	files, err := fsio.NewDir(dir)
	if err != nil {
		return nil, err
	}
	return OpenFS(files, vcs.New(files.Root()), files.Root())
}

// OpenFS loads a project over an already-opened filesystem and repository.
func OpenFS(files fsio.FS, repo vcs.VCS, dir string) (*Project, error) {
	data, err := files.ReadFile(ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading project manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing project manifest: %w", err)
	}

	matcher := artifact.NewMatcher(artifact.DefaultRules())
	if rulesData, err := files.ReadFile(RulesPath); err == nil {
		matcher, err = artifact.LoadRules(rulesData)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", RulesPath, err)
		}
	}

	return &Project{Dir: dir, Files: files, Repo: repo, Matcher: matcher, Manifest: m}, nil
}

// SaveManifest writes the manifest. Staging and committing is the caller's
// concern; manifest changes ride along with the mutation that caused them.
func (p *Project) SaveManifest() error {
	p.Manifest.LastModified = time.Now().UTC()
	data, err := yaml.Marshal(&p.Manifest)
	if err != nil {
		return fmt.Errorf("encoding project manifest: %w", err)
	}
	if err := p.Files.WriteFile(ManifestPath, data); err != nil {
		return fmt.Errorf("writing project manifest: %w", err)
	}
	return nil
}

// Members returns the sorted artifact IDs of one type.
func (p *Project) Members(t artifact.Type) []string {
	return p.Manifest.Artifacts[t]
}

// HasMember reports whether an ID is in the project membership.
func (p *Project) HasMember(id string) bool {
	t := artifact.TypeFromID(id)
	for _, member := range p.Manifest.Artifacts[t] {
		if member == id {
			return true
		}
	}
	return false
}

// AddMember records an artifact in the membership set, keeping IDs sorted.
// Adding an existing member is a no-op.
func (p *Project) AddMember(t artifact.Type, id string) {
	members := p.Manifest.Artifacts[t]
	for _, member := range members {
		if member == id {
			return
		}
	}
	members = append(members, id)
	sort.Strings(members)
	if p.Manifest.Artifacts == nil {
		p.Manifest.Artifacts = make(map[artifact.Type][]string)
	}
	p.Manifest.Artifacts[t] = members
}

// RemoveMember drops an artifact from the membership set.
func (p *Project) RemoveMember(t artifact.Type, id string) {
	members := p.Manifest.Artifacts[t]
	for i, member := range members {
		if member == id {
			p.Manifest.Artifacts[t] = append(members[:i], members[i+1:]...)
			return
		}
	}
}
