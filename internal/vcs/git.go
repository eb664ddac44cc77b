package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Fixed commit identity for all repository writes.
const (
	SignatureName  = "Tracyfy"
	SignatureEmail = "tracyfy@local"
)

// DefaultRemote is the remote used for counter synchronization.
const DefaultRemote = "origin"

// Git implements VCS on a local git repository using go-git.
type Git struct {
	path   string
	remote string
	repo   *git.Repository
}

// Option configures a Git instance.
type Option func(*Git)

// WithRemote sets the remote name used for Push and Pull.
func WithRemote(name string) Option {
	return func(g *Git) {
		g.remote = name
	}
}

// New creates a Git handle for a repository directory. The repository is
// opened lazily; call Init to create one.
func New(path string, opts ...Option) *Git {
	g := &Git{path: path, remote: DefaultRemote}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Git) open() (*git.Repository, error) {
	if g.repo != nil {
		return g.repo, nil
	}
	repo, err := git.PlainOpen(g.path)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	g.repo = repo
	return repo, nil
}

// Init creates the repository if it does not exist yet.
func (g *Git) Init() error {
	repo, err := git.PlainInit(g.path, false)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryAlreadyExists) {
			return nil
		}
		return fmt.Errorf("initializing repository: %w", err)
	}
	g.repo = repo
	return nil
}

// Add stages a path, including its removal if the file is gone.
func (g *Git) Add(path string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if _, err := worktree.Add(path); err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}
	return nil
}

// Commit records staged changes under the fixed signature.
func (g *Git) Commit(message string) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  SignatureName,
			Email: SignatureEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// Tag creates an annotated tag pointing at HEAD.
func (g *Git) Tag(name, message string) error {
	repo, err := g.open()
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}

	_, err = repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Message: message,
		Tagger: &object.Signature{
			Name:  SignatureName,
			Email: SignatureEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("creating tag %s: %w", name, err)
	}
	return nil
}

// ListTags returns all tags sorted by name. Annotated tags carry their
// message and resolved target commit.
func (g *Git) ListTags() ([]Tag, error) {
	repo, err := g.open()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	var tags []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tag := Tag{Name: ref.Name().Short(), Hash: ref.Hash().String()}

		if obj, err := repo.TagObject(ref.Hash()); err == nil {
			tag.Message = obj.Message
			tag.Hash = obj.Target.String()
		}
		tags = append(tags, tag)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// Log returns commits newest-first, optionally restricted to one path.
func (g *Git) Log(path string, limit int) ([]Commit, error) {
	repo, err := g.open()
	if err != nil {
		return nil, err
	}

	opts := &git.LogOptions{}
	if path != "" {
		opts.FileName = &path
	}
	iter, err := repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	for {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating log: %w", err)
		}
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			Message: c.Message,
			When:    c.Author.When,
		})
		if limit > 0 && len(commits) >= limit {
			break
		}
	}
	return commits, nil
}

// ReadFileAtCommit returns a file's content as stored at a commit.
func (g *Git) ReadFileAtCommit(commitHash, path string) ([]byte, error) {
	repo, err := g.open()
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(plumbing.NewHash(commitHash))
	if err != nil {
		return nil, fmt.Errorf("resolving commit %s: %w", commitHash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}

	f, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("getting file %s: %w", path, err)
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return content, nil
}

// ListFilesAtCommit returns all file paths in a commit's tree, sorted.
func (g *Git) ListFilesAtCommit(commitHash string) ([]string, error) {
	repo, err := g.open()
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(plumbing.NewHash(commitHash))
	if err != nil {
		return nil, fmt.Errorf("resolving commit %s: %w", commitHash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}

	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tree: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Head returns the current HEAD commit hash.
func (g *Git) Head() (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// Push updates the configured remote. Already-up-to-date is not an error.
func (g *Git) Push(ctx context.Context) error {
	repo, err := g.open()
	if err != nil {
		return err
	}
	err = repo.PushContext(ctx, &git.PushOptions{RemoteName: g.remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing to %s: %w", g.remote, err)
	}
	return nil
}

// Pull fast-forwards from the configured remote. Already-up-to-date is not
// an error.
func (g *Git) Pull(ctx context.Context) error {
	repo, err := g.open()
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: g.remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pulling from %s: %w", g.remote, err)
	}
	return nil
}
