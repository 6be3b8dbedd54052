package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/conorfennell/lexicard/internal/domain"
)

// GitConfig configures a GitStore.
type GitConfig struct {
	Dir         string
	Origin      string // optional remote pulled before reads and pushed after writes
	AuthorName  string
	AuthorEmail string
}

// GitStore keeps each snapshot in <dir>/<key>.json inside a git work tree and
// commits every change.
type GitStore struct {
	mu     sync.Mutex
	dir    string
	repo   *git.Repository
	author object.Signature
}

// NewGitStore opens the repository at cfg.Dir, cloning cfg.Origin or
// initialising an empty repository when it does not exist yet.
func NewGitStore(cfg GitConfig) (*GitStore, error) {
	if cfg.Dir == "" {
		return nil, errors.New("git store directory is required")
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "lexicard"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "lexicard@localhost"
	}

	repo, err := openOrCreate(cfg.Dir, cfg.Origin)
	if err != nil {
		return nil, err
	}
	return &GitStore{
		dir:    cfg.Dir,
		repo:   repo,
		author: object.Signature{Name: cfg.AuthorName, Email: cfg.AuthorEmail},
	}, nil
}

func openOrCreate(dir, origin string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open repo at %s: %w", dir, err)
	}

	if origin != "" {
		repo, err = git.PlainClone(dir, false, &git.CloneOptions{URL: origin})
		if err == nil {
			return repo, nil
		}
		if !errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return nil, fmt.Errorf("failed to clone repo %s: %w", origin, err)
		}
		// An empty origin clones to nothing; start fresh and push later.
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("failed to clear %s after cloning empty origin: %w", dir, err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init repo at %s: %w", dir, err)
	}
	if origin != "" {
		if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{origin}}); err != nil {
			return nil, fmt.Errorf("failed to add origin %s: %w", origin, err)
		}
	}
	return repo, nil
}

func (s *GitStore) Get(ctx context.Context, key string) (domain.Snapshot, bool, error) {
	if err := ValidateKey(key); err != nil {
		return domain.Snapshot{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pull(ctx); err != nil {
		return domain.Snapshot{}, false, err
	}
	return readSnapshot(filepath.Join(s.dir, key+".json"))
}

func (s *GitStore) Put(ctx context.Context, key string, snap domain.Snapshot) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	name := key + ".json"
	if err := writeSnapshot(filepath.Join(s.dir, name), snap); err != nil {
		return err
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Add(name); err != nil {
		return fmt.Errorf("failed to stage %s: %w", name, err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	author := s.author
	author.When = time.Now()
	if _, err := wt.Commit("sync: update "+key, &git.CommitOptions{Author: &author}); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return s.push(ctx)
}

func (s *GitStore) hasOrigin() bool {
	_, err := s.repo.Remote("origin")
	return err == nil
}

func (s *GitStore) pull(ctx context.Context) error {
	if !s.hasOrigin() {
		return nil
	}
	if _, err := s.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Nothing committed locally yet; nothing to merge into.
		return nil
	}
	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil &&
		!errors.Is(err, git.NoErrAlreadyUpToDate) &&
		!errors.Is(err, transport.ErrEmptyRemoteRepository) &&
		!errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

func (s *GitStore) push(ctx context.Context) error {
	if !s.hasOrigin() {
		return nil
	}
	err := s.repo.PushContext(ctx, &git.PushOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}
