// Package remote holds the key-value stores that keep one snapshot blob per
// sync key: an HTTP client for the lexicard server, a directory of JSON files
// and a git work tree.
package remote

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

const (
	EngineHTTP = "http"
	EngineFile = "file"
	EngineGit  = "git"
)

var (
	// ErrInvalidKey is returned for sync keys that are not safe file names.
	ErrInvalidKey = errors.New("invalid sync key")

	keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)
)

// Store keeps whole snapshots by key. There are no partial updates.
type Store interface {
	// Get returns the stored snapshot and whether one exists.
	Get(ctx context.Context, key string) (domain.Snapshot, bool, error)
	// Put replaces the snapshot stored under key.
	Put(ctx context.Context, key string, snap domain.Snapshot) error
}

// Merger is implemented by stores that merge server-side: the store fetches
// its copy, merges the client snapshot into it, stores and returns the result.
type Merger interface {
	Merge(ctx context.Context, key string, client domain.Snapshot) (domain.Snapshot, error)
}

// ValidateKey rejects keys that cannot be used as a file name or URL segment.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Config selects and configures a Store.
type Config struct {
	Engine  string
	URL     string
	Token   string
	Dir     string
	Timeout time.Duration
}

// New builds the Store named by cfg.Engine.
func New(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineHTTP:
		return NewHTTPStore(HTTPConfig{BaseURL: cfg.URL, Token: cfg.Token, Timeout: cfg.Timeout})
	case EngineFile:
		return NewFileStore(cfg.Dir)
	case EngineGit:
		return NewGitStore(GitConfig{Dir: cfg.Dir, Origin: cfg.URL})
	default:
		return nil, errors.New("unsupported remote engine: " + cfg.Engine)
	}
}
