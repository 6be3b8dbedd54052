package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/conorfennell/lexicard/internal/domain"
)

// FileStore keeps each snapshot in <dir>/<key>.json.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create file store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Get(ctx context.Context, key string) (domain.Snapshot, bool, error) {
	if err := ValidateKey(key); err != nil {
		return domain.Snapshot{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readSnapshot(filepath.Join(s.dir, key+".json"))
}

func (s *FileStore) Put(ctx context.Context, key string, snap domain.Snapshot) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeSnapshot(filepath.Join(s.dir, key+".json"), snap)
}

func readSnapshot(path string) (domain.Snapshot, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to decode snapshot %s: %w", filepath.Base(path), err)
	}
	return snap, true, nil
}

// writeSnapshot writes through a temp file and rename so readers never see
// a partial blob.
func writeSnapshot(path string, snap domain.Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
