package gitsource

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://github.com/ana/words.git"))
	assert.True(t, IsURL("git@github.com:ana/words.git"))
	assert.True(t, IsURL("file:///srv/words"))
	assert.False(t, IsURL("./words"))
	assert.False(t, IsURL("/home/ana/spanish.md"))

	dir := filepath.Join(t.TempDir(), "words.git")
	require.NoError(t, os.Mkdir(dir, 0o755))
	assert.False(t, IsURL(dir), "an existing local directory is a path")
}

func TestCachePathIsStable(t *testing.T) {
	a := CachePath("/cache", "https://example.com/a.git")
	assert.Equal(t, a, CachePath("/cache", "https://example.com/a.git"))
	assert.NotEqual(t, a, CachePath("/cache", "https://example.com/b.git"))
	assert.Equal(t, "/cache", filepath.Dir(a))
}

func TestSyncClonesAndPulls(t *testing.T) {
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	require.NoError(t, err)
	commit := func(name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(origin, name), []byte(content), 0o644))
		wt, err := repo.Worktree()
		require.NoError(t, err)
		_, err = wt.Add(name)
		require.NoError(t, err)
		_, err = wt.Commit("add "+name, &git.CommitOptions{
			Author: &object.Signature{Name: "ana", Email: "ana@example.com", When: time.Now()},
		})
		require.NoError(t, err)
	}
	commit("spanish.md", "W: hola\nT: hello\n")

	cache := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	path, err := Sync(context.Background(), origin, cache, logger)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(path, "spanish.md"))
	require.NoError(t, err)
	assert.Equal(t, "W: hola\nT: hello\n", string(data))

	// Second sync with nothing new is a no-op pull.
	again, err := Sync(context.Background(), origin, cache, logger)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	commit("italian.md", "W: ciao\nT: hi\n")
	_, err = Sync(context.Background(), origin, cache, logger)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(path, "italian.md"))
}

func TestSyncCloneFailureLeavesNoCheckout(t *testing.T) {
	cache := t.TempDir()
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := Sync(context.Background(), missing, cache, nil)
	require.Error(t, err)
	assert.NoDirExists(t, CachePath(cache, missing))
}
