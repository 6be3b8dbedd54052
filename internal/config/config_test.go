package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsedFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := Flags()
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
}

func TestDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(parsedFlags(t), "")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Account)
	assert.Equal(t, "lexicard.db", cfg.DB)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSize)
	assert.Equal(t, "http", cfg.Sync.Engine)
	assert.Equal(t, 2*time.Second, cfg.Sync.Debounce)
	assert.Equal(t, 30*time.Second, cfg.Sync.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Import.Workers)
	assert.Equal(t, 3, cfg.Import.Attempts)
	assert.Equal(t, 10*time.Second, cfg.Import.Timeout)
	assert.False(t, cfg.SyncEnabled())
}

func TestPrecedence(t *testing.T) {
	isolate(t)
	path := writeFile(t, `
account: ana
db: /data/ana.db
sync:
  key: ana-phone
  url: https://sync.example.com
  debounce: 5s
import:
  workers: 5
  attempts: 4
`)
	t.Setenv("LEXICARD_IMPORT_WORKERS", "8")
	t.Setenv("LEXICARD_SYNC_KEY", "ana-laptop")

	cfg, err := Load(parsedFlags(t, "--sync-key", "ana-tablet", "--log-level", "debug"), path)
	require.NoError(t, err)

	assert.Equal(t, "ana", cfg.Account, "file overrides default")
	assert.Equal(t, "/data/ana.db", cfg.DB)
	assert.Equal(t, 5*time.Second, cfg.Sync.Debounce)
	assert.Equal(t, 4, cfg.Import.Attempts)
	assert.Equal(t, 8, cfg.Import.Workers, "env overrides file")
	assert.Equal(t, "ana-tablet", cfg.Sync.Key, "changed flag overrides env")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Sync.Timeout, "untouched keys keep flag defaults")
	assert.True(t, cfg.SyncEnabled())

	r := cfg.Remote()
	assert.Equal(t, "http", r.Engine)
	assert.Equal(t, "https://sync.example.com", r.URL)
}

func TestMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(parsedFlags(t), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	isolate(t)
	testCases := []struct {
		name string
		args []string
	}{
		{"bad log level", []string{"--log-level", "loud"}},
		{"zero workers", []string{"--import-workers", "0"}},
		{"bad sync key", []string{"--sync-key", "../etc/passwd"}},
		{"http without url", []string{"--sync-key", "ana"}},
		{"file without dir", []string{"--sync-key", "ana", "--sync-engine", "file"}},
		{"unknown engine", []string{"--sync-engine", "ftp"}},
		{"zero debounce", []string{"--sync-debounce", "0s"}},
		{"bad dictionary url", []string{"--import-dictionary", "not a url"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(parsedFlags(t, tc.args...), "")
			assert.Error(t, err)
		})
	}
}

func TestFileEngineConfig(t *testing.T) {
	isolate(t)
	cfg, err := Load(parsedFlags(t, "--sync-key", "ana", "--sync-engine", "FILE", "--sync-dir", "/tmp/snaps"), "")
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Sync.Engine)
	assert.Equal(t, "/tmp/snaps", cfg.Remote().Dir)
}
