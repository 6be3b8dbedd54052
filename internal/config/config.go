// Package config loads lexicard settings. Sources, lowest precedence first:
// flag defaults, the YAML config file, LEXICARD_* environment variables and
// flags set on the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/lexicard/internal/logging"
	"github.com/conorfennell/lexicard/internal/remote"
)

// EnvPrefix is stripped from environment variables; LEXICARD_SYNC_KEY sets sync.key.
const EnvPrefix = "LEXICARD_"

// Config is the complete application configuration.
type Config struct {
	Account string         `koanf:"account" validate:"required"`
	DB      string         `koanf:"db" validate:"required"`
	Log     logging.Config `koanf:"log"`
	Sync    Sync           `koanf:"sync"`
	Server  Server         `koanf:"server"`
	Import  Import         `koanf:"import"`
}

// Sync configures the client side of cloud sync. An empty key disables it.
type Sync struct {
	Key      string        `koanf:"key" validate:"omitempty,synckey"`
	Engine   string        `koanf:"engine" validate:"oneof=http file git"`
	URL      string        `koanf:"url"`
	Token    string        `koanf:"token"`
	Dir      string        `koanf:"dir"`
	Debounce time.Duration `koanf:"debounce" validate:"gt=0"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Server configures `lexicard serve`.
type Server struct {
	Addr   string `koanf:"addr" validate:"required"`
	Engine string `koanf:"engine" validate:"oneof=file git"`
	Dir    string `koanf:"dir" validate:"required"`
	Token  string `koanf:"token"`
}

// Import configures bulk word import.
type Import struct {
	Workers    int           `koanf:"workers" validate:"gte=1,lte=64"`
	Attempts   int           `koanf:"attempts" validate:"gte=1,lte=10"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	Dictionary string        `koanf:"dictionary" validate:"omitempty,url"`
	Language   string        `koanf:"language"`
	Audio      bool          `koanf:"audio"`
	Cache      string        `koanf:"cache"`
}

// Flags returns the flag set that carries every configuration key with its
// default. Flag names use dashes where keys use dots: --sync-key is sync.key.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.String("account", "local", "Local account the data belongs to")
	fs.String("db", "lexicard.db", "Path to the SQLite database file")

	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.String("log-file", "", "Write logs to this file instead of stderr")
	fs.Int("log-maxsize", 10, "Rotate the log file after this many megabytes")
	fs.Int("log-maxbackups", 3, "Rotated log files to keep")
	fs.Int("log-maxage", 28, "Days to keep rotated log files")

	fs.String("sync-key", "", "Sync key shared by your devices; empty disables sync")
	fs.String("sync-engine", remote.EngineHTTP, "Remote store: http, file or git")
	fs.String("sync-url", "", "Sync server URL (http) or origin remote (git)")
	fs.String("sync-token", "", "Bearer token for the sync server")
	fs.String("sync-dir", "", "Directory for the file and git remote stores")
	fs.Duration("sync-debounce", 2*time.Second, "Quiet period after a change before syncing")
	fs.Duration("sync-timeout", 30*time.Second, "Timeout for one sync round trip")

	fs.String("server-addr", ":8080", "Address the sync server listens on")
	fs.String("server-engine", remote.EngineFile, "Store behind the sync server: file or git")
	fs.String("server-dir", "snapshots", "Directory the sync server keeps snapshots in")
	fs.String("server-token", "", "Bearer token clients must send")

	fs.Int("import-workers", 3, "Concurrent dictionary lookups during import")
	fs.Int("import-attempts", 3, "Attempts per dictionary lookup")
	fs.Duration("import-timeout", 10*time.Second, "Timeout for one dictionary lookup")
	fs.String("import-dictionary", "https://api.dictionaryapi.dev", "Dictionary API base URL")
	fs.String("import-language", "en", "Dictionary language code")
	fs.Bool("import-audio", false, "Download pronunciation audio")
	fs.String("import-cache", "repos", "Directory git word lists are cloned into")
	return fs
}

// DefaultPath is the config file read when --config is not given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "lexicard.yaml"
	}
	return filepath.Join(dir, "lexicard", "config.yaml")
}

// Load reads the configuration. path names a YAML file; when empty the file
// at DefaultPath is used if it exists. fs must be the set returned by Flags,
// after parsing.
func Load(fs *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	optional := path == ""
	if optional {
		path = DefaultPath()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !optional || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Changed flags override everything; unchanged ones only fill keys no
	// other source set.
	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			return flagKey(f.Name), posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Sync.Engine = strings.ToLower(cfg.Sync.Engine)
	cfg.Server.Engine = strings.ToLower(cfg.Server.Engine)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("synckey", func(fl validator.FieldLevel) bool {
		return remote.ValidateKey(fl.Field().String()) == nil
	})
	return v
}

// Validate checks the configuration values.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Sync.Key == "" {
		return nil
	}
	switch cfg.Sync.Engine {
	case remote.EngineHTTP:
		if cfg.Sync.URL == "" {
			return errors.New("invalid config: sync.url is required by the http engine")
		}
	case remote.EngineFile, remote.EngineGit:
		if cfg.Sync.Dir == "" {
			return fmt.Errorf("invalid config: sync.dir is required by the %s engine", cfg.Sync.Engine)
		}
	}
	return nil
}

// SyncEnabled reports whether a sync key is configured.
func (c *Config) SyncEnabled() bool {
	return c.Sync.Key != ""
}

// Remote returns the remote store settings for the sync client.
func (c *Config) Remote() remote.Config {
	return remote.Config{
		Engine:  c.Sync.Engine,
		URL:     c.Sync.URL,
		Token:   c.Sync.Token,
		Dir:     c.Sync.Dir,
		Timeout: c.Sync.Timeout,
	}
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", ".")
}
