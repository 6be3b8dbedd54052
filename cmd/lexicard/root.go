package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conorfennell/lexicard/internal/cloudsync"
	"github.com/conorfennell/lexicard/internal/config"
	"github.com/conorfennell/lexicard/internal/library"
	"github.com/conorfennell/lexicard/internal/logging"
	"github.com/conorfennell/lexicard/internal/remote"
	"github.com/conorfennell/lexicard/internal/storage"
	"github.com/conorfennell/lexicard/internal/study"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	flags      *pflag.FlagSet
}

// NewRootCommand creates the root command for the lexicard CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{flags: config.Flags()}

	cmd := &cobra.Command{
		Use:           "lexicard",
		Short:         "Vocabulary flashcards with spaced repetition and cloud sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().AddFlagSet(opts.flags)

	cmd.AddCommand(NewDeckCommand(opts))
	cmd.AddCommand(NewCardCommand(opts))
	cmd.AddCommand(NewDueCommand(opts))
	cmd.AddCommand(NewReviewCommand(opts))
	cmd.AddCommand(NewStudyCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// app is the wired set of components a command works with.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
	db        *storage.DB
	sync      *cloudsync.Orchestrator
	changes   *changeTracker
	library   *library.Library
	study     *study.Service
}

func (o *RootOptions) loadConfig() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(o.flags, o.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, closer, nil
}

// open loads the configuration and wires the local store, the sync
// orchestrator and the services on top of them.
func (o *RootOptions) open() (*app, error) {
	cfg, log, closer, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		closer.Close()
		return nil, err
	}

	var store remote.Store
	if cfg.SyncEnabled() {
		if store, err = remote.New(cfg.Remote()); err != nil {
			db.Close()
			closer.Close()
			return nil, fmt.Errorf("failed to open remote store: %w", err)
		}
	}

	orch, err := cloudsync.New(db, store, &cloudsync.Config{
		Account:  cfg.Account,
		Key:      cfg.Sync.Key,
		Debounce: cfg.Sync.Debounce,
		Timeout:  cfg.Sync.Timeout,
		Logger:   log,
	})
	if err != nil {
		db.Close()
		closer.Close()
		return nil, err
	}

	changes := &changeTracker{next: orch}
	return &app{
		cfg:       cfg,
		log:       log,
		logCloser: closer,
		db:        db,
		sync:      orch,
		changes:   changes,
		library:   library.New(db, cfg.Account, changes),
		study:     study.New(db, cfg.Account, changes),
	}, nil
}

// Close pushes pending local changes when sync is enabled, then releases the
// store and the log output.
func (a *app) Close(ctx context.Context) {
	if a.cfg.SyncEnabled() && a.changes.dirty() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Sync.Timeout+5*time.Second)
		if err := a.sync.SyncNow(ctx); err != nil {
			a.log.Warn("changes saved locally but not synced", "error", err)
		}
		cancel()
	}
	a.db.Close()
	a.logCloser.Close()
}

// changeTracker forwards change notifications and remembers that one happened.
type changeTracker struct {
	next    interface{ Notify() }
	changed atomic.Bool
}

func (c *changeTracker) Notify() {
	c.changed.Store(true)
	c.next.Notify()
}

func (c *changeTracker) dirty() bool {
	return c.changed.Load()
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := opts.open()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}
