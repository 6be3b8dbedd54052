package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexicard/internal/remote"
	"github.com/conorfennell/lexicard/internal/server"
)

// NewSyncCommand creates the one-shot sync command.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local data with the remote store now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				if err := a.sync.SyncNow(ctx); err != nil {
					return err
				}
				status := a.sync.Status()
				if status.Applied {
					fmt.Fprintln(cmd.OutOrStdout(), "Synced: local data updated from the cloud.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Synced: already up to date.")
				}
				return nil
			})
		},
	}
}

// NewServeCommand creates the sync server command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closer, err := opts.loadConfig()
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := remote.New(remote.Config{Engine: cfg.Server.Engine, Dir: cfg.Server.Dir})
			if err != nil {
				return fmt.Errorf("failed to open snapshot store: %w", err)
			}
			srv := server.NewServer(store, server.Config{Token: cfg.Server.Token, Logger: log})

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
}
