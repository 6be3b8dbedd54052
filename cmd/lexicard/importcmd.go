package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexicard/internal/dictionary"
	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/importer"
	"github.com/conorfennell/lexicard/internal/importer/gitsource"
	"github.com/conorfennell/lexicard/internal/library"
)

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	var (
		deck    string
		create  bool
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "import <file|dir|git-url>",
		Short: "Import a W:/T:/N: word list into a deck",
		Long: `Import words from a markdown word list, a directory of them, or a git
repository. Each entry starts with "W: <term>" and may carry "T: <translation>"
and "N: <notes>". Words are looked up in the dictionary to add pronunciation,
definitions and examples. Re-importing a word updates the existing card.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				d, err := importDeck(ctx, a, deck, create)
				if err != nil {
					return err
				}

				src := args[0]
				if gitsource.IsURL(src) {
					if src, err = gitsource.Sync(ctx, src, a.cfg.Import.Cache, a.log); err != nil {
						return err
					}
				}
				entries, err := importer.ParsePath(src)
				if err != nil {
					return err
				}

				var dict importer.Dictionary
				if !offline {
					dict = dictionary.NewClient(dictionary.Config{
						BaseURL:  a.cfg.Import.Dictionary,
						Language: a.cfg.Import.Language,
						Timeout:  a.cfg.Import.Timeout,
					})
				}
				im := importer.New(a.db, dict, a.changes, &importer.Config{
					Account:  a.cfg.Account,
					Workers:  a.cfg.Import.Workers,
					Attempts: a.cfg.Import.Attempts,
					Timeout:  a.cfg.Import.Timeout,
					Backoff:  importer.DefaultConfig().Backoff,
					Audio:    a.cfg.Import.Audio,
					Logger:   a.log,
				})
				report, err := im.Import(ctx, d.ID, entries)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d card(s) into %s, %d failed.\n", report.Imported, d.Name, report.Failed)
				for _, r := range report.Errors() {
					fmt.Fprintf(out, "  %s: %v\n", r.Term, r.Err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&deck, "deck", "", "Deck to import into (id or name)")
	cmd.Flags().BoolVar(&create, "create", false, "Create the deck if it does not exist")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip dictionary lookups")
	_ = cmd.MarkFlagRequired("deck")
	return cmd
}

func importDeck(ctx context.Context, a *app, ref string, create bool) (domain.Deck, error) {
	d, err := resolveDeck(ctx, a.library, ref)
	if err == nil || !create || !errors.Is(err, library.ErrDeckNotFound) {
		return d, err
	}
	return a.library.CreateDeck(ctx, ref)
}
