package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/library"
)

// NewDeckCommand creates the deck command group.
func NewDeckCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Create, list, rename and delete decks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				decks, err := a.library.Decks(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(decks) == 0 {
					fmt.Fprintln(out, "No decks yet. Create one with: lexicard deck add <name>")
					return nil
				}
				for _, d := range decks {
					cards, err := a.library.Cards(ctx, d.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\t%s\t%d cards\n", d.ID, d.Name, len(cards))
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				d, err := a.library.CreateDeck(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created deck %s (%s)\n", d.Name, d.ID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <deck> <new-name>",
		Short: "Rename a deck",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				d, err := resolveDeck(ctx, a.library, args[0])
				if err != nil {
					return err
				}
				d, err = a.library.RenameDeck(ctx, d.ID, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed deck %s to %s\n", d.ID, d.Name)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <deck>",
		Short: "Delete a deck and all of its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				d, err := resolveDeck(ctx, a.library, args[0])
				if err != nil {
					return err
				}
				if err := a.library.DeleteDeck(ctx, d.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted deck %s\n", d.Name)
				return nil
			})
		},
	})

	return cmd
}

// resolveDeck finds a live deck by id, falling back to its name.
func resolveDeck(ctx context.Context, lib *library.Library, ref string) (domain.Deck, error) {
	d, err := lib.Deck(ctx, ref)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, library.ErrDeckNotFound) {
		return domain.Deck{}, err
	}
	return lib.FindDeckByName(ctx, ref)
}
