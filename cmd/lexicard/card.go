package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexicard/internal/domain"
)

type cardFlags struct {
	answer        string
	pronunciation string
	partOfSpeech  string
	notes         string
	definitions   []string
	examples      []string
}

func (f *cardFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.answer, "answer", "a", "", "Translation or answer")
	cmd.Flags().StringVar(&f.pronunciation, "pronunciation", "", "Pronunciation")
	cmd.Flags().StringVar(&f.partOfSpeech, "pos", "", "Part of speech")
	cmd.Flags().StringVarP(&f.notes, "notes", "n", "", "Free-form notes")
	cmd.Flags().StringArrayVar(&f.definitions, "definition", nil, "Definition (repeatable)")
	cmd.Flags().StringArrayVar(&f.examples, "example", nil, "Example sentence (repeatable)")
}

// apply copies the flags that were set on cmd onto c.
func (f *cardFlags) apply(cmd *cobra.Command, c *domain.Card) {
	changed := cmd.Flags().Changed
	if changed("answer") {
		c.Answer = f.answer
	}
	if changed("pronunciation") {
		c.Pronunciation = f.pronunciation
	}
	if changed("pos") {
		c.PartOfSpeech = f.partOfSpeech
	}
	if changed("notes") {
		c.Notes = f.notes
	}
	if changed("definition") {
		c.Definitions = f.definitions
	}
	if changed("example") {
		c.Examples = f.examples
	}
}

// NewCardCommand creates the card command group.
func NewCardCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Add, show, edit and delete cards",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <deck>",
		Short: "List the cards of a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				d, err := resolveDeck(ctx, a.library, args[0])
				if err != nil {
					return err
				}
				cards, err := a.library.Cards(ctx, d.ID)
				if err != nil {
					return err
				}
				for _, c := range cards {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tdue %s\n", c.ID, c.Term, c.Answer, c.DueDate.Local().Format(domain.DateLayout))
				}
				return nil
			})
		},
	})

	addFlags := &cardFlags{}
	add := &cobra.Command{
		Use:   "add <deck> <term>",
		Short: "Add a card to a deck",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				d, err := resolveDeck(ctx, a.library, args[0])
				if err != nil {
					return err
				}
				c := domain.Card{DeckID: d.ID, Term: args[1]}
				addFlags.apply(cmd, &c)
				c, err = a.library.AddCard(ctx, c)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added card %s\n", c.ID)
				return nil
			})
		},
	}
	addFlags.register(add)
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <card-id>",
		Short: "Show a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				c, err := a.library.Card(ctx, args[0])
				if err != nil {
					return err
				}
				printCard(cmd.OutOrStdout(), c)
				return nil
			})
		},
	})

	editFlags := &cardFlags{}
	var term string
	edit := &cobra.Command{
		Use:   "edit <card-id>",
		Short: "Edit a card's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				c, err := a.library.Card(ctx, args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("term") {
					c.Term = term
				}
				editFlags.apply(cmd, &c)
				if _, err := a.library.UpdateCard(ctx, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated card %s\n", c.ID)
				return nil
			})
		},
	}
	edit.Flags().StringVar(&term, "term", "", "New term")
	editFlags.register(edit)
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <card-id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				if err := a.library.DeleteCard(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted card %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func printCard(w io.Writer, c domain.Card) {
	fmt.Fprintf(w, "%s\n", c.Term)
	if c.Pronunciation != "" {
		fmt.Fprintf(w, "  %s\n", c.Pronunciation)
	}
	if c.PartOfSpeech != "" {
		fmt.Fprintf(w, "  (%s)\n", c.PartOfSpeech)
	}
	if c.Answer != "" {
		fmt.Fprintf(w, "  = %s\n", c.Answer)
	}
	for _, d := range c.Definitions {
		fmt.Fprintf(w, "  - %s\n", d)
	}
	for _, e := range c.Examples {
		fmt.Fprintf(w, "  > %s\n", e)
	}
	if c.Notes != "" {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(c.Notes, "\n", "\n  "))
	}
}
