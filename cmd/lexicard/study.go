package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/progress"
	"github.com/conorfennell/lexicard/internal/study"
)

// NewDueCommand creates the due command.
func NewDueCommand(opts *RootOptions) *cobra.Command {
	var (
		deck  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List cards due for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				deckID, err := deckFilter(ctx, a, deck)
				if err != nil {
					return err
				}
				cards, err := a.study.Due(ctx, deckID, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(cards) == 0 {
					fmt.Fprintln(out, "Nothing due. Well done!")
					return nil
				}
				for _, c := range cards {
					fmt.Fprintf(out, "%s\t%s\n", c.ID, c.Term)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&deck, "deck", "", "Only cards of this deck")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of cards (0 for all)")
	return cmd
}

// NewReviewCommand creates the review command.
func NewReviewCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review <card-id> <again|good|easy>",
		Short: "Record a single review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := domain.ParseRating(args[1])
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				out, err := a.study.Review(ctx, args[0], rating)
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

// NewStudyCommand creates the interactive study session.
func NewStudyCommand(opts *RootOptions) *cobra.Command {
	var (
		deck  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Review due cards interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				deckID, err := deckFilter(ctx, a, deck)
				if err != nil {
					return err
				}

				// Sync in the background while studying; Close flushes the rest.
				loopCtx, stop := context.WithCancel(ctx)
				done := make(chan struct{})
				go func() {
					defer close(done)
					if err := a.sync.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
						a.log.Error("sync loop stopped", "error", err)
					}
				}()
				defer func() {
					stop()
					<-done
				}()

				return runSession(ctx, a.study, deckID, limit, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&deck, "deck", "", "Only cards of this deck")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of cards this session")
	return cmd
}

// runSession shows each due card, waits for the learner to reveal the answer
// and records their rating. An empty line reveals; q quits.
func runSession(ctx context.Context, svc *study.Service, deckID string, limit int, in io.Reader, out io.Writer) error {
	cards, err := svc.Due(ctx, deckID, limit)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Fprintln(out, "Nothing due. Well done!")
		return nil
	}

	input := bufio.NewScanner(in)
	reviewed := 0
	for i, c := range cards {
		fmt.Fprintf(out, "\n[%d/%d] %s\n", i+1, len(cards), c.Term)
		fmt.Fprint(out, "Press enter to reveal (q to quit) ")
		if !input.Scan() || strings.TrimSpace(input.Text()) == "q" {
			break
		}
		printCard(out, c)

		rating, ok := askRating(input, out)
		if !ok {
			break
		}
		outcome, err := svc.Review(ctx, c.ID, rating)
		if err != nil {
			return err
		}
		printOutcome(out, outcome)
		reviewed++
	}

	fmt.Fprintf(out, "\nReviewed %d card(s).\n", reviewed)
	return input.Err()
}

func askRating(input *bufio.Scanner, out io.Writer) (domain.Rating, bool) {
	for {
		fmt.Fprint(out, "How did it go? [a]gain [g]ood [e]asy: ")
		if !input.Scan() {
			return "", false
		}
		text := strings.TrimSpace(input.Text())
		if text == "q" {
			return "", false
		}
		if r, err := domain.ParseRating(text); err == nil {
			return r, true
		}
	}
}

func printOutcome(w io.Writer, o study.Outcome) {
	days := o.Card.Interval
	fmt.Fprintf(w, "Next review in %d day(s), on %s. +%d XP\n", days, o.Card.DueDate.Local().Format(domain.DateLayout), o.XPGained)
	if o.LeveledUp {
		fmt.Fprintf(w, "Level up! You are now level %d.\n", o.Level.Level)
	}
	for _, a := range o.NewAchievements {
		name := a.ID
		if def, ok := progress.Lookup(a.ID); ok {
			name = def.Name
		}
		fmt.Fprintf(w, "Achievement unlocked: %s\n", name)
	}
}

func deckFilter(ctx context.Context, a *app, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	d, err := resolveDeck(ctx, a.library, ref)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show level, streak and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				s, err := a.study.Stats(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Level %d (%.0f%%, %d XP to next)\n", s.Level.Level, s.Level.ProgressPercent, s.Level.XPForNextLevel)
				fmt.Fprintf(out, "XP: %d\n", s.Profile.XP)
				fmt.Fprintf(out, "Streak: %d day(s)\n", s.Streak)
				fmt.Fprintf(out, "Reviews: %d\n", s.Reviews)
				fmt.Fprintf(out, "Active cards: %d\n", s.ActiveCards)
				fmt.Fprintf(out, "Due now: %d\n", s.DueNow)
				if len(s.Achievements) > 0 {
					fmt.Fprintln(out, "Achievements:")
					for _, ach := range s.Achievements {
						name := ach.ID
						if def, ok := progress.Lookup(ach.ID); ok {
							name = def.Name
						}
						fmt.Fprintf(out, "  %s (%s)\n", name, ach.EarnedAt.Local().Format(time.DateOnly))
					}
				}
				return nil
			})
		},
	}
}

// NewProfileCommand creates the profile command.
func NewProfileCommand(opts *RootOptions) *cobra.Command {
	var name, bio, native, target string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app) error {
				flags := cmd.Flags()
				var p domain.UserProfile
				if flags.Changed("name") || flags.Changed("bio") || flags.Changed("native") || flags.Changed("target") {
					var err error
					p, err = a.study.UpdateProfile(ctx, func(p *domain.UserProfile) {
						if flags.Changed("name") {
							p.Name = name
						}
						if flags.Changed("bio") {
							p.Bio = bio
						}
						if flags.Changed("native") {
							p.NativeLanguage = native
						}
						if flags.Changed("target") {
							p.TargetLanguage = target
						}
					})
					if err != nil {
						return err
					}
				} else {
					s, err := a.study.Stats(ctx)
					if err != nil {
						return err
					}
					p = s.Profile
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Name: %s\n", p.Name)
				fmt.Fprintf(out, "Bio: %s\n", p.Bio)
				fmt.Fprintf(out, "Languages: %s -> %s\n", p.NativeLanguage, p.TargetLanguage)
				fmt.Fprintf(out, "Level %d, %d XP\n", p.Level, p.XP)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&bio, "bio", "", "Short bio")
	cmd.Flags().StringVar(&native, "native", "", "Native language")
	cmd.Flags().StringVar(&target, "target", "", "Language you are learning")
	return cmd
}
