package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/storage"
)

var now = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify() { c.n++ }

func newLibrary(t *testing.T) (*Library, *storage.DB, *countingNotifier) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "lexicard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	n := &countingNotifier{}
	return New(db, "local", n, WithClock(func() time.Time { return now })), db, n
}

func TestCreateDeck(t *testing.T) {
	ctx := context.Background()
	lib, _, n := newLibrary(t)

	d, err := lib.CreateDeck(ctx, "  Spanish ")
	require.NoError(t, err)
	assert.Equal(t, "Spanish", d.Name)
	assert.True(t, d.UpdatedAt.Equal(now))
	parsed, err := uuid.Parse(d.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Equal(t, 1, n.n)

	_, err = lib.CreateDeck(ctx, "SPANISH")
	assert.ErrorIs(t, err, ErrDuplicateDeck)
	_, err = lib.CreateDeck(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Equal(t, 1, n.n, "rejected creates do not notify")

	found, err := lib.FindDeckByName(ctx, "spanish")
	require.NoError(t, err)
	assert.Equal(t, d.ID, found.ID)
}

func TestDeckNamesFoldUnicode(t *testing.T) {
	ctx := context.Background()
	lib, _, _ := newLibrary(t)

	_, err := lib.CreateDeck(ctx, "Straße")
	require.NoError(t, err)
	_, err = lib.CreateDeck(ctx, "STRASSE")
	assert.ErrorIs(t, err, ErrDuplicateDeck)
}

func TestDeletedDeckFreesName(t *testing.T) {
	ctx := context.Background()
	lib, _, _ := newLibrary(t)

	d, err := lib.CreateDeck(ctx, "Italian")
	require.NoError(t, err)
	require.NoError(t, lib.DeleteDeck(ctx, d.ID))

	again, err := lib.CreateDeck(ctx, "italian")
	require.NoError(t, err)
	assert.NotEqual(t, d.ID, again.ID)

	decks, err := lib.Decks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, again.ID, decks[0].ID)
}

func TestRenameDeck(t *testing.T) {
	ctx := context.Background()
	lib, _, n := newLibrary(t)

	es, err := lib.CreateDeck(ctx, "Spanish")
	require.NoError(t, err)
	_, err = lib.CreateDeck(ctx, "French")
	require.NoError(t, err)

	_, err = lib.RenameDeck(ctx, es.ID, "french")
	assert.ErrorIs(t, err, ErrDuplicateDeck)

	renamed, err := lib.RenameDeck(ctx, es.ID, "Español")
	require.NoError(t, err)
	assert.Equal(t, "Español", renamed.Name)

	// Changing only the case of its own name is allowed.
	_, err = lib.RenameDeck(ctx, es.ID, "ESPAÑOL")
	require.NoError(t, err)
	assert.Equal(t, 4, n.n)

	_, err = lib.RenameDeck(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrDeckNotFound)
}

func TestCardLifecycle(t *testing.T) {
	ctx := context.Background()
	lib, db, n := newLibrary(t)

	deck, err := lib.CreateDeck(ctx, "German")
	require.NoError(t, err)

	card, err := lib.AddCard(ctx, domain.Card{
		DeckID:     deck.ID,
		Term:       " der Hund ",
		Answer:     "the dog",
		Repetition: 9, // ignored on create
		Interval:   30,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "der Hund", card.Term)
	assert.Zero(t, card.Repetition)
	assert.Zero(t, card.Interval)
	assert.Equal(t, domain.DefaultEasinessFactor, card.EasinessFactor)
	assert.True(t, card.DueDate.Equal(now))

	// Simulate a review having happened.
	stored, err := db.FindCard(ctx, "local", card.ID)
	require.NoError(t, err)
	stored.Repetition = 3
	stored.Interval = 15
	require.NoError(t, db.UpsertCard(ctx, "local", *stored))

	updated, err := lib.UpdateCard(ctx, domain.Card{
		ID:         card.ID,
		Term:       "der Hund",
		Answer:     "the hound",
		Notes:      "masculine",
		Repetition: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "the hound", updated.Answer)
	assert.Equal(t, 3, updated.Repetition, "scheduling state is kept")
	assert.Equal(t, 15, updated.Interval)
	assert.Equal(t, deck.ID, updated.DeckID)

	cards, err := lib.Cards(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	require.NoError(t, lib.DeleteCard(ctx, card.ID))
	_, err = lib.Card(ctx, card.ID)
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.ErrorIs(t, lib.DeleteCard(ctx, card.ID), ErrCardNotFound)

	assert.Equal(t, 4, n.n)
}

func TestAddCardValidation(t *testing.T) {
	ctx := context.Background()
	lib, _, n := newLibrary(t)

	_, err := lib.AddCard(ctx, domain.Card{DeckID: "nope", Term: "x"})
	assert.ErrorIs(t, err, ErrDeckNotFound)

	deck, err := lib.CreateDeck(ctx, "Japanese")
	require.NoError(t, err)
	_, err = lib.AddCard(ctx, domain.Card{DeckID: deck.ID, Term: "  "})
	assert.ErrorContains(t, err, "invalid card")

	require.NoError(t, lib.DeleteDeck(ctx, deck.ID))
	_, err = lib.AddCard(ctx, domain.Card{DeckID: deck.ID, Term: "neko"})
	assert.ErrorIs(t, err, ErrDeckNotFound)
	assert.Equal(t, 2, n.n)
}

func TestDeleteDeckCascades(t *testing.T) {
	ctx := context.Background()
	lib, db, _ := newLibrary(t)

	deck, err := lib.CreateDeck(ctx, "Korean")
	require.NoError(t, err)
	card, err := lib.AddCard(ctx, domain.Card{DeckID: deck.ID, Term: "mul", Answer: "water"})
	require.NoError(t, err)

	require.NoError(t, lib.DeleteDeck(ctx, deck.ID))

	stored, err := db.FindCard(ctx, "local", card.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
	_, err = lib.Cards(ctx, deck.ID)
	assert.ErrorIs(t, err, ErrDeckNotFound)
}
