// Package library manages decks and the cards in them.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/storage"
)

var (
	ErrDuplicateDeck = errors.New("a deck with that name already exists")
	ErrEmptyName     = errors.New("deck name cannot be empty")
	ErrDeckNotFound  = errors.New("deck not found")
	ErrCardNotFound  = errors.New("card not found")
)

// Store is the part of the local store the library needs.
type Store interface {
	Decks(ctx context.Context, account string) ([]domain.Deck, error)
	FindDeck(ctx context.Context, account, id string) (*domain.Deck, error)
	UpsertDeck(ctx context.Context, account string, d domain.Deck) error
	SoftDeleteDeck(ctx context.Context, account, id string, at time.Time) error

	CardsByDeck(ctx context.Context, account, deckID string) ([]domain.Card, error)
	FindCard(ctx context.Context, account, id string) (*domain.Card, error)
	UpsertCard(ctx context.Context, account string, c domain.Card) error
	SoftDeleteCard(ctx context.Context, account, id string, at time.Time) error
}

// Notifier is told after every local mutation.
type Notifier interface {
	Notify()
}

// Library manages the decks and cards of one account.
type Library struct {
	store    Store
	account  string
	notifier Notifier
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Library.
type Option func(*Library)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// New creates a Library over store. notifier may be nil.
func New(store Store, account string, notifier Notifier, opts ...Option) *Library {
	l := &Library{
		store:    store,
		account:  account,
		notifier: notifier,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Decks lists the live decks.
func (l *Library) Decks(ctx context.Context) ([]domain.Deck, error) {
	all, err := l.store.Decks(ctx, l.account)
	if err != nil {
		return nil, err
	}
	decks := make([]domain.Deck, 0, len(all))
	for _, d := range all {
		if !d.Deleted {
			decks = append(decks, d)
		}
	}
	return decks, nil
}

// Deck returns a live deck.
func (l *Library) Deck(ctx context.Context, id string) (domain.Deck, error) {
	d, err := l.store.FindDeck(ctx, l.account, id)
	if err != nil {
		return domain.Deck{}, err
	}
	if d == nil || d.Deleted {
		return domain.Deck{}, fmt.Errorf("%s: %w", id, ErrDeckNotFound)
	}
	return *d, nil
}

// FindDeckByName returns the live deck whose name matches under case folding.
func (l *Library) FindDeckByName(ctx context.Context, name string) (domain.Deck, error) {
	decks, err := l.Decks(ctx)
	if err != nil {
		return domain.Deck{}, err
	}
	key := foldName(name)
	for _, d := range decks {
		if foldName(d.Name) == key {
			return d, nil
		}
	}
	return domain.Deck{}, fmt.Errorf("%q: %w", name, ErrDeckNotFound)
}

// CreateDeck creates a deck with a new id. Names are unique among live decks,
// ignoring case.
func (l *Library) CreateDeck(ctx context.Context, name string) (domain.Deck, error) {
	name = strings.TrimSpace(name)
	if err := l.checkName(ctx, "", name); err != nil {
		return domain.Deck{}, err
	}

	d := domain.Deck{
		ID:        newID(),
		Name:      name,
		UpdatedAt: l.now().UTC(),
	}
	if err := l.validate.Struct(d); err != nil {
		return domain.Deck{}, fmt.Errorf("invalid deck: %w", err)
	}
	if err := l.store.UpsertDeck(ctx, l.account, d); err != nil {
		return domain.Deck{}, err
	}
	l.notify()
	return d, nil
}

// RenameDeck changes a deck's name under the same uniqueness rule.
func (l *Library) RenameDeck(ctx context.Context, id, name string) (domain.Deck, error) {
	d, err := l.Deck(ctx, id)
	if err != nil {
		return domain.Deck{}, err
	}
	name = strings.TrimSpace(name)
	if err := l.checkName(ctx, id, name); err != nil {
		return domain.Deck{}, err
	}
	if d.Name == name {
		return d, nil
	}

	d.Name = name
	d.UpdatedAt = l.now().UTC()
	if err := l.store.UpsertDeck(ctx, l.account, d); err != nil {
		return domain.Deck{}, err
	}
	l.notify()
	return d, nil
}

// DeleteDeck soft-deletes a deck and every card in it.
func (l *Library) DeleteDeck(ctx context.Context, id string) error {
	if _, err := l.Deck(ctx, id); err != nil {
		return err
	}
	if err := l.store.SoftDeleteDeck(ctx, l.account, id, l.now().UTC()); err != nil {
		return err
	}
	l.notify()
	return nil
}

// Cards lists the live cards of a deck.
func (l *Library) Cards(ctx context.Context, deckID string) ([]domain.Card, error) {
	if _, err := l.Deck(ctx, deckID); err != nil {
		return nil, err
	}
	return l.store.CardsByDeck(ctx, l.account, deckID)
}

// Card returns a live card.
func (l *Library) Card(ctx context.Context, id string) (domain.Card, error) {
	c, err := l.store.FindCard(ctx, l.account, id)
	if err != nil {
		return domain.Card{}, err
	}
	if c == nil || c.Deleted {
		return domain.Card{}, fmt.Errorf("%s: %w", id, ErrCardNotFound)
	}
	return *c, nil
}

// AddCard stores a new card with the initial scheduling state, due now.
// The id is generated when empty.
func (l *Library) AddCard(ctx context.Context, c domain.Card) (domain.Card, error) {
	if _, err := l.Deck(ctx, c.DeckID); err != nil {
		return domain.Card{}, err
	}
	if c.ID == "" {
		c.ID = newID()
	}

	card := domain.NewCard(c.ID, c.DeckID, strings.TrimSpace(c.Term), l.now().UTC())
	copyContent(&card, c)
	if err := l.validate.Struct(card); err != nil {
		return domain.Card{}, fmt.Errorf("invalid card: %w", err)
	}
	if err := l.store.UpsertCard(ctx, l.account, card); err != nil {
		return domain.Card{}, err
	}
	l.notify()
	return card, nil
}

// UpdateCard replaces a card's content. Scheduling state and deck membership
// are kept from the stored card.
func (l *Library) UpdateCard(ctx context.Context, c domain.Card) (domain.Card, error) {
	card, err := l.Card(ctx, c.ID)
	if err != nil {
		return domain.Card{}, err
	}

	card.Term = strings.TrimSpace(c.Term)
	copyContent(&card, c)
	card.UpdatedAt = l.now().UTC()
	if err := l.validate.Struct(card); err != nil {
		return domain.Card{}, fmt.Errorf("invalid card: %w", err)
	}
	if err := l.store.UpsertCard(ctx, l.account, card); err != nil {
		return domain.Card{}, err
	}
	l.notify()
	return card, nil
}

// DeleteCard soft-deletes a card.
func (l *Library) DeleteCard(ctx context.Context, id string) error {
	if _, err := l.Card(ctx, id); err != nil {
		return err
	}
	if err := l.store.SoftDeleteCard(ctx, l.account, id, l.now().UTC()); err != nil {
		return err
	}
	l.notify()
	return nil
}

func (l *Library) checkName(ctx context.Context, selfID, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	decks, err := l.Decks(ctx)
	if err != nil {
		return err
	}
	key := foldName(name)
	for _, d := range decks {
		if d.ID != selfID && foldName(d.Name) == key {
			return fmt.Errorf("%q: %w", name, ErrDuplicateDeck)
		}
	}
	return nil
}

func (l *Library) notify() {
	if l.notifier != nil {
		l.notifier.Notify()
	}
}

func copyContent(dst *domain.Card, src domain.Card) {
	dst.Answer = src.Answer
	dst.Pronunciation = src.Pronunciation
	dst.PartOfSpeech = src.PartOfSpeech
	dst.Definitions = src.Definitions
	dst.Examples = src.Examples
	dst.Notes = src.Notes
	dst.Audio = src.Audio
}

func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

var _ Store = (*storage.DB)(nil)
