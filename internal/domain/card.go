// Package domain holds the entities shared by the scheduler, the merge engine,
// the local store and the sync wire format.
package domain

import "time"

const (
	// DefaultEasinessFactor is the easiness factor of a card that has never been reviewed.
	DefaultEasinessFactor = 2.5
	// MinEasinessFactor is the floor every easiness factor is clamped to.
	MinEasinessFactor = 1.3
)

// Card represents a single vocabulary flashcard and its scheduling state.
type Card struct {
	ID            string   `json:"id" validate:"required"`
	DeckID        string   `json:"deckId" validate:"required"`
	Term          string   `json:"term" validate:"required"`
	Answer        string   `json:"answer,omitempty"`
	Pronunciation string   `json:"pronunciation,omitempty"`
	PartOfSpeech  string   `json:"partOfSpeech,omitempty"`
	Definitions   []string `json:"definitions,omitempty"`
	Examples      []string `json:"examples,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Audio         []byte   `json:"audio,omitempty"`

	Repetition     int       `json:"repetition" validate:"gte=0"`
	EasinessFactor float64   `json:"easinessFactor"`
	Interval       int       `json:"interval" validate:"gte=0"`
	DueDate        time.Time `json:"dueDate"`
	LastReviewed   time.Time `json:"lastReviewed,omitzero"`

	Deleted   bool      `json:"deleted"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// NewCard returns a card with the initial scheduling state, due at now.
func NewCard(id, deckID, term string, now time.Time) Card {
	return Card{
		ID:             id,
		DeckID:         deckID,
		Term:           term,
		EasinessFactor: DefaultEasinessFactor,
		DueDate:        now,
		UpdatedAt:      now,
	}
}

// IsDue reports whether the card should be shown at the given time.
func (c Card) IsDue(now time.Time) bool {
	return !c.Deleted && !c.DueDate.After(now)
}

// Deck groups cards. Cards reference their deck by DeckID.
type Deck struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Deleted   bool      `json:"deleted"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
