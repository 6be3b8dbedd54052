package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

// ErrNotFound is returned by mutations that target a missing row.
var ErrNotFound = errors.New("not found")

const cardColumns = `id, deck_id, term, answer, pronunciation, part_of_speech, definitions, examples, notes, audio,
	repetition, easiness_factor, interval_days, due_date, last_reviewed, deleted, updated_at`

// Cards returns every card of the account, tombstones included, ordered by id.
func (db *DB) Cards(ctx context.Context, account string) ([]domain.Card, error) {
	return db.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE account = ?
		ORDER BY id
	`, account)
}

// CardsByDeck returns the non-deleted cards of a deck.
func (db *DB) CardsByDeck(ctx context.Context, account, deckID string) ([]domain.Card, error) {
	return db.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE account = ? AND deck_id = ? AND deleted = 0
		ORDER BY term
	`, account, deckID)
}

// DueCards returns up to limit non-deleted cards of non-deleted decks whose
// due date is at or before now, earliest first. An empty deckID means all decks.
func (db *DB) DueCards(ctx context.Context, account string, now time.Time, deckID string, limit int) ([]domain.Card, error) {
	if limit <= 0 {
		limit = -1
	}
	return db.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE account = ? AND deleted = 0 AND due_date <= ?
		  AND (? = '' OR deck_id = ?)
		  AND deck_id IN (SELECT id FROM decks WHERE account = cards.account AND deleted = 0)
		ORDER BY due_date, id
		LIMIT ?
	`, account, toTS(now), deckID, deckID, limit)
}

// FindCard retrieves a card by id. It returns nil when the card does not exist.
func (db *DB) FindCard(ctx context.Context, account, id string) (*domain.Card, error) {
	cards, err := db.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE account = ? AND id = ?
	`, account, id)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil // Card not found
	}
	return &cards[0], nil
}

// UpsertCard inserts or replaces a card.
func (db *DB) UpsertCard(ctx context.Context, account string, c domain.Card) error {
	return upsertCard(ctx, db.conn, account, c)
}

// UpsertCards writes all cards in a single transaction.
func (db *DB) UpsertCards(ctx context.Context, account string, cards []domain.Card) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range cards {
			if err := upsertCard(ctx, tx, account, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// SoftDeleteCard marks a card deleted.
func (db *DB) SoftDeleteCard(ctx context.Context, account, id string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards SET deleted = 1, updated_at = ?
		WHERE account = ? AND id = ?
	`, toTS(at), account, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return nil
}

func upsertCard(ctx context.Context, ex execer, account string, c domain.Card) error {
	definitions, err := encodeList(c.Definitions)
	if err != nil {
		return err
	}
	examples, err := encodeList(c.Examples)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO cards (account, `+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		account,
		c.ID,
		c.DeckID,
		c.Term,
		c.Answer,
		c.Pronunciation,
		c.PartOfSpeech,
		definitions,
		examples,
		c.Notes,
		c.Audio,
		c.Repetition,
		c.EasinessFactor,
		c.Interval,
		toTS(c.DueDate),
		toTS(c.LastReviewed),
		boolToInt(c.Deleted),
		toTS(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card %s: %w", c.ID, err)
	}
	return nil
}

func (db *DB) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		var (
			c                     domain.Card
			definitions, examples string
			due, last, updated    sql.NullString
			deleted               int
		)
		if err := rows.Scan(
			&c.ID,
			&c.DeckID,
			&c.Term,
			&c.Answer,
			&c.Pronunciation,
			&c.PartOfSpeech,
			&definitions,
			&examples,
			&c.Notes,
			&c.Audio,
			&c.Repetition,
			&c.EasinessFactor,
			&c.Interval,
			&due,
			&last,
			&deleted,
			&updated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		c.Deleted = deleted != 0
		if c.Definitions, err = decodeList(definitions); err != nil {
			return nil, fmt.Errorf("card %s definitions: %w", c.ID, err)
		}
		if c.Examples, err = decodeList(examples); err != nil {
			return nil, fmt.Errorf("card %s examples: %w", c.ID, err)
		}
		if c.DueDate, err = fromTS(due); err != nil {
			return nil, err
		}
		if c.LastReviewed, err = fromTS(last); err != nil {
			return nil, err
		}
		if c.UpdatedAt, err = fromTS(updated); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func encodeList(items []string) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	var items []string
	if s == "" || s == "[]" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	return items, nil
}
