package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

const deckColumns = `id, name, deleted, updated_at`

// Decks returns every deck of the account, tombstones included, ordered by id.
func (db *DB) Decks(ctx context.Context, account string) ([]domain.Deck, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+deckColumns+`
		FROM decks WHERE account = ?
		ORDER BY id
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get decks: %w", err)
	}
	defer rows.Close()

	decks := []domain.Deck{}
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// FindDeck retrieves a deck by id. It returns nil when the deck does not exist.
func (db *DB) FindDeck(ctx context.Context, account, id string) (*domain.Deck, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+deckColumns+`
		FROM decks WHERE account = ? AND id = ?
	`, account, id)

	d, err := scanDeck(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Deck not found
		}
		return nil, err
	}
	return &d, nil
}

// UpsertDeck inserts or replaces a deck.
func (db *DB) UpsertDeck(ctx context.Context, account string, d domain.Deck) error {
	return upsertDeck(ctx, db.conn, account, d)
}

// SoftDeleteDeck marks a deck and all of its cards deleted.
func (db *DB) SoftDeleteDeck(ctx context.Context, account, id string, at time.Time) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE decks SET deleted = 1, updated_at = ?
			WHERE account = ? AND id = ?
		`, toTS(at), account, id)
		if err != nil {
			return fmt.Errorf("failed to delete deck %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("deck %s: %w", id, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE cards SET deleted = 1, updated_at = ?
			WHERE account = ? AND deck_id = ? AND deleted = 0
		`, toTS(at), account, id); err != nil {
			return fmt.Errorf("failed to delete cards of deck %s: %w", id, err)
		}
		return nil
	})
}

func upsertDeck(ctx context.Context, ex execer, account string, d domain.Deck) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO decks (account, id, name, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, account, d.ID, d.Name, boolToInt(d.Deleted), toTS(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert deck %s: %w", d.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeck(s scanner) (domain.Deck, error) {
	var (
		d       domain.Deck
		deleted int
		updated sql.NullString
	)
	if err := s.Scan(&d.ID, &d.Name, &deleted, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("failed to scan deck row: %w", err)
	}
	d.Deleted = deleted != 0
	var err error
	d.UpdatedAt, err = fromTS(updated)
	return d, err
}
