package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/lexicard/internal/domain"
)

// Snapshot reads every collection of the account.
func (db *DB) Snapshot(ctx context.Context, account string) (domain.Snapshot, error) {
	var (
		snap domain.Snapshot
		err  error
	)
	if snap.Decks, err = db.Decks(ctx, account); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Cards, err = db.Cards(ctx, account); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.StudyHistory, err = db.StudyLogs(ctx, account); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.UserProfile, err = db.Profile(ctx, account); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.UserAchievements, err = db.Achievements(ctx, account); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// ReplaceSnapshot overwrites every collection of the account with snap, all
// or nothing.
func (db *DB) ReplaceSnapshot(ctx context.Context, account string, snap domain.Snapshot) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"decks", "cards", "study_logs", "profiles", "achievements"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE account = ?`, account); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		for _, d := range snap.Decks {
			if err := upsertDeck(ctx, tx, account, d); err != nil {
				return err
			}
		}
		for _, c := range snap.Cards {
			if err := upsertCard(ctx, tx, account, c); err != nil {
				return err
			}
		}
		for _, l := range snap.StudyHistory {
			if err := appendStudyLog(ctx, tx, account, l); err != nil {
				return err
			}
		}
		if snap.UserProfile != nil {
			if err := saveProfile(ctx, tx, account, *snap.UserProfile); err != nil {
				return err
			}
		}
		for _, a := range snap.UserAchievements {
			if err := addAchievement(ctx, tx, account, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// Review is everything a single review event writes.
type Review struct {
	Card         domain.Card
	Log          domain.StudyLog
	Profile      domain.UserProfile
	Achievements []domain.UserAchievement
}

// RecordReview writes the updated card, the log entry, the profile and any
// new achievements in one transaction.
func (db *DB) RecordReview(ctx context.Context, account string, r Review) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertCard(ctx, tx, account, r.Card); err != nil {
			return err
		}
		if err := appendStudyLog(ctx, tx, account, r.Log); err != nil {
			return err
		}
		if err := saveProfile(ctx, tx, account, r.Profile); err != nil {
			return err
		}
		for _, a := range r.Achievements {
			if err := addAchievement(ctx, tx, account, a); err != nil {
				return err
			}
		}
		return nil
	})
}
