package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/lexicard/internal/domain"
)

// StudyLogs returns the review history ordered by date, card and rating.
func (db *DB) StudyLogs(ctx context.Context, account string) ([]domain.StudyLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, date, rating
		FROM study_logs WHERE account = ?
		ORDER BY date, card_id, rating
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get study logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.StudyLog{}
	for rows.Next() {
		var l domain.StudyLog
		if err := rows.Scan(&l.CardID, &l.Date, &l.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan study log row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// AppendStudyLog records a review. Re-adding an identical log is a no-op.
func (db *DB) AppendStudyLog(ctx context.Context, account string, l domain.StudyLog) error {
	return appendStudyLog(ctx, db.conn, account, l)
}

func appendStudyLog(ctx context.Context, ex execer, account string, l domain.StudyLog) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR IGNORE INTO study_logs (account, card_id, date, rating)
		VALUES (?, ?, ?, ?)
	`, account, l.CardID, l.Date, string(l.Rating))
	if err != nil {
		return fmt.Errorf("failed to append study log for card %s: %w", l.CardID, err)
	}
	return nil
}

// Profile returns the account's profile, or nil if none was saved yet.
func (db *DB) Profile(ctx context.Context, account string) (*domain.UserProfile, error) {
	var (
		p       domain.UserProfile
		updated sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT name, bio, native_language, target_language, xp, level, last_streak_check, profile_last_updated
		FROM profiles WHERE account = ?
	`, account).Scan(
		&p.Name,
		&p.Bio,
		&p.NativeLanguage,
		&p.TargetLanguage,
		&p.XP,
		&p.Level,
		&p.LastStreakCheck,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Profile not created yet
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if p.ProfileLastUpdated, err = fromTS(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile inserts or replaces the account's profile.
func (db *DB) SaveProfile(ctx context.Context, account string, p domain.UserProfile) error {
	return saveProfile(ctx, db.conn, account, p)
}

func saveProfile(ctx context.Context, ex execer, account string, p domain.UserProfile) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO profiles
		(account, name, bio, native_language, target_language, xp, level, last_streak_check, profile_last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		account,
		p.Name,
		p.Bio,
		p.NativeLanguage,
		p.TargetLanguage,
		p.XP,
		p.Level,
		p.LastStreakCheck,
		toTS(p.ProfileLastUpdated),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Achievements returns the earned achievements ordered by id.
func (db *DB) Achievements(ctx context.Context, account string) ([]domain.UserAchievement, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, earned_at
		FROM achievements WHERE account = ?
		ORDER BY id
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	defer rows.Close()

	achievements := []domain.UserAchievement{}
	for rows.Next() {
		var (
			a      domain.UserAchievement
			earned sql.NullString
		)
		if err := rows.Scan(&a.ID, &earned); err != nil {
			return nil, fmt.Errorf("failed to scan achievement row: %w", err)
		}
		if a.EarnedAt, err = fromTS(earned); err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// AddAchievement records an achievement. Earning it again keeps the first date.
func (db *DB) AddAchievement(ctx context.Context, account string, a domain.UserAchievement) error {
	return addAchievement(ctx, db.conn, account, a)
}

func addAchievement(ctx context.Context, ex execer, account string, a domain.UserAchievement) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO achievements (account, id, earned_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account, id) DO NOTHING
	`, account, a.ID, toTS(a.EarnedAt))
	if err != nil {
		return fmt.Errorf("failed to add achievement %s: %w", a.ID, err)
	}
	return nil
}
