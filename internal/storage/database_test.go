package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexicard/internal/domain"
)

const account = "acct"

var now = time.Date(2026, 10, 14, 9, 30, 0, 123456789, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "lexicard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleCard(id, deckID string) domain.Card {
	c := domain.NewCard(id, deckID, "der Hund", now)
	c.Answer = "the dog"
	c.Pronunciation = "/hʊnt/"
	c.PartOfSpeech = "noun"
	c.Definitions = []string{"a domesticated carnivore"}
	c.Examples = []string{"Der Hund bellt.", "Mein Hund schläft."}
	c.Notes = "masculine"
	c.Audio = []byte{0x49, 0x44, 0x33}
	return c
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lexicard.db")
	for i := 0; i < 3; i++ {
		db, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, db.Close())
	}
}

func TestCardRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	c := sampleCard("c1", "d1")
	c.Repetition = 2
	c.Interval = 6
	c.EasinessFactor = 2.36
	c.LastReviewed = now.Add(-time.Hour)
	require.NoError(t, db.UpsertCard(ctx, account, c))

	got, err := db.FindCard(ctx, account, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.Term, got.Term)
	assert.Equal(t, c.Definitions, got.Definitions)
	assert.Equal(t, c.Examples, got.Examples)
	assert.Equal(t, c.Audio, got.Audio)
	assert.Equal(t, 2.36, got.EasinessFactor)
	assert.True(t, got.DueDate.Equal(c.DueDate))
	assert.True(t, got.LastReviewed.Equal(c.LastReviewed))

	missing, err := db.FindCard(ctx, account, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	other, err := db.FindCard(ctx, "someone-else", "c1")
	require.NoError(t, err)
	assert.Nil(t, other, "accounts are isolated")
}

func TestSoftDeleteDeckCascades(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertDeck(ctx, account, domain.Deck{ID: "d1", Name: "German"}))
	require.NoError(t, db.UpsertCards(ctx, account, []domain.Card{sampleCard("c1", "d1"), sampleCard("c2", "d1")}))

	require.NoError(t, db.SoftDeleteDeck(ctx, account, "d1", now))

	decks, err := db.Decks(ctx, account)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.True(t, decks[0].Deleted, "tombstone kept")

	cards, err := db.Cards(ctx, account)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	for _, c := range cards {
		assert.True(t, c.Deleted)
	}

	assert.ErrorIs(t, db.SoftDeleteDeck(ctx, account, "missing", now), ErrNotFound)
	assert.ErrorIs(t, db.SoftDeleteCard(ctx, account, "missing", now), ErrNotFound)
}

func TestDueCards(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertDeck(ctx, account, domain.Deck{ID: "d1", Name: "German"}))
	require.NoError(t, db.UpsertDeck(ctx, account, domain.Deck{ID: "d2", Name: "Gone", Deleted: true}))

	overdue := sampleCard("c1", "d1")
	overdue.DueDate = now.Add(-48 * time.Hour)
	dueNow := sampleCard("c2", "d1")
	dueNow.DueDate = now
	future := sampleCard("c3", "d1")
	future.DueDate = now.Add(24 * time.Hour)
	deleted := sampleCard("c4", "d1")
	deleted.Deleted = true
	inDeletedDeck := sampleCard("c5", "d2")
	require.NoError(t, db.UpsertCards(ctx, account, []domain.Card{future, dueNow, overdue, deleted, inDeletedDeck}))

	due, err := db.DueCards(ctx, account, now, "", 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "c1", due[0].ID)
	assert.Equal(t, "c2", due[1].ID)

	limited, err := db.DueCards(ctx, account, now, "d1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := db.DueCards(ctx, account, now, "d2", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStudyLogsAndAchievementsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	l := domain.StudyLog{CardID: "c1", Date: "2026-10-14", Rating: domain.Good}
	require.NoError(t, db.AppendStudyLog(ctx, account, l))
	require.NoError(t, db.AppendStudyLog(ctx, account, l))
	logs, err := db.StudyLogs(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, []domain.StudyLog{l}, logs)

	first := domain.UserAchievement{ID: "first_review", EarnedAt: now}
	require.NoError(t, db.AddAchievement(ctx, account, first))
	require.NoError(t, db.AddAchievement(ctx, account, domain.UserAchievement{ID: "first_review", EarnedAt: now.Add(time.Hour)}))
	achievements, err := db.Achievements(ctx, account)
	require.NoError(t, err)
	require.Len(t, achievements, 1)
	assert.True(t, achievements[0].EarnedAt.Equal(now))

	// A missing date is a constraint error, not a silently dropped row.
	assert.Error(t, db.AddAchievement(ctx, account, domain.UserAchievement{ID: "streak_3"}))
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	p, err := db.Profile(ctx, account)
	require.NoError(t, err)
	assert.Nil(t, p)

	want := domain.UserProfile{Name: "Ana", Bio: "learning German", XP: 120, Level: 2, LastStreakCheck: "2026-10-14", ProfileLastUpdated: now}
	require.NoError(t, db.SaveProfile(ctx, account, want))

	p, err = db.Profile(ctx, account)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, want.Name, p.Name)
	assert.Equal(t, want.XP, p.XP)
	assert.True(t, want.ProfileLastUpdated.Equal(p.ProfileLastUpdated))
}

func TestReplaceSnapshot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertDeck(ctx, account, domain.Deck{ID: "old", Name: "Old"}))
	require.NoError(t, db.UpsertDeck(ctx, "other", domain.Deck{ID: "keep", Name: "Other account"}))

	snap := domain.Snapshot{
		Decks:            []domain.Deck{{ID: "d1", Name: "German"}},
		Cards:            []domain.Card{sampleCard("c1", "d1")},
		StudyHistory:     []domain.StudyLog{{CardID: "c1", Date: "2026-10-14", Rating: domain.Easy}},
		UserProfile:      &domain.UserProfile{Name: "Ana", XP: 15, Level: 1},
		UserAchievements: []domain.UserAchievement{{ID: "first_review", EarnedAt: now}},
	}
	require.NoError(t, db.ReplaceSnapshot(ctx, account, snap))

	got, err := db.Snapshot(ctx, account)
	require.NoError(t, err)
	require.Len(t, got.Decks, 1)
	assert.Equal(t, "d1", got.Decks[0].ID)
	require.Len(t, got.Cards, 1)
	assert.Equal(t, snap.StudyHistory, got.StudyHistory)
	require.NotNil(t, got.UserProfile)
	assert.Equal(t, 15, got.UserProfile.XP)
	assert.Len(t, got.UserAchievements, 1)

	others, err := db.Decks(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, others, 1, "other accounts untouched")
}

func TestRecordReview(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	c := sampleCard("c1", "d1")
	c.Repetition = 1
	r := Review{
		Card:         c,
		Log:          domain.StudyLog{CardID: "c1", Date: "2026-10-14", Rating: domain.Good},
		Profile:      domain.UserProfile{XP: 10, Level: 1},
		Achievements: []domain.UserAchievement{{ID: "first_review", EarnedAt: now}},
	}
	require.NoError(t, db.RecordReview(ctx, account, r))

	snap, err := db.Snapshot(ctx, account)
	require.NoError(t, err)
	assert.Len(t, snap.Cards, 1)
	assert.Len(t, snap.StudyHistory, 1)
	assert.Equal(t, 10, snap.UserProfile.XP)
	assert.Len(t, snap.UserAchievements, 1)
}
