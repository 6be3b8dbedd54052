// Package merge reconciles a client snapshot with the cloud snapshot.
//
// Decks and cards are merged by id: the client's fields win when both sides
// have the entity, except the deleted flag, which is OR-ed so a tombstone
// never comes back. Study logs are a deduplicated union. The profile takes
// free-text fields from the side with the newer timestamp and the maximum of
// every progress field. Achievements are a union keeping the earliest date.
//
// Merge output is sorted so that merging a settled result again is a no-op.
// Timestamps the wire format lets a peer omit are filled in, so every merge
// result can be stored locally.
package merge

import (
	"sort"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

// Epoch stands in for a required timestamp a peer left out. A card without a
// due date is due straight away.
var Epoch = time.Unix(0, 0).UTC()

// Merge returns the reconciled snapshot. Nil collections count as empty.
// Entities without an id are dropped.
func Merge(cloud, client domain.Snapshot) domain.Snapshot {
	return domain.Snapshot{
		Decks: collection(cloud.Decks, client.Decks,
			func(d domain.Deck) string { return d.ID },
			func(d domain.Deck) bool { return d.Deleted },
			func(d domain.Deck) domain.Deck { d.Deleted = true; return d },
		),
		Cards: fillDueDates(collection(cloud.Cards, client.Cards,
			func(c domain.Card) string { return c.ID },
			func(c domain.Card) bool { return c.Deleted },
			func(c domain.Card) domain.Card { c.Deleted = true; return c },
		)),
		StudyHistory:     StudyLogs(cloud.StudyHistory, client.StudyHistory),
		UserProfile:      Profile(cloud.UserProfile, client.UserProfile),
		UserAchievements: Achievements(cloud.UserAchievements, client.UserAchievements),
	}
}

// Normalize puts a single snapshot into the canonical form Merge produces,
// so that it can be compared with a merge result.
func Normalize(s domain.Snapshot) domain.Snapshot {
	return Merge(domain.Snapshot{}, s)
}

func collection[T any](cloud, client []T, id func(T) string, deleted func(T) bool, tombstone func(T) T) []T {
	byID := make(map[string]T, len(cloud)+len(client))
	for _, side := range [][]T{cloud, client} {
		for _, item := range side {
			k := id(item)
			if k == "" {
				continue
			}
			if existing, ok := byID[k]; ok && deleted(existing) && !deleted(item) {
				item = tombstone(item)
			}
			byID[k] = item
		}
	}

	out := make([]T, 0, len(byID))
	for _, item := range byID {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

func fillDueDates(cards []domain.Card) []domain.Card {
	for i, c := range cards {
		if !c.DueDate.IsZero() {
			continue
		}
		if c.UpdatedAt.IsZero() {
			cards[i].DueDate = Epoch
		} else {
			cards[i].DueDate = c.UpdatedAt
		}
	}
	return cards
}

// StudyLogs returns the union of both histories keyed by (card, date, rating),
// ordered by date, card and rating.
func StudyLogs(cloud, client []domain.StudyLog) []domain.StudyLog {
	seen := make(map[string]struct{}, len(cloud)+len(client))
	out := make([]domain.StudyLog, 0, len(cloud)+len(client))
	for _, side := range [][]domain.StudyLog{cloud, client} {
		for _, l := range side {
			if l.CardID == "" || l.Date == "" {
				continue
			}
			if _, dup := seen[l.Key()]; dup {
				continue
			}
			seen[l.Key()] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.CardID != b.CardID {
			return a.CardID < b.CardID
		}
		return a.Rating < b.Rating
	})
	return out
}

// Profile merges two profiles. Free-text fields come from the side with the
// newer ProfileLastUpdated; the client wins ties. XP and level never decrease
// and LastStreakCheck takes the later date.
func Profile(cloud, client *domain.UserProfile) *domain.UserProfile {
	switch {
	case cloud == nil && client == nil:
		return nil
	case cloud == nil:
		p := *client
		return &p
	case client == nil:
		p := *cloud
		return &p
	}

	newer, older := *client, *cloud
	if cloud.ProfileLastUpdated.After(client.ProfileLastUpdated) {
		newer, older = *cloud, *client
	}

	merged := newer
	merged.XP = max(newer.XP, older.XP)
	merged.Level = max(newer.Level, older.Level)
	if older.LastStreakCheck > merged.LastStreakCheck {
		merged.LastStreakCheck = older.LastStreakCheck
	}
	return &merged
}

// Achievements returns the union keyed by achievement id, keeping the
// earliest EarnedAt, ordered by id. A missing EarnedAt loses to a known one
// and becomes Epoch when neither side knows the date.
func Achievements(cloud, client []domain.UserAchievement) []domain.UserAchievement {
	byID := make(map[string]domain.UserAchievement, len(cloud)+len(client))
	for _, side := range [][]domain.UserAchievement{cloud, client} {
		for _, a := range side {
			if a.ID == "" {
				continue
			}
			if existing, ok := byID[a.ID]; ok && !earlier(a.EarnedAt, existing.EarnedAt) {
				continue
			}
			byID[a.ID] = a
		}
	}

	out := make([]domain.UserAchievement, 0, len(byID))
	for _, a := range byID {
		if a.EarnedAt.IsZero() {
			a.EarnedAt = Epoch
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func earlier(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	}
	return a.Before(b)
}
