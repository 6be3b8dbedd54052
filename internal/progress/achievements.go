package progress

import (
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

// Stats is the input to achievement evaluation.
type Stats struct {
	Reviews     int
	Streak      int
	Level       int
	ActiveCards int
}

// Achievement is a rule that grants an achievement id once its target is met.
type Achievement struct {
	ID          string
	Name        string
	Description string
	met         func(Stats) bool
}

// Catalog lists every achievement that can be earned.
var Catalog = []Achievement{
	{ID: "first_review", Name: "First Steps", Description: "Review your first card.", met: func(s Stats) bool { return s.Reviews >= 1 }},
	{ID: "reviews_100", Name: "Centurion", Description: "Complete 100 reviews.", met: func(s Stats) bool { return s.Reviews >= 100 }},
	{ID: "reviews_1000", Name: "Word Hoarder", Description: "Complete 1000 reviews.", met: func(s Stats) bool { return s.Reviews >= 1000 }},
	{ID: "streak_3", Name: "Warming Up", Description: "Study three days in a row.", met: func(s Stats) bool { return s.Streak >= 3 }},
	{ID: "streak_7", Name: "Week Streak", Description: "Study seven days in a row.", met: func(s Stats) bool { return s.Streak >= 7 }},
	{ID: "streak_30", Name: "Habit Formed", Description: "Study thirty days in a row.", met: func(s Stats) bool { return s.Streak >= 30 }},
	{ID: "level_5", Name: "Apprentice", Description: "Reach level 5.", met: func(s Stats) bool { return s.Level >= 5 }},
	{ID: "level_10", Name: "Scholar", Description: "Reach level 10.", met: func(s Stats) bool { return s.Level >= 10 }},
	{ID: "cards_50", Name: "Collector", Description: "Keep 50 active cards.", met: func(s Stats) bool { return s.ActiveCards >= 50 }},
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Achievement, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// NewlyEarned returns the achievements whose rule is met by stats and that
// are not in earned, stamped with at.
func NewlyEarned(stats Stats, earned []domain.UserAchievement, at time.Time) []domain.UserAchievement {
	have := make(map[string]bool, len(earned))
	for _, a := range earned {
		have[a.ID] = true
	}

	var out []domain.UserAchievement
	for _, a := range Catalog {
		if have[a.ID] || !a.met(stats) {
			continue
		}
		out = append(out, domain.UserAchievement{ID: a.ID, EarnedAt: at})
	}
	return out
}
