// Package progress derives study streaks, levels and achievements from the
// review history and accumulated experience points.
package progress

import (
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

// Streak returns the number of consecutive calendar days, ending today or
// yesterday, on which at least one review was logged. today is interpreted
// as a calendar date in its own location; log dates are already dates.
func Streak(logs []domain.StudyLog, today time.Time) int {
	days := make(map[string]struct{}, len(logs))
	for _, l := range logs {
		days[l.Date] = struct{}{}
	}

	day := domain.CivilDay(today)
	if _, ok := days[domain.DateOf(day)]; !ok {
		day = day.AddDate(0, 0, -1)
		if _, ok := days[domain.DateOf(day)]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := days[domain.DateOf(day)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}
