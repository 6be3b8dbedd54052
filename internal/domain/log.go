package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used by study logs and profiles.
const DateLayout = "2006-01-02"

// Rating is the user's response to a card review.
type Rating string

const (
	Again Rating = "again"
	Good  Rating = "good"
	Easy  Rating = "easy"
)

// Valid reports whether r is one of the known ratings.
func (r Rating) Valid() bool {
	switch r {
	case Again, Good, Easy:
		return true
	}
	return false
}

// ParseRating accepts the rating names case-insensitively, plus the
// single-key shortcuts 1 (again), 3 (good) and 4 (easy).
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "again", "a", "1":
		return Again, nil
	case "good", "g", "3":
		return Good, nil
	case "easy", "e", "4":
		return Easy, nil
	}
	return "", fmt.Errorf("unknown rating %q", s)
}

// StudyLog records a single review event. Logs are append-only.
type StudyLog struct {
	CardID string `json:"cardId" validate:"required"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Rating Rating `json:"rating" validate:"required,oneof=again good easy"`
}

// Key identifies a log for deduplication.
func (l StudyLog) Key() string {
	return l.CardID + "|" + l.Date + "|" + string(l.Rating)
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar date into midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// CivilDay returns midnight UTC of t's calendar date in t's own location.
func CivilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
