package progress

import (
	"math"

	"github.com/conorfennell/lexicard/internal/domain"
)

// LevelBase is the XP multiplier of the level curve: reaching level L takes
// (L-1)^2 * LevelBase XP.
const LevelBase = 100

// LevelInfo describes the level derived from an XP total.
type LevelInfo struct {
	Level           int     `json:"level"`
	ProgressPercent float64 `json:"progressPercent"`
	XPForNextLevel  int     `json:"xpForNextLevel"` // XP still needed to reach Level+1
}

// Threshold is the XP at which level starts.
func Threshold(level int) int {
	if level <= 1 {
		return 0
	}
	return (level - 1) * (level - 1) * LevelBase
}

// Level computes the level, the progress through it and the XP remaining
// until the next one.
func Level(xp int) LevelInfo {
	if xp < 0 {
		xp = 0
	}
	level := int(math.Floor(math.Sqrt(float64(xp)/LevelBase))) + 1
	// guard against floating point error at exact thresholds
	for Threshold(level+1) <= xp {
		level++
	}
	for level > 1 && Threshold(level) > xp {
		level--
	}

	start, next := Threshold(level), Threshold(level+1)
	pct := float64(xp-start) / float64(next-start) * 100
	pct = math.Max(0, math.Min(100, pct))

	return LevelInfo{
		Level:           level,
		ProgressPercent: pct,
		XPForNextLevel:  next - xp,
	}
}

// XPFor returns the experience awarded for a single review.
func XPFor(rating domain.Rating) int {
	switch rating {
	case domain.Again:
		return 2
	case domain.Good:
		return 10
	case domain.Easy:
		return 15
	}
	return 0
}
