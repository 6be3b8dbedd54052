// Package srs implements the SM-2 style scheduler that moves a card's
// repetition count, easiness factor, interval and due date after a review.
package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

// Params holds the tunable constants of the scheduler.
type Params struct {
	AgainInterval  int     // days until a lapsed card is shown again
	AgainPenalty   float64 // subtracted from the easiness factor on Again
	GoodBonus      float64 // added to the easiness factor on Good
	EasyBonus      float64 // added to the easiness factor on Easy
	EasyMultiplier float64 // interval bonus on Easy
	FirstInterval  int     // interval after the first successful review
	SecondInterval int     // interval after the second successful review
	MinEasiness    float64
}

// DefaultParams returns the classic SM-2 schedule with an Easy bonus.
func DefaultParams() *Params {
	return &Params{
		AgainInterval:  1,
		AgainPenalty:   0.2,
		GoodBonus:      0,
		EasyBonus:      0.15,
		EasyMultiplier: 1.3,
		FirstInterval:  1,
		SecondInterval: 6,
		MinEasiness:    domain.MinEasinessFactor,
	}
}

// NextState returns the card after it was rated at now. Only the scheduling
// fields change. The due date counts from now, not from the previous due date.
//
// A rating outside Again/Good/Easy is a programming error and panics.
func (p *Params) NextState(card domain.Card, rating domain.Rating, now time.Time) domain.Card {
	ef := p.clamp(card.EasinessFactor)

	switch rating {
	case domain.Again:
		card.Repetition = 0
		card.Interval = p.AgainInterval
		card.EasinessFactor = p.clamp(ef - p.AgainPenalty)
	case domain.Good:
		card.Repetition++
		card.Interval = p.interval(card.Repetition, card.Interval, ef, 1)
		card.EasinessFactor = p.clamp(ef + p.GoodBonus)
	case domain.Easy:
		ef = p.clamp(ef + p.EasyBonus)
		card.Repetition++
		card.Interval = p.interval(card.Repetition, card.Interval, ef, p.EasyMultiplier)
		card.EasinessFactor = ef
	default:
		panic(fmt.Sprintf("srs: invalid rating %q", rating))
	}

	if card.Interval < 1 {
		card.Interval = 1
	}
	card.LastReviewed = now
	card.DueDate = now.AddDate(0, 0, card.Interval)
	return card
}

// interval computes the next interval in whole days for a successful review.
func (p *Params) interval(repetition, previous int, ef, multiplier float64) int {
	var base float64
	switch repetition {
	case 1:
		base = float64(p.FirstInterval)
	case 2:
		base = float64(p.SecondInterval)
	default:
		if previous < 1 {
			previous = 1
		}
		base = float64(previous) * ef
	}
	days := int(math.Round(base * multiplier))
	if days < 1 {
		return 1
	}
	return days
}

func (p *Params) clamp(ef float64) float64 {
	if math.IsNaN(ef) || ef < p.MinEasiness {
		return p.MinEasiness
	}
	return ef
}
