// Package study runs review sessions: it serves the due queue and turns each
// rating into a scheduling update, a log entry, an XP award and any newly
// earned achievements.
package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/progress"
	"github.com/conorfennell/lexicard/internal/srs"
	"github.com/conorfennell/lexicard/internal/storage"
)

var (
	ErrCardNotFound  = errors.New("card not found")
	ErrInvalidRating = errors.New("invalid rating")
)

// Store is the persistence the study service needs.
type Store interface {
	Cards(ctx context.Context, account string) ([]domain.Card, error)
	DueCards(ctx context.Context, account string, now time.Time, deckID string, limit int) ([]domain.Card, error)
	FindCard(ctx context.Context, account, id string) (*domain.Card, error)
	StudyLogs(ctx context.Context, account string) ([]domain.StudyLog, error)
	Profile(ctx context.Context, account string) (*domain.UserProfile, error)
	Achievements(ctx context.Context, account string) ([]domain.UserAchievement, error)
	SaveProfile(ctx context.Context, account string, p domain.UserProfile) error
	RecordReview(ctx context.Context, account string, r storage.Review) error
}

// Notifier is told after every recorded review.
type Notifier interface {
	Notify()
}

// Service runs review sessions for one account.
type Service struct {
	store    Store
	account  string
	notifier Notifier
	params   *srs.Params
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Calendar dates are taken in the
// location of the returned times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithParams overrides the scheduler constants.
func WithParams(p *srs.Params) Option {
	return func(s *Service) { s.params = p }
}

// New creates a Service with the default scheduler.
func New(store Store, account string, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		account:  account,
		notifier: notifier,
		params:   srs.DefaultParams(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Due returns up to limit cards due now, earliest first. An empty deckID
// means every deck; limit <= 0 means no limit.
func (s *Service) Due(ctx context.Context, deckID string, limit int) ([]domain.Card, error) {
	return s.store.DueCards(ctx, s.account, s.now(), deckID, limit)
}

// Outcome is the result of one review.
type Outcome struct {
	Card            domain.Card
	XPGained        int
	Level           progress.LevelInfo
	LeveledUp       bool
	Streak          int
	NewAchievements []domain.UserAchievement
}

// Review rates a card and records the consequences in one transaction.
func (s *Service) Review(ctx context.Context, cardID string, rating domain.Rating) (Outcome, error) {
	if !rating.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidRating, rating)
	}

	card, err := s.store.FindCard(ctx, s.account, cardID)
	if err != nil {
		return Outcome{}, err
	}
	if card == nil || card.Deleted {
		return Outcome{}, fmt.Errorf("%s: %w", cardID, ErrCardNotFound)
	}

	now := s.now()
	next := s.params.NextState(*card, rating, now)
	next.UpdatedAt = now

	entry := domain.StudyLog{CardID: cardID, Date: domain.DateOf(now), Rating: rating}

	profile := domain.DefaultProfile()
	if stored, err := s.store.Profile(ctx, s.account); err != nil {
		return Outcome{}, err
	} else if stored != nil {
		profile = *stored
	}
	before := progress.Level(profile.XP)

	xp := progress.XPFor(rating)
	profile.XP += xp
	level := progress.Level(profile.XP)
	profile.Level = level.Level
	profile.LastStreakCheck = entry.Date
	profile.ProfileLastUpdated = now

	logs, err := s.store.StudyLogs(ctx, s.account)
	if err != nil {
		return Outcome{}, err
	}
	logs = appendUnique(logs, entry)
	streak := progress.Streak(logs, now)

	active, err := s.activeCards(ctx)
	if err != nil {
		return Outcome{}, err
	}
	earned, err := s.store.Achievements(ctx, s.account)
	if err != nil {
		return Outcome{}, err
	}
	fresh := progress.NewlyEarned(progress.Stats{
		Reviews:     len(logs),
		Streak:      streak,
		Level:       level.Level,
		ActiveCards: active,
	}, earned, now)

	if err := s.store.RecordReview(ctx, s.account, storage.Review{
		Card:         next,
		Log:          entry,
		Profile:      profile,
		Achievements: fresh,
	}); err != nil {
		return Outcome{}, fmt.Errorf("failed to record review: %w", err)
	}
	if s.notifier != nil {
		s.notifier.Notify()
	}

	return Outcome{
		Card:            next,
		XPGained:        xp,
		Level:           level,
		LeveledUp:       level.Level > before.Level,
		Streak:          streak,
		NewAchievements: fresh,
	}, nil
}

// Summary is the learner's current standing.
type Summary struct {
	Profile      domain.UserProfile
	Level        progress.LevelInfo
	Streak       int
	Reviews      int
	ActiveCards  int
	DueNow       int
	Achievements []domain.UserAchievement
}

// Stats computes the learner's summary as of now.
func (s *Service) Stats(ctx context.Context) (Summary, error) {
	profile := domain.DefaultProfile()
	if stored, err := s.store.Profile(ctx, s.account); err != nil {
		return Summary{}, err
	} else if stored != nil {
		profile = *stored
	}

	logs, err := s.store.StudyLogs(ctx, s.account)
	if err != nil {
		return Summary{}, err
	}
	active, err := s.activeCards(ctx)
	if err != nil {
		return Summary{}, err
	}
	due, err := s.Due(ctx, "", 0)
	if err != nil {
		return Summary{}, err
	}
	earned, err := s.store.Achievements(ctx, s.account)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Profile:      profile,
		Level:        progress.Level(profile.XP),
		Streak:       progress.Streak(logs, s.now()),
		Reviews:      len(logs),
		ActiveCards:  active,
		DueNow:       len(due),
		Achievements: earned,
	}, nil
}

// UpdateProfile applies edit to the stored profile and saves it. Only the
// personal fields are kept from the edit; XP and level stay derived from
// reviews.
func (s *Service) UpdateProfile(ctx context.Context, edit func(*domain.UserProfile)) (domain.UserProfile, error) {
	profile := domain.DefaultProfile()
	if stored, err := s.store.Profile(ctx, s.account); err != nil {
		return domain.UserProfile{}, err
	} else if stored != nil {
		profile = *stored
	}

	edited := profile
	edit(&edited)
	profile.Name = edited.Name
	profile.Bio = edited.Bio
	profile.NativeLanguage = edited.NativeLanguage
	profile.TargetLanguage = edited.TargetLanguage
	profile.ProfileLastUpdated = s.now()

	if err := s.store.SaveProfile(ctx, s.account, profile); err != nil {
		return domain.UserProfile{}, err
	}
	if s.notifier != nil {
		s.notifier.Notify()
	}
	return profile, nil
}

func (s *Service) activeCards(ctx context.Context) (int, error) {
	cards, err := s.store.Cards(ctx, s.account)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range cards {
		if !c.Deleted {
			n++
		}
	}
	return n, nil
}

func appendUnique(logs []domain.StudyLog, entry domain.StudyLog) []domain.StudyLog {
	for _, l := range logs {
		if l.Key() == entry.Key() {
			return logs
		}
	}
	return append(logs, entry)
}
