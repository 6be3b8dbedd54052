// Package importer bulk-creates cards from word lists, enriching each word
// through a dictionary lookup on a bounded pool of workers.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/lexicard/internal/dictionary"
	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/fingerprint"
	"github.com/conorfennell/lexicard/internal/storage"
)

var (
	ErrNoAnswer    = errors.New("no translation and dictionary lookup failed")
	ErrCardDeleted = errors.New("card was deleted")
)

// Dictionary enriches a word. Implementations return dictionary.ErrNotFound
// when the word is unknown.
type Dictionary interface {
	Lookup(ctx context.Context, word string) (dictionary.Entry, error)
}

// AudioFetcher is implemented by dictionaries that can download audio clips.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, url string) ([]byte, error)
}

// Store is the part of the local store the importer writes through.
type Store interface {
	FindDeck(ctx context.Context, account, id string) (*domain.Deck, error)
	FindCard(ctx context.Context, account, id string) (*domain.Card, error)
	UpsertCards(ctx context.Context, account string, cards []domain.Card) error
}

// Notifier is told once after an import changed local data.
type Notifier interface {
	Notify()
}

// Config controls the worker pool and the lookup retries.
type Config struct {
	Account  string
	Workers  int
	Attempts int
	Timeout  time.Duration // per lookup attempt
	Backoff  time.Duration // pause between attempts
	Audio    bool          // download pronunciation audio when available
	Logger   *slog.Logger
	Now      func() time.Time
}

// DefaultConfig returns three workers with three attempts of ten seconds each.
func DefaultConfig() *Config {
	return &Config{
		Workers:  3,
		Attempts: 3,
		Timeout:  10 * time.Second,
		Backoff:  500 * time.Millisecond,
		Logger:   slog.Default(),
		Now:      time.Now,
	}
}

// Importer turns word-list entries into cards of a deck.
type Importer struct {
	store    Store
	dict     Dictionary
	notifier Notifier
	cfg      Config
	log      *slog.Logger
}

// Result describes what happened to one entry.
type Result struct {
	Term     string
	CardID   string
	Enriched bool
	Attempts int
	Err      error
}

// Report summarises an import run.
type Report struct {
	Imported int
	Failed   int
	Results  []Result
}

// Errors returns the failed results.
func (r *Report) Errors() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// New creates an importer. dict may be nil to import without enrichment.
func New(store Store, dict Dictionary, notifier Notifier, cfg *Config) *Importer {
	defaults := DefaultConfig()
	if cfg == nil {
		cfg = defaults
	}
	c := *cfg
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.Attempts <= 0 {
		c.Attempts = defaults.Attempts
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Importer{
		store:    store,
		dict:     dict,
		notifier: notifier,
		cfg:      c,
		log:      c.Logger.With("component", "importer"),
	}
}

type job struct {
	index int
	entry Entry
}

type lookup struct {
	entry    dictionary.Entry
	audio    []byte
	attempts int
	err      error
}

// Import adds entries to the deck. Entries whose term maps to an existing
// card update its content and keep its scheduling state. Repeated terms are
// collapsed, the last occurrence winning.
func (im *Importer) Import(ctx context.Context, deckID string, entries []Entry) (*Report, error) {
	deck, err := im.store.FindDeck(ctx, im.cfg.Account, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}
	if deck == nil || deck.Deleted {
		return nil, fmt.Errorf("deck %s: %w", deckID, storage.ErrNotFound)
	}

	entries = dedupe(deckID, entries)
	lookups := im.lookupAll(ctx, entries)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := im.cfg.Now().UTC()
	report := &Report{Results: make([]Result, len(entries))}
	var cards []domain.Card

	for i, e := range entries {
		id := fingerprint.CardID(deckID, e.Term)
		res := Result{Term: e.Term, CardID: id, Attempts: lookups[i].attempts}

		card, err := im.buildCard(ctx, deckID, id, e, lookups[i], now)
		if err != nil {
			res.Err = err
			report.Failed++
			im.log.Warn("import failed", "term", e.Term, "error", err)
		} else {
			res.Enriched = lookups[i].err == nil
			cards = append(cards, card)
			report.Imported++
		}
		report.Results[i] = res
	}

	if len(cards) > 0 {
		if err := im.store.UpsertCards(ctx, im.cfg.Account, cards); err != nil {
			return nil, fmt.Errorf("failed to save imported cards: %w", err)
		}
		if im.notifier != nil {
			im.notifier.Notify()
		}
	}

	im.log.Info("import complete", "deck", deckID, "imported", report.Imported, "failed", report.Failed)
	return report, nil
}

func (im *Importer) buildCard(ctx context.Context, deckID, id string, e Entry, l lookup, now time.Time) (domain.Card, error) {
	existing, err := im.store.FindCard(ctx, im.cfg.Account, id)
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to load card: %w", err)
	}
	if existing != nil && existing.Deleted {
		return domain.Card{}, ErrCardDeleted
	}

	answer := e.Answer
	if answer == "" && l.err == nil && len(l.entry.Definitions) > 0 {
		answer = l.entry.Definitions[0]
	}
	if answer == "" {
		if l.err != nil {
			return domain.Card{}, fmt.Errorf("%w: %v", ErrNoAnswer, l.err)
		}
		return domain.Card{}, ErrNoAnswer
	}

	card := domain.NewCard(id, deckID, e.Term, now)
	if existing != nil {
		card = *existing
		card.Term = e.Term
		card.UpdatedAt = now
	}
	card.Answer = answer
	card.Notes = e.Notes
	if l.err == nil {
		card.Pronunciation = l.entry.Pronunciation
		card.PartOfSpeech = l.entry.PartOfSpeech
		card.Definitions = l.entry.Definitions
		card.Examples = l.entry.Examples
		if len(l.audio) > 0 {
			card.Audio = l.audio
		}
	}
	return card, nil
}

// lookupAll runs the dictionary lookups on the worker pool. The result slice
// is indexed like entries.
func (im *Importer) lookupAll(ctx context.Context, entries []Entry) []lookup {
	results := make([]lookup, len(entries))
	if im.dict == nil {
		for i := range results {
			results[i].err = errors.New("no dictionary configured")
		}
		return results
	}

	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < min(im.cfg.Workers, len(entries)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = im.lookup(ctx, j.entry.Term)
			}
		}()
	}

feed:
	for i, e := range entries {
		select {
		case jobs <- job{index: i, entry: e}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (im *Importer) lookup(ctx context.Context, term string) lookup {
	var l lookup
	for attempt := 1; attempt <= im.cfg.Attempts; attempt++ {
		l.attempts = attempt
		l.entry, l.err = im.lookupOnce(ctx, term)
		if l.err == nil || errors.Is(l.err, dictionary.ErrNotFound) || ctx.Err() != nil {
			break
		}
		im.log.Debug("lookup failed", "term", term, "attempt", attempt, "error", l.err)
		if attempt < im.cfg.Attempts && !sleep(ctx, im.cfg.Backoff*time.Duration(attempt)) {
			break
		}
	}
	if l.err != nil {
		return l
	}

	if im.cfg.Audio && l.entry.AudioURL != "" {
		if fetcher, ok := im.dict.(AudioFetcher); ok {
			actx, cancel := context.WithTimeout(ctx, im.cfg.Timeout)
			audio, err := fetcher.FetchAudio(actx, l.entry.AudioURL)
			cancel()
			if err != nil {
				im.log.Warn("audio download failed", "term", term, "error", err)
			} else {
				l.audio = audio
			}
		}
	}
	return l
}

func (im *Importer) lookupOnce(ctx context.Context, term string) (dictionary.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, im.cfg.Timeout)
	defer cancel()
	return im.dict.Lookup(ctx, term)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func dedupe(deckID string, entries []Entry) []Entry {
	index := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Term = strings.TrimSpace(e.Term)
		if fingerprint.Normalize(e.Term) == "" {
			continue
		}
		id := fingerprint.CardID(deckID, e.Term)
		if i, ok := index[id]; ok {
			out[i] = e
			continue
		}
		index[id] = len(out)
		out = append(out, e)
	}
	return out
}
