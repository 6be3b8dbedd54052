// Package cloudsync decides when local data is reconciled with the remote
// store and applies the merged result locally only when it differs.
//
// The orchestrator is a single goroutine driven by a notification channel:
//
//	idle -> pending (debounce timer armed) -> syncing -> synced | error
//
// Notifications during the debounce window re-arm the timer. A notification
// while a sync is in flight does not cancel it; it schedules one follow-up
// debounce cycle after the flight lands. Failed syncs are not retried until
// the next notification.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/merge"
	"github.com/conorfennell/lexicard/internal/remote"
)

// ErrNotConfigured is returned by SyncNow when no sync key is set.
var ErrNotConfigured = errors.New("sync key not configured")

// State is the orchestrator's position in the sync cycle.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSyncing State = "syncing"
	StateSynced  State = "synced"
	StateError   State = "error"
)

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State      State
	LastError  error
	LastSynced time.Time
	Applied    bool // the last successful sync changed local data
}

// Local is the part of the local store the orchestrator needs.
type Local interface {
	Snapshot(ctx context.Context, account string) (domain.Snapshot, error)
	ReplaceSnapshot(ctx context.Context, account string, snap domain.Snapshot) error
}

// Config holds configuration for the orchestrator.
type Config struct {
	Account string
	Key     string // remote sync key; empty disables syncing

	// Debounce is the quiet period after the last local change before a sync starts.
	Debounce time.Duration

	// Timeout bounds a single sync round trip.
	Timeout time.Duration

	Logger   *slog.Logger
	OnStatus func(Status)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce: 2 * time.Second,
		Timeout:  30 * time.Second,
		Logger:   slog.Default(),
	}
}

// Orchestrator reconciles one account's local store with a remote store.
type Orchestrator struct {
	local  Local
	remote remote.Store
	cfg    Config
	log    *slog.Logger
	notify chan struct{}

	syncMu sync.Mutex // serialises round trips

	statusMu sync.Mutex
	status   Status
}

// New creates an orchestrator. Use Run to start the debounce loop.
func New(local Local, store remote.Store, cfg *Config) (*Orchestrator, error) {
	if local == nil {
		return nil, errors.New("local store cannot be nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.Key != "" {
		if store == nil {
			return nil, errors.New("remote store cannot be nil when a sync key is set")
		}
		if err := remote.ValidateKey(c.Key); err != nil {
			return nil, err
		}
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultConfig().Debounce
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig().Timeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return &Orchestrator{
		local:  local,
		remote: store,
		cfg:    c,
		log:    c.Logger.With("component", "sync", "account", c.Account),
		notify: make(chan struct{}, 1),
		status: Status{State: StateIdle},
	}, nil
}

// Notify tells the orchestrator that local data changed. It never blocks.
func (o *Orchestrator) Notify() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Status returns the current status.
func (o *Orchestrator) Status() Status {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	return o.status
}

// Run drives the debounce loop until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	var (
		timer    *time.Timer
		timerC   <-chan time.Time
		inFlight bool
		followUp bool
		done     = make(chan error, 1)
	)
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(o.cfg.Debounce)
		} else {
			timer.Reset(o.cfg.Debounce)
		}
		timerC = timer.C
		o.setState(StatePending)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if inFlight {
				<-done
			}
			return ctx.Err()

		case <-o.notify:
			if o.cfg.Key == "" {
				continue
			}
			if inFlight {
				followUp = true
				continue
			}
			arm()

		case <-timerC:
			timerC = nil
			inFlight = true
			go func() { done <- o.sync(ctx) }()

		case <-done:
			inFlight = false
			if followUp {
				followUp = false
				arm()
			}
		}
	}
}

// SyncNow performs one round trip immediately.
func (o *Orchestrator) SyncNow(ctx context.Context) error {
	if o.cfg.Key == "" {
		return ErrNotConfigured
	}
	return o.sync(ctx)
}

func (o *Orchestrator) sync(ctx context.Context) error {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()

	o.setState(StateSyncing)
	start := time.Now()

	applied, err := o.roundTrip(ctx)
	if err != nil {
		o.log.Error("sync failed", "key", o.cfg.Key, "error", err)
		o.update(func(s *Status) {
			s.State = StateError
			s.LastError = err
		})
		return err
	}

	o.log.Info("sync complete", "key", o.cfg.Key, "applied", applied, "took", time.Since(start))
	o.update(func(s *Status) {
		s.State = StateSynced
		s.LastError = nil
		s.LastSynced = time.Now()
		s.Applied = applied
	})
	return nil
}

// roundTrip sends the local snapshot, receives the merged one and writes it
// locally if it differs. It reports whether local data was replaced.
func (o *Orchestrator) roundTrip(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	local, err := o.local.Snapshot(ctx, o.cfg.Account)
	if err != nil {
		return false, fmt.Errorf("read local snapshot: %w", err)
	}

	merged, err := o.exchange(ctx, local)
	if err != nil {
		return false, err
	}

	// Local edits made while the request was in flight win over the merged
	// copy; the follow-up sync pushes them.
	current, err := o.local.Snapshot(ctx, o.cfg.Account)
	if err != nil {
		return false, fmt.Errorf("re-read local snapshot: %w", err)
	}
	final := merge.Merge(merged, current)

	if Equal(merge.Normalize(current), final) {
		return false, nil
	}
	if err := o.local.ReplaceSnapshot(ctx, o.cfg.Account, final); err != nil {
		return false, fmt.Errorf("apply merged snapshot: %w", err)
	}
	return true, nil
}

func (o *Orchestrator) exchange(ctx context.Context, local domain.Snapshot) (domain.Snapshot, error) {
	if m, ok := o.remote.(remote.Merger); ok {
		merged, err := m.Merge(ctx, o.cfg.Key, local)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("remote merge: %w", err)
		}
		return merged, nil
	}

	cloud, _, err := o.remote.Get(ctx, o.cfg.Key)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("fetch cloud snapshot: %w", err)
	}
	merged := merge.Merge(cloud, local)
	if err := o.remote.Put(ctx, o.cfg.Key, merged); err != nil {
		return domain.Snapshot{}, fmt.Errorf("store merged snapshot: %w", err)
	}
	return merged, nil
}

// Equal reports whether two snapshots hold the same data, treating nil and
// empty collections alike.
func Equal(a, b domain.Snapshot) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

func (o *Orchestrator) setState(state State) {
	o.update(func(s *Status) { s.State = state })
}

func (o *Orchestrator) update(fn func(*Status)) {
	o.statusMu.Lock()
	fn(&o.status)
	status := o.status
	o.statusMu.Unlock()

	if o.cfg.OnStatus != nil {
		o.cfg.OnStatus(status)
	}
}
