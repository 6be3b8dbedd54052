// Package server exposes a remote store over HTTP so several devices can
// share one snapshot per sync key.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/merge"
	"github.com/conorfennell/lexicard/internal/remote"
)

// DefaultMaxBody limits request bodies.
const DefaultMaxBody = 32 << 20

// Config holds the server settings.
type Config struct {
	Token   string // bearer token required on /v1 routes when set
	MaxBody int64
	Logger  *slog.Logger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	store   remote.Store
	token   string
	maxBody int64
	log     *slog.Logger
	router  *http.ServeMux
	locks   *keyLocks
}

// NewServer creates and configures a new server.
func NewServer(store remote.Store, cfg Config) *Server {
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		store:   store,
		token:   cfg.Token,
		maxBody: cfg.MaxBody,
		log:     cfg.Logger.With("component", "server"),
		router:  http.NewServeMux(),
		locks:   newKeyLocks(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.router.ServeHTTP(rec, r)
	s.log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth())

	s.router.Handle("GET /v1/snapshots/{key}", s.authorized(s.handleGetSnapshot()))
	s.router.Handle("PUT /v1/snapshots/{key}", s.authorized(s.handlePutSnapshot()))
	s.router.Handle("POST /v1/snapshots/{key}/merge", s.authorized(s.handleMergeSnapshot()))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleGetSnapshot returns the stored snapshot or 404.
func (s *Server) handleGetSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := s.key(w, r)
		if !ok {
			return
		}
		snap, found, err := s.store.Get(r.Context(), key)
		if err != nil {
			s.internalError(w, "get snapshot", key, err)
			return
		}
		if !found {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// handlePutSnapshot replaces the stored snapshot.
func (s *Server) handlePutSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := s.key(w, r)
		if !ok {
			return
		}
		snap, ok := s.decode(w, r)
		if !ok {
			return
		}

		unlock := s.locks.lock(key)
		defer unlock()

		if err := s.store.Put(r.Context(), key, snap); err != nil {
			s.internalError(w, "put snapshot", key, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleMergeSnapshot merges the posted client snapshot into the stored one
// and returns the result. Merges for the same key are serialised.
func (s *Server) handleMergeSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := s.key(w, r)
		if !ok {
			return
		}
		client, ok := s.decode(w, r)
		if !ok {
			return
		}

		unlock := s.locks.lock(key)
		defer unlock()

		cloud, _, err := s.store.Get(r.Context(), key)
		if err != nil {
			s.internalError(w, "get snapshot", key, err)
			return
		}
		merged := merge.Merge(cloud, client)
		if err := s.store.Put(r.Context(), key, merged); err != nil {
			s.internalError(w, "put snapshot", key, err)
			return
		}
		s.log.Debug("merged snapshot", "key", key, "decks", len(merged.Decks), "cards", len(merged.Cards))
		writeJSON(w, http.StatusOK, merged)
	}
}

func (s *Server) authorized(next http.Handler) http.Handler {
	if s.token == "" {
		return next
	}
	want := []byte("Bearer " + s.token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) key(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.PathValue("key")
	if err := remote.ValidateKey(key); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return key, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (domain.Snapshot, bool) {
	var snap domain.Snapshot
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(&snap); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return domain.Snapshot{}, false
		}
		http.Error(w, "Invalid snapshot: "+strings.TrimSpace(err.Error()), http.StatusBadRequest)
		return domain.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) internalError(w http.ResponseWriter, op, key string, err error) {
	s.log.Error("request failed", "op", op, "key", key, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// keyLocks hands out one mutex per key and forgets it once unused.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
