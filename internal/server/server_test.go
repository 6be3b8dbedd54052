package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/remote"
)

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *remote.FileStore) {
	t.Helper()
	store, err := remote.NewFileStore(t.TempDir())
	require.NoError(t, err)
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(store, cfg))
	t.Cleanup(srv.Close)
	return srv, store
}

func newClient(t *testing.T, url, token string) *remote.HTTPStore {
	t.Helper()
	c, err := remote.NewHTTPStore(remote.HTTPConfig{BaseURL: url, Token: token})
	require.NoError(t, err)
	return c
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Config{Token: "secret"})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestGetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv, store := newTestServer(t, Config{})
	client := newClient(t, srv.URL, "")

	_, found, err := client.Get(ctx, "ana")
	require.NoError(t, err)
	assert.False(t, found)

	snap := domain.Snapshot{
		Decks: []domain.Deck{{ID: "d1", Name: "Spanish"}},
		Cards: []domain.Card{{ID: "c1", DeckID: "d1", Term: "hola", EasinessFactor: 2.5}},
	}
	require.NoError(t, client.Put(ctx, "ana", snap))

	got, found, err := client.Get(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, snap.Decks, got.Decks)
	assert.Equal(t, "hola", got.Cards[0].Term)

	// The backing store holds exactly what was put.
	stored, found, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, snap.Decks, stored.Decks)
}

func TestServerSideMerge(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t, Config{})
	client := newClient(t, srv.URL, "")

	require.NoError(t, client.Put(ctx, "ana", domain.Snapshot{
		Decks: []domain.Deck{{ID: "d1", Name: "Spanish", Deleted: true}},
	}))

	merged, err := client.Merge(ctx, "ana", domain.Snapshot{
		Decks: []domain.Deck{{ID: "d1", Name: "Spanish"}, {ID: "d2", Name: "Italian"}},
	})
	require.NoError(t, err)
	require.Len(t, merged.Decks, 2)
	assert.True(t, merged.Decks[0].Deleted, "tombstone survives")
	assert.Equal(t, "d2", merged.Decks[1].ID)

	stored, _, err := client.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, merged.Decks, stored.Decks)
}

func TestConcurrentMergesKeepEveryDeck(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t, Config{})
	client := newClient(t, srv.URL, "")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := client.Merge(ctx, "shared", domain.Snapshot{
				Decks: []domain.Deck{{ID: fmt.Sprintf("d%02d", i), Name: "deck"}},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, _, err := client.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, got.Decks, 10)
}

func TestToken(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t, Config{Token: "secret"})

	_, _, err := newClient(t, srv.URL, "").Get(ctx, "ana")
	var statusErr *remote.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)

	_, _, err = newClient(t, srv.URL, "wrong").Get(ctx, "ana")
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)

	require.NoError(t, newClient(t, srv.URL, "secret").Put(ctx, "ana", domain.Snapshot{}))
}

func TestBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, Config{MaxBody: 64})

	do := func(method, path, body string) int {
		t.Helper()
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/v1/snapshots/-bad", ""))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/v1/snapshots/ana", "{not json"))
	assert.Equal(t, http.StatusRequestEntityTooLarge,
		do(http.MethodPut, "/v1/snapshots/ana", `{"decks":[{"id":"`+strings.Repeat("x", 100)+`"}]}`))
	assert.Equal(t, http.StatusMethodNotAllowed, do(http.MethodDelete, "/v1/snapshots/ana", ""))
	assert.Equal(t, http.StatusNoContent, do(http.MethodPut, "/v1/snapshots/ana", `{}`))
}

func TestKeyLocksAreReleased(t *testing.T) {
	k := newKeyLocks()
	unlock := k.lock("a")
	unlock2 := make(chan func())
	go func() { unlock2 <- k.lock("a") }()
	unlock()
	(<-unlock2)()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
