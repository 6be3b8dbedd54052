package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

// HTTPConfig configures an HTTPStore.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPStore talks to a lexicard sync server.
type HTTPStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// StatusError is returned when the server answers with an unexpected status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sync server returned %d: %s", e.Code, e.Body)
}

// NewHTTPStore validates the base URL and applies default timeouts.
func NewHTTPStore(cfg HTTPConfig) (*HTTPStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("sync server url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid sync server url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPStore{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (s *HTTPStore) Get(ctx context.Context, key string) (domain.Snapshot, bool, error) {
	var snap domain.Snapshot
	code, err := s.do(ctx, http.MethodGet, key, "", nil, &snap)
	if code == http.StatusNotFound {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *HTTPStore) Put(ctx context.Context, key string, snap domain.Snapshot) error {
	_, err := s.do(ctx, http.MethodPut, key, "", snap, nil)
	return err
}

// Merge asks the server to merge client into its copy and returns the result.
func (s *HTTPStore) Merge(ctx context.Context, key string, client domain.Snapshot) (domain.Snapshot, error) {
	var merged domain.Snapshot
	if _, err := s.do(ctx, http.MethodPost, key, "/merge", client, &merged); err != nil {
		return domain.Snapshot{}, err
	}
	return merged, nil
}

func (s *HTTPStore) do(ctx context.Context, method, key, suffix string, body, out any) (int, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := s.baseURL + "/v1/snapshots/" + url.PathEscape(key) + suffix
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode snapshot: %w", err)
		}
	}
	return resp.StatusCode, nil
}
