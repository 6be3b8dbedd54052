// Package dictionary looks up words in a Free Dictionary API compatible
// service (GET {base}/api/v2/entries/{lang}/{word}).
package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://api.dictionaryapi.dev"
	DefaultLanguage = "en"

	maxAudioBytes = 4 << 20
)

var (
	ErrNotFound        = errors.New("word not found")
	ErrInvalidResponse = errors.New("invalid dictionary response")
)

// Config holds the client settings. Zero values take the defaults.
type Config struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Client looks words up in a dictionaryapi.dev compatible service.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// Entry is the enrichment data for one word.
type Entry struct {
	Word          string
	Pronunciation string
	PartOfSpeech  string
	Definitions   []string
	Examples      []string
	AudioURL      string
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		language:   language,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type apiEntry struct {
	Word      string `json:"word"`
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text  string `json:"text"`
		Audio string `json:"audio"`
	} `json:"phonetics"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
			Example    string `json:"example"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Lookup fetches the entry for word. It returns ErrNotFound when the service
// has no entry; the caller should not retry in that case.
func (c *Client) Lookup(ctx context.Context, word string) (Entry, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return Entry{}, ErrNotFound
	}
	endpoint := fmt.Sprintf("%s/api/v2/entries/%s/%s", c.baseURL, url.PathEscape(c.language), url.PathEscape(word))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to look up %q: %w", word, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Entry{}, fmt.Errorf("%q: %w", word, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Entry{}, fmt.Errorf("dictionary returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var entries []apiEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("%q: %w", word, ErrNotFound)
	}
	return toEntry(entries), nil
}

func toEntry(entries []apiEntry) Entry {
	first := entries[0]
	out := Entry{Word: first.Word, Pronunciation: first.Phonetic}

	for _, e := range entries {
		for _, p := range e.Phonetics {
			if out.Pronunciation == "" && p.Text != "" {
				out.Pronunciation = p.Text
			}
			if out.AudioURL == "" && p.Audio != "" {
				out.AudioURL = p.Audio
			}
		}
		for _, m := range e.Meanings {
			if out.PartOfSpeech == "" {
				out.PartOfSpeech = m.PartOfSpeech
			}
			for _, d := range m.Definitions {
				if d.Definition != "" {
					out.Definitions = append(out.Definitions, d.Definition)
				}
				if d.Example != "" {
					out.Examples = append(out.Examples, d.Example)
				}
			}
		}
	}
	return out
}

// FetchAudio downloads a pronunciation clip.
func (c *Client) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) > maxAudioBytes {
		return nil, fmt.Errorf("audio larger than %d bytes", maxAudioBytes)
	}
	return data, nil
}
