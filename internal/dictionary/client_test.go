package dictionary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const holaResponse = `[{
	"word": "hola",
	"phonetics": [{"text": "/ˈola/", "audio": ""}, {"text": "", "audio": "AUDIO"}],
	"meanings": [
		{"partOfSpeech": "interjection", "definitions": [
			{"definition": "hello", "example": "¡Hola, amigo!"},
			{"definition": "hi"}
		]},
		{"partOfSpeech": "noun", "definitions": [{"definition": "a greeting"}]}
	]
}]`

func newDictionaryServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/entries/es/hola":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, strings.ReplaceAll(holaResponse, "AUDIO", srv.URL+"/audio/hola.mp3"))
		case "/api/v2/entries/es/broken":
			fmt.Fprint(w, "{not json")
		case "/api/v2/entries/es/busy":
			http.Error(w, "slow down", http.StatusTooManyRequests)
		case "/audio/hola.mp3":
			w.Write([]byte("ID3"))
		default:
			http.Error(w, `{"title":"No Definitions Found"}`, http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	srv := newDictionaryServer(t)
	c := NewClient(Config{BaseURL: srv.URL + "/", Language: "es"})

	got, err := c.Lookup(context.Background(), " hola ")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Pronunciation != "/ˈola/" {
		t.Fatalf("expected pronunciation from first phonetic text, got %q", got.Pronunciation)
	}
	if got.PartOfSpeech != "interjection" {
		t.Fatalf("expected first part of speech, got %q", got.PartOfSpeech)
	}
	if strings.Join(got.Definitions, "|") != "hello|hi|a greeting" {
		t.Fatalf("unexpected definitions %q", got.Definitions)
	}
	if len(got.Examples) != 1 || got.Examples[0] != "¡Hola, amigo!" {
		t.Fatalf("unexpected examples %q", got.Examples)
	}
	if got.AudioURL != srv.URL+"/audio/hola.mp3" {
		t.Fatalf("unexpected audio url %q", got.AudioURL)
	}

	audio, err := c.FetchAudio(context.Background(), got.AudioURL)
	if err != nil {
		t.Fatalf("FetchAudio() error = %v", err)
	}
	if string(audio) != "ID3" {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestLookupErrors(t *testing.T) {
	srv := newDictionaryServer(t)
	c := NewClient(Config{BaseURL: srv.URL, Language: "es", Timeout: time.Second})

	if _, err := c.Lookup(context.Background(), "zzzz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Lookup(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank word, got %v", err)
	}
	if _, err := c.Lookup(context.Background(), "broken"); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}

	_, err := c.Lookup(context.Background(), "busy")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	if c.baseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", c.baseURL)
	}
	if c.language != DefaultLanguage {
		t.Fatalf("expected default language, got %q", c.language)
	}
	if c.httpClient.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %v", c.httpClient.Timeout)
	}
}
