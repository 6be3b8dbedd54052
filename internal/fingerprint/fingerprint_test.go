package fingerprint

import "testing"

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"trims and lowercases", "  Hola \r\n", "hola"},
		{"collapses whitespace", "buenos   días\r\n  amigos", "buenos días amigos"},
		{"folds sharp s", "Straße", "strasse"},
		{"composes accents", "cafe\u0301", "café"},
		{"empty", "   ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.expected {
				t.Errorf("Expected normalized string to be '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		// Hash for "q\na\nc"
		expectedHash := "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2"
		if hash := Hash("Q", "A", "C"); hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		if Hash("  what is go? ", "A language.") != Hash("What Is Go?", "a language.") {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})
}

func TestCardID(t *testing.T) {
	t.Run("generates correct id", func(t *testing.T) {
		// Hash for "deck-1\nhola"
		expected := "532c9defc26b3d417bc5203d83ede5e5e07e45c5d64768424f19ad63fc341383"
		if id := CardID("deck-1", " Hola "); id != expected {
			t.Errorf("Expected id '%s', but got '%s'", expected, id)
		}
	})

	t.Run("id is deterministic across spelling variants", func(t *testing.T) {
		if CardID("d", "Café") != CardID("d", "cafe\u0301") {
			t.Error("Expected composed and decomposed forms to give the same id")
		}
	})

	t.Run("deck scopes the id", func(t *testing.T) {
		if CardID("d1", "hola") == CardID("d2", "hola") {
			t.Error("Expected the same term in different decks to have different ids")
		}
	})

	t.Run("separator prevents collisions", func(t *testing.T) {
		if CardID("ab", "c") == CardID("a", "bc") {
			t.Error("Expected ids to differ when the split point moves")
		}
	})
}
