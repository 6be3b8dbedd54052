package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize cleans a piece of card text so that spelling variants of the same
// word compare equal. It composes to NFC, case-folds, normalizes line endings
// and collapses runs of whitespace into a single space.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = norm.NFC.String(s)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// CardID returns the deterministic id of the card holding term in deck.
// Importing the same term into the same deck twice yields the same id.
func CardID(deckID, term string) string {
	// Joined with a newline so "ab"+"c" and "a"+"bc" differ.
	key := deckID + "\n" + Normalize(term)
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum)
}

// Hash returns the SHA-256 hex digest of the normalized parts.
func Hash(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = Normalize(p)
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "\n")))
	return fmt.Sprintf("%x", sum)
}
