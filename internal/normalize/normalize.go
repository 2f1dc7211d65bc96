// Package normalize prepares raw input text before it is handed to a model.
package normalize

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyInput is returned when input is empty or whitespace-only after
// normalization. Callers should prompt the user for text rather than treat
// this as a parse failure.
var ErrEmptyInput = errors.New("input text is empty")

// DefaultLanguage is used when no language is configured or the configured
// tag cannot be parsed.
const DefaultLanguage = "en"

// Text trims the input, collapses internal whitespace runs to single spaces
// and applies Unicode NFC normalization. Returns ErrEmptyInput if nothing
// remains.
func Text(raw string) (string, error) {
	s := norm.NFC.String(raw)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", ErrEmptyInput
	}
	return s, nil
}

// Language canonicalizes a BCP 47 language tag ("EN" -> "en",
// "en-us" -> "en-US"). Unparseable or empty tags fall back to fallback,
// or DefaultLanguage if fallback is itself empty.
func Language(tag, fallback string) string {
	if fallback == "" {
		fallback = DefaultLanguage
	}
	if strings.TrimSpace(tag) == "" {
		return fallback
	}
	t, err := language.Parse(tag)
	if err != nil {
		return fallback
	}
	return t.String()
}
