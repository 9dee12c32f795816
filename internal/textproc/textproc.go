// Package textproc normalizes free text into comparable tokens.
package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Clean lowercases text, composes accents (NFC), replaces punctuation with
// spaces and squeezes whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ToLower(norm.NFC.String(text))
	s = punctuation.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens returns the cleaned whitespace-separated tokens of text, in order.
func Tokens(text string) []string {
	return strings.Fields(Clean(text))
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Join concatenates the non-blank parts with single spaces.
func Join(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
