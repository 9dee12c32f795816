// Package langdetect guesses the dominant language of a text span by counting
// stop words. It is a heuristic: false positives are expected.
package langdetect

import (
	"sort"

	"github.com/TobiSchelling/newsdigest/internal/textproc"
)

// Language is an ISO 639-1 language code.
type Language string

const (
	English    Language = "en"
	Portuguese Language = "pt"
)

// Detector scores text against a fixed stop-word set per language.
type Detector struct {
	fallback  Language
	stopWords map[Language]map[string]struct{}
	order     []Language
}

// New returns a Detector for English and Portuguese that falls back to
// fallback on empty input and ties. An empty fallback means Portuguese.
func New(fallback Language) *Detector {
	if fallback == "" {
		fallback = Portuguese
	}
	d := &Detector{fallback: fallback, stopWords: make(map[Language]map[string]struct{})}
	d.Register(English, englishStopWords)
	d.Register(Portuguese, portugueseStopWords)
	return d
}

// Register adds (or replaces) the stop-word set for lang. Not safe to call
// concurrently with Detect.
func (d *Detector) Register(lang Language, stopWords map[string]struct{}) {
	if _, ok := d.stopWords[lang]; !ok {
		d.order = append(d.order, lang)
		sort.Slice(d.order, func(i, j int) bool { return d.order[i] < d.order[j] })
	}
	d.stopWords[lang] = stopWords
}

// Default returns the fallback language.
func (d *Detector) Default() Language {
	return d.fallback
}

// Languages returns the registered languages in a stable order.
func (d *Detector) Languages() []Language {
	return append([]Language(nil), d.order...)
}

// Detect returns the language whose stop words cover the most distinct
// tokens of text. Empty input, a tie for the top score, or no hits at all
// yield the fallback language.
func (d *Detector) Detect(text string) Language {
	tokens := textproc.TokenSet(text)
	if len(tokens) == 0 {
		return d.fallback
	}

	best, bestScore, tied := d.fallback, 0, false
	for _, lang := range d.order {
		score := 0
		for tok := range tokens {
			if _, ok := d.stopWords[lang][tok]; ok {
				score++
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = lang, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	if bestScore == 0 || tied {
		return d.fallback
	}
	return best
}
