package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ErrorPrefix tags every failure string the Assistant returns.
const ErrorPrefix = "Error:"

const (
	maxSummaryInput      = 15000
	summaryTemperature   = 0.5
	translateTemperature = 0.3
)

var languageNames = map[string]string{
	"pt": "português (pt-BR)",
	"en": "English",
}

// Assistant turns plain text into summaries and translations. It never
// returns an error: failures come back as text starting with ErrorPrefix.
type Assistant struct {
	provider  Provider
	maxTokens int
	log       *slog.Logger
}

// NewAssistant wraps provider. A nil provider yields an Assistant that
// answers every request with a not-configured error string.
func NewAssistant(provider Provider, maxTokens int, log *slog.Logger) *Assistant {
	return &Assistant{provider: provider, maxTokens: maxTokens, log: log.With("component", "llm")}
}

// IsError reports whether s is a failure string from the Assistant.
func IsError(s string) bool {
	return strings.HasPrefix(s, ErrorPrefix)
}

// Available reports whether a provider is wired in.
func (a *Assistant) Available() bool {
	return a != nil && a.provider != nil
}

// Summarize writes one consolidated summary of texts in lang.
func (a *Assistant) Summarize(ctx context.Context, texts []string, lang string) string {
	if !a.Available() {
		return ErrorPrefix + " summarization provider not configured"
	}

	var parts []string
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	combined := truncateRunes(strings.Join(parts, "\n\n"), maxSummaryInput)
	prompt := fmt.Sprintf(
		"Analyze the following news items and write one consolidated summary in %s. "+
			"Highlight the main points and the chronology of events where relevant. "+
			"Keep it journalistic, direct and neutral. Use markdown.\n\nNews:\n%s",
		languageName(lang), combined)

	out, err := a.provider.Generate(ctx, prompt, Options{MaxTokens: a.maxTokens, Temperature: summaryTemperature})
	if err != nil {
		a.log.Error("summary failed", "provider", a.provider.Name(), "err", err)
		return fmt.Sprintf("%s generating summary: %v", ErrorPrefix, err)
	}
	return StripCodeFence(out)
}

// Translate translates text into the target language.
func (a *Assistant) Translate(ctx context.Context, text, target string) string {
	if !a.Available() {
		return ErrorPrefix + " translation provider not configured"
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	prompt := fmt.Sprintf(
		"Translate the following text into %s. "+
			"Keep the journalistic tone and the original formatting where possible. "+
			"Reply with the translation only.\n\nText:\n%s",
		languageName(target), text)

	out, err := a.provider.Generate(ctx, prompt, Options{MaxTokens: a.maxTokens, Temperature: translateTemperature})
	if err != nil {
		a.log.Error("translation failed", "provider", a.provider.Name(), "err", err)
		return fmt.Sprintf("%s translating: %v", ErrorPrefix, err)
	}
	return StripCodeFence(out)
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	if code == "" {
		return languageNames["pt"]
	}
	return code
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
