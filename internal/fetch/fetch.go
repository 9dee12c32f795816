// Package fetch pulls the readable body of an article page on demand. The
// result is shown to the reader and never written back to storage.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/newsdigest/internal/database"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 5 << 20
	minTextLength  = 100
)

// NewsAPI cuts content at ~200 chars and appends "… [+1234 chars]".
var truncationMarker = regexp.MustCompile(`\s*…?\s*\[\+\d+ chars\]\s*$`)

// Extractor fetches full article text via HTTP + readability extraction.
type Extractor struct {
	client *http.Client
	log    *slog.Logger
}

// NewExtractor creates an extractor. Zero timeout means 15s.
func NewExtractor(timeout time.Duration, log *slog.Logger) *Extractor {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		log: log.With("component", "fetch"),
	}
}

// IsTruncated reports whether stored content is a provider excerpt rather
// than the article body.
func IsTruncated(content string) bool {
	return truncationMarker.MatchString(content)
}

// StripTruncationMarker removes a trailing "[+N chars]" marker.
func StripTruncationMarker(content string) string {
	return strings.TrimSpace(truncationMarker.ReplaceAllString(content, ""))
}

// BestText returns the most complete text available for item: stored
// content when it is whole, otherwise the extracted page text, otherwise
// whatever was stored.
func (e *Extractor) BestText(ctx context.Context, item database.NewsItem) string {
	stored := strings.TrimSpace(item.Content)
	if stored == "" {
		stored = strings.TrimSpace(item.Description)
	}
	if stored != "" && !IsTruncated(stored) {
		return stored
	}

	text, err := e.FullText(ctx, item.URL)
	if err != nil {
		e.log.Warn("full text extraction failed", "url", item.URL, "err", err)
	}
	if text != "" {
		return text
	}
	return StripTruncationMarker(stored)
}

// FullText downloads articleURL and returns its readable text. A page with
// no meaningful text yields "" without error.
func (e *Extractor) FullText(ctx context.Context, articleURL string) (string, error) {
	parsedURL, err := url.Parse(articleURL)
	if err != nil || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid article url %q", articleURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "newsdigest/1.0 (news aggregator)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", articleURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &HTTPError{Code: resp.StatusCode}
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", articleURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len([]rune(text)) > minTextLength {
		return text, nil
	}
	return "", nil
}

// HTTPError is a 4xx/5xx answer from the article host.
type HTTPError struct {
	Code int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}
