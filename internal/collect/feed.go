package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/newsdigest/internal/database"
)

const maxPerFeed = 20

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// Feeds reads RSS/Atom feeds. It needs no credential.
type Feeds struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
	log    *slog.Logger
}

// NewFeeds creates a feed source over the given feeds.
func NewFeeds(feeds []FeedConfig, timeout time.Duration, log *slog.Logger) *Feeds {
	parser := gofeed.NewParser()
	parser.Client = newHTTPClient(timeout)
	parser.UserAgent = userAgent
	return &Feeds{feeds: feeds, parser: parser, log: log.With("component", "collector", "provider", database.SourceRSS)}
}

func (f *Feeds) Tag() string { return database.SourceRSS }

// Fetch parses every feed. A broken feed is logged and skipped; the fetch
// fails only when every feed failed.
func (f *Feeds) Fetch(ctx context.Context) ([]database.NewsItem, error) {
	var (
		all  []database.NewsItem
		errs []error
	)
	for _, fc := range f.feeds {
		feed, err := f.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			f.log.Warn("failed to parse feed", "url", fc.URL, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", fc.URL, err))
			continue
		}

		n := 0
		for _, it := range feed.Items {
			if n >= maxPerFeed {
				break
			}
			if item, ok := normalizeFeedItem(it); ok {
				all = append(all, item)
				n++
			}
		}
		f.log.Debug("parsed feed", "url", fc.URL, "name", fc.Name, "entries", n)
	}

	if len(errs) > 0 && len(errs) == len(f.feeds) {
		return nil, errors.Join(errs...)
	}
	return all, nil
}

func normalizeFeedItem(item *gofeed.Item) (database.NewsItem, bool) {
	link := firstNonEmpty(item.Link, item.GUID)
	if link == "" {
		return database.NewsItem{}, false
	}

	var published *time.Time
	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		published = &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		published = &t
	default:
		published = parsePublished(firstNonEmpty(item.Published, item.Updated))
	}

	description := stripHTML(item.Description)
	return database.NewsItem{
		Source:      database.SourceRSS,
		Title:       strings.TrimSpace(item.Title),
		Description: description,
		Content:     firstNonEmpty(stripHTML(item.Content), description),
		URL:         link,
		PublishedAt: published,
	}, true
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(s)

	return strings.Join(strings.Fields(s), " ")
}
