package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/newsdigest/internal/database"
)

const worldNewsBaseURL = "https://api.worldnewsapi.com/search-news"

// WorldNewsOptions configures the World News API search source.
type WorldNewsOptions struct {
	APIKey          string
	BaseURL         string
	SourceCountries string
	Language        string
	Number          int
	Timeout         time.Duration
}

// WorldNews searches worldnewsapi.com filtered by country and language.
type WorldNews struct {
	opts   WorldNewsOptions
	client *http.Client
}

// NewWorldNews creates the source. It fails with ErrMissingCredential when no
// API key is configured.
func NewWorldNews(opts WorldNewsOptions) (*WorldNews, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("worldnews: %w", ErrMissingCredential)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = worldNewsBaseURL
	}
	if opts.SourceCountries == "" {
		opts.SourceCountries = "br"
	}
	if opts.Language == "" {
		opts.Language = "pt"
	}
	if opts.Number <= 0 {
		opts.Number = 10
	}
	return &WorldNews{opts: opts, client: newHTTPClient(opts.Timeout)}, nil
}

func (w *WorldNews) Tag() string { return database.SourceWorldNews }

// The API has shipped both "news" and "articles" envelopes and several
// timestamp field names; all are accepted.
type worldNewsResponse struct {
	News     []worldNewsArticle `json:"news"`
	Articles []worldNewsArticle `json:"articles"`
}

type worldNewsArticle struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishDate string `json:"publish_date"`
	PublishedAt string `json:"publishedAt"`
	Published   string `json:"published"`
}

// Fetch runs one search request.
func (w *WorldNews) Fetch(ctx context.Context) ([]database.NewsItem, error) {
	params := url.Values{
		"source-countries": {w.opts.SourceCountries},
		"language":         {w.opts.Language},
		"number":           {strconv.Itoa(w.opts.Number)},
	}
	header := http.Header{"X-Api-Key": {w.opts.APIKey}}

	var result worldNewsResponse
	if err := getJSON(ctx, w.client, "worldnews", w.opts.BaseURL, params, header, &result); err != nil {
		return nil, err
	}

	raw := result.News
	if len(raw) == 0 {
		raw = result.Articles
	}

	items := make([]database.NewsItem, 0, len(raw))
	for _, a := range raw {
		if item, ok := normalizeWorldNews(a); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func normalizeWorldNews(a worldNewsArticle) (database.NewsItem, bool) {
	link := strings.TrimSpace(a.URL)
	if link == "" {
		return database.NewsItem{}, false
	}
	description := firstNonEmpty(a.Text, a.Description)
	return database.NewsItem{
		Source:      database.SourceWorldNews,
		Title:       strings.TrimSpace(a.Title),
		Description: description,
		Content:     firstNonEmpty(a.Text, description),
		URL:         link,
		PublishedAt: parsePublished(firstNonEmpty(a.PublishDate, a.PublishedAt, a.Published)),
	}, true
}
