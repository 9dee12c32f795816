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

const newsAPIBaseURL = "https://newsapi.org/v2/top-headlines"

// NewsAPIOptions configures the NewsAPI top-headlines source.
type NewsAPIOptions struct {
	APIKey   string
	BaseURL  string
	Country  string
	PageSize int
	Timeout  time.Duration
}

// NewsAPI fetches top headlines from newsapi.org.
type NewsAPI struct {
	opts   NewsAPIOptions
	client *http.Client
}

// NewNewsAPI creates the source. It fails with ErrMissingCredential when no
// API key is configured.
func NewNewsAPI(opts NewsAPIOptions) (*NewsAPI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("newsapi: %w", ErrMissingCredential)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = newsAPIBaseURL
	}
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	return &NewsAPI{opts: opts, client: newHTTPClient(opts.Timeout)}, nil
}

func (n *NewsAPI) Tag() string { return database.SourceNewsAPI }

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Fetch requests one page of top headlines.
func (n *NewsAPI) Fetch(ctx context.Context) ([]database.NewsItem, error) {
	params := url.Values{
		"country":  {n.opts.Country},
		"pageSize": {strconv.Itoa(n.opts.PageSize)},
	}
	header := http.Header{"X-Api-Key": {n.opts.APIKey}}

	var result newsAPIResponse
	if err := getJSON(ctx, n.client, "newsapi", n.opts.BaseURL, params, header, &result); err != nil {
		return nil, err
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q: %s %s", result.Status, result.Code, result.Message)
	}

	items := make([]database.NewsItem, 0, len(result.Articles))
	for _, a := range result.Articles {
		if item, ok := normalizeNewsAPI(a); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func normalizeNewsAPI(a newsAPIArticle) (database.NewsItem, bool) {
	link := strings.TrimSpace(a.URL)
	if link == "" || link == "https://removed.com" || a.Title == "[Removed]" {
		return database.NewsItem{}, false
	}
	description := strings.TrimSpace(a.Description)
	return database.NewsItem{
		Source:      database.SourceNewsAPI,
		Title:       strings.TrimSpace(a.Title),
		Description: description,
		Content:     firstNonEmpty(a.Content, description),
		URL:         link,
		PublishedAt: parsePublished(a.PublishedAt),
	}, true
}
