package database

import "time"

// Kind identifies the engine backing a Store.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// Source tags of the built-in providers. The set is open: any non-empty tag
// is accepted by the store.
const (
	SourceNewsAPI   = "newsapi"
	SourceWorldNews = "worldnews"
	SourceRSS       = "rss"
)

// NewsItem is the unit of storage. URL is the deduplication key; ID is
// assigned by the collector before the insert attempt.
type NewsItem struct {
	ID          string
	Source      string
	Title       string
	Description string
	Content     string
	URL         string
	PublishedAt *time.Time
	FetchedAt   *time.Time
}

// BatchResult summarizes one InsertBatch call.
type BatchResult struct {
	Inserted   int
	Duplicates int
	Failed     int
	Errors     []ItemError
}

// ItemError is a per-item insert failure.
type ItemError struct {
	URL string
	Err error
}

func (e ItemError) Error() string {
	return e.URL + ": " + e.Err.Error()
}

func (e ItemError) Unwrap() error {
	return e.Err
}
