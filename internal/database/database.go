// Package database is the storage abstraction for news items: one Store
// contract over a networked Postgres engine and an embedded SQLite engine.
package database

import (
	"context"
	"errors"
	"time"
)

// DatePageSize bounds ByDate results.
const DatePageSize = 20

var (
	// ErrNotFound is returned by ByID when no item has the given id.
	ErrNotFound = errors.New("news item not found")
	// ErrInvalidItem is returned for items that cannot be stored (no id or url).
	ErrInvalidItem = errors.New("invalid news item")
)

// Store is the contract every engine implements. Records are append-only:
// there is no update or delete path.
type Store interface {
	// Kind reports which engine backs the store.
	Kind() Kind
	// EnsureSchema creates the news relation if absent. Idempotent.
	EnsureSchema(ctx context.Context) error
	// InsertIfAbsent stores item unless its URL already exists. A URL
	// collision is a no-op reported as (false, nil).
	InsertIfAbsent(ctx context.Context, item NewsItem) (bool, error)
	// InsertBatch inserts items in one transaction. Failing items are
	// rolled back individually and never abort the rest of the batch.
	InsertBatch(ctx context.Context, items []NewsItem) BatchResult
	// ByDate returns items published on the UTC calendar date of day,
	// newest first, at most DatePageSize.
	ByDate(ctx context.Context, day time.Time) ([]NewsItem, error)
	// Recent returns the limit most recently published items, newest first.
	Recent(ctx context.Context, limit int) ([]NewsItem, error)
	// ByID returns one item or ErrNotFound.
	ByID(ctx context.Context, id string) (*NewsItem, error)
	// Count returns the number of stored items.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Config holds the connection parameters for both engines. An empty
// Postgres.Host means embedded mode.
type Config struct {
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig describes the networked engine.
type PostgresConfig struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration
}

// SQLiteConfig describes the embedded engine.
type SQLiteConfig struct {
	Path string
}
