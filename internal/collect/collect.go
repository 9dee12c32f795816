// Package collect runs one long-lived collection loop per news provider:
// fetch, normalize, write through the store, sleep, repeat.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/newsdigest/internal/database"
)

// DefaultInterval is the pause between two cycles of one collector.
const DefaultInterval = 10800 * time.Second

// ErrMissingCredential marks a provider that cannot start because its API key
// is not set. It is the only fatal collector condition.
var ErrMissingCredential = errors.New("missing API credential")

// Source fetches one batch from a provider and normalizes it. Returned items
// carry the provider tag but no ID.
type Source interface {
	Tag() string
	Fetch(ctx context.Context) ([]database.NewsItem, error)
}

// Result holds the results of one collection cycle.
type Result struct {
	Provider    string
	TotalFound  int
	NewArticles int
	Duplicates  int
	Failed      int
}

// Collector drives the cycle for a single Source. It owns its store handle.
type Collector struct {
	source   Source
	store    database.Store
	interval time.Duration
	log      *slog.Logger
	newID    func() string
}

// NewCollector creates a collector. A non-positive interval means DefaultInterval.
func NewCollector(source Source, store database.Store, interval time.Duration, log *slog.Logger) *Collector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Collector{
		source:   source,
		store:    store,
		interval: interval,
		log:      log.With("component", "collector", "provider", source.Tag()),
		newID:    uuid.NewString,
	}
}

// CollectOnce runs a single fetch -> normalize -> write pass. A fetch error
// aborts the cycle; per-item insert errors are logged and counted only.
func (c *Collector) CollectOnce(ctx context.Context) (*Result, error) {
	items, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", c.source.Tag(), err)
	}

	for i := range items {
		// Assigned before the insert attempt; a rejected id is never reused.
		items[i].ID = c.newID()
		if items[i].Source == "" {
			items[i].Source = c.source.Tag()
		}
	}

	batch := c.store.InsertBatch(ctx, items)
	for _, e := range batch.Errors {
		c.log.Warn("insert failed", "url", e.URL, "err", e.Err)
	}

	r := &Result{
		Provider:    c.source.Tag(),
		TotalFound:  len(items),
		NewArticles: batch.Inserted,
		Duplicates:  batch.Duplicates,
		Failed:      batch.Failed,
	}
	c.log.Info("collection complete",
		"found", r.TotalFound, "new", r.NewArticles, "duplicates", r.Duplicates, "failed", r.Failed)
	return r, nil
}

// Run collects until ctx is cancelled. A failing or panicking cycle is logged
// and the loop proceeds to the next sleep.
func (c *Collector) Run(ctx context.Context) {
	c.log.Info("collector started", "interval", c.interval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("collector stopped")
			return
		case <-timer.C:
		}

		c.cycle(ctx)
		timer.Reset(c.interval)
	}
}

func (c *Collector) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("collector cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if _, err := c.CollectOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.Error("collector cycle failed", "err", err)
	}
}
