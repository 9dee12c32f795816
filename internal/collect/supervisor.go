package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/newsdigest/internal/config"
	"github.com/TobiSchelling/newsdigest/internal/database"
)

// Connector hands out store handles. *database.Selector satisfies it.
type Connector interface {
	Connect(ctx context.Context) (database.Store, error)
}

// Supervisor starts one Collector per Source, each on its own goroutine with
// its own store handle. Collectors share nothing but the process-wide
// engine decision made by the Connector.
type Supervisor struct {
	conn     Connector
	sources  []Source
	interval time.Duration
	log      *slog.Logger
}

// NewSupervisor creates a supervisor over the given sources.
func NewSupervisor(conn Connector, sources []Source, interval time.Duration, log *slog.Logger) *Supervisor {
	return &Supervisor{conn: conn, sources: sources, interval: interval, log: log}
}

// Run blocks until ctx is cancelled or every collector has exited.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.sources) == 0 {
		return errors.New("no news sources configured")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		g.Go(func() error {
			store, err := s.conn.Connect(ctx)
			if err != nil {
				s.log.Error("collector could not open store", "provider", src.Tag(), "err", err)
				return nil
			}
			defer store.Close()

			NewCollector(src, store, s.interval, s.log).Run(ctx)
			return nil
		})
	}
	return g.Wait()
}

// CollectOnce runs a single cycle for every source concurrently and returns
// the per-source results in source order. Failed sources have a nil entry.
func (s *Supervisor) CollectOnce(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(s.sources))
	errs := make([]error, len(s.sources))

	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			store, err := s.conn.Connect(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: opening store: %w", src.Tag(), err)
				return nil
			}
			defer store.Close()

			results[i], errs[i] = NewCollector(src, store, s.interval, s.log).CollectOnce(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// BuildSources creates every enabled source from config. A provider whose key
// is missing is logged and left out; the others still run.
func BuildSources(cfg *config.Config, log *slog.Logger) []Source {
	var sources []Source
	timeout := cfg.Collection.Timeout

	if na := cfg.Sources.APIs.NewsAPI; na.Enabled {
		src, err := NewNewsAPI(NewsAPIOptions{
			APIKey:   cfg.NewsAPIKey(),
			BaseURL:  na.BaseURL,
			Country:  na.Country,
			PageSize: na.PageSize,
			Timeout:  timeout,
		})
		if err != nil {
			log.Error("newsapi collector disabled", "env", na.APIKeyEnv, "err", err)
		} else {
			sources = append(sources, src)
		}
	}

	if wn := cfg.Sources.APIs.WorldNews; wn.Enabled {
		src, err := NewWorldNews(WorldNewsOptions{
			APIKey:          cfg.WorldNewsKey(),
			BaseURL:         wn.BaseURL,
			SourceCountries: wn.SourceCountries,
			Language:        wn.Language,
			Number:          wn.Number,
			Timeout:         timeout,
		})
		if err != nil {
			log.Error("worldnews collector disabled", "env", wn.APIKeyEnv, "err", err)
		} else {
			sources = append(sources, src)
		}
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, 0, len(cfg.Sources.Feeds))
		for _, f := range cfg.Sources.Feeds {
			feeds = append(feeds, FeedConfig{URL: f.URL, Name: f.Name})
		}
		sources = append(sources, NewFeeds(feeds, timeout, log))
	}

	return sources
}
