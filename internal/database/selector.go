package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Selector owns the process-wide engine choice. The first successful
// Connect decides the engine; every later Connect opens the same kind
// without re-trying the other one. The schema is ensured once, on the
// connection that made the decision.
type Selector struct {
	cfg Config
	log *slog.Logger

	mu   sync.Mutex
	kind Kind
}

// NewSelector creates an undecided Selector.
func NewSelector(cfg Config, log *slog.Logger) *Selector {
	return &Selector{cfg: cfg, log: log.With("component", "storage")}
}

// Kind returns the decided engine, or "" before the first successful Connect.
func (s *Selector) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Connect returns a new live Store. Callers own the returned Store and must
// Close it.
func (s *Selector) Connect(ctx context.Context) (Store, error) {
	s.mu.Lock()
	kind := s.kind
	if kind == "" {
		defer s.mu.Unlock()
		return s.decide(ctx)
	}
	s.mu.Unlock()

	switch kind {
	case KindPostgres:
		return OpenPostgres(ctx, s.cfg.Postgres)
	default:
		return OpenSQLite(s.cfg.SQLite.Path)
	}
}

// decide runs with s.mu held.
func (s *Selector) decide(ctx context.Context) (Store, error) {
	var store Store

	if s.cfg.Postgres.Host != "" {
		pg, err := OpenPostgres(ctx, s.cfg.Postgres)
		if err == nil {
			s.log.Info("connected to postgres", "host", s.cfg.Postgres.Host)
			store = pg
		} else {
			s.log.Warn("postgres unavailable, falling back to sqlite", "err", err)
		}
	}

	if store == nil {
		lite, err := OpenSQLite(s.cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		s.log.Info("using sqlite database", "path", s.cfg.SQLite.Path)
		store = lite
	}

	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	s.kind = store.Kind()
	return store, nil
}
