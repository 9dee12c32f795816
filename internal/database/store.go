package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const table = "news_items"

var columns = []string{"id", "source", "title", "description", "content", "url", "published_at", "fetched_at"}

// sqlStore is the engine-independent part of both stores. Engines differ in
// placeholder syntax (sb) and in how timestamps travel as arguments.
type sqlStore struct {
	db         *sql.DB
	kind       Kind
	sb         sq.StatementBuilderType
	encodeTime func(time.Time) any
	migrate    func(ctx context.Context, db *sql.DB) error
}

func (s *sqlStore) Kind() Kind {
	return s.kind
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) EnsureSchema(ctx context.Context) error {
	return s.migrate(ctx, s.db)
}

func (s *sqlStore) InsertIfAbsent(ctx context.Context, item NewsItem) (bool, error) {
	return s.insert(ctx, s.db, item)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *sqlStore) insert(ctx context.Context, ex execer, item NewsItem) (bool, error) {
	if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.URL) == "" {
		return false, fmt.Errorf("%w: id and url are required", ErrInvalidItem)
	}

	var published any
	if item.PublishedAt != nil {
		published = s.encodeTime(*item.PublishedAt)
	}

	query, args, err := s.sb.Insert(table).
		Columns("id", "source", "title", "description", "content", "url", "published_at").
		Values(item.ID, item.Source, item.Title, item.Description, item.Content, item.URL, published).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building insert: %w", err)
	}

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("inserting %s: %w", item.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) InsertBatch(ctx context.Context, items []NewsItem) BatchResult {
	var r BatchResult
	if len(items) == 0 {
		return r
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		r.Failed = len(items)
		for _, it := range items {
			r.Errors = append(r.Errors, ItemError{URL: it.URL, Err: fmt.Errorf("begin batch: %w", err)})
		}
		return r
	}

	for _, item := range items {
		inserted, err := s.insertSavepoint(ctx, tx, item)
		switch {
		case err != nil:
			r.Failed++
			r.Errors = append(r.Errors, ItemError{URL: item.URL, Err: err})
		case inserted:
			r.Inserted++
		default:
			r.Duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		// Nothing from this batch survived.
		for _, it := range items {
			r.Errors = append(r.Errors, ItemError{URL: it.URL, Err: fmt.Errorf("commit batch: %w", err)})
		}
		r.Failed, r.Inserted, r.Duplicates = len(items), 0, 0
	}
	return r
}

// insertSavepoint isolates one insert so that its failure leaves the
// enclosing transaction usable (Postgres aborts a transaction on error).
func (s *sqlStore) insertSavepoint(ctx context.Context, tx *sql.Tx, item NewsItem) (bool, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT news_item"); err != nil {
		return false, fmt.Errorf("savepoint: %w", err)
	}
	inserted, err := s.insert(ctx, tx, item)
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT news_item"); rbErr != nil {
			return false, errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT news_item"); err != nil {
		return false, fmt.Errorf("release savepoint: %w", err)
	}
	return inserted, nil
}

func (s *sqlStore) newestFirst(b sq.SelectBuilder) sq.SelectBuilder {
	return b.OrderBy("published_at DESC NULLS LAST", "fetched_at DESC", "id")
}

func (s *sqlStore) ByDate(ctx context.Context, day time.Time) ([]NewsItem, error) {
	start, end := DayBounds(day)
	b := s.sb.Select(columns...).From(table).
		Where(sq.GtOrEq{"published_at": s.encodeTime(start)}).
		Where(sq.Lt{"published_at": s.encodeTime(end)}).
		Limit(DatePageSize)
	return s.query(ctx, s.newestFirst(b))
}

func (s *sqlStore) Recent(ctx context.Context, limit int) ([]NewsItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	b := s.sb.Select(columns...).From(table).Limit(uint64(limit))
	return s.query(ctx, s.newestFirst(b))
}

func (s *sqlStore) ByID(ctx context.Context, id string) (*NewsItem, error) {
	items, err := s.query(ctx, s.sb.Select(columns...).From(table).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

func (s *sqlStore) Count(ctx context.Context) (int, error) {
	query, args, err := s.sb.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

func (s *sqlStore) query(ctx context.Context, b sq.SelectBuilder) ([]NewsItem, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]NewsItem, error) {
	var items []NewsItem
	for rows.Next() {
		var (
			it                        NewsItem
			source, title, desc, body sql.NullString
			published, fetched        nullTime
		)
		if err := rows.Scan(&it.ID, &source, &title, &desc, &body, &it.URL, &published, &fetched); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Source, it.Title, it.Description, it.Content = source.String, title.String, desc.String, body.String
		it.PublishedAt, it.FetchedAt = published.ptr(), fetched.ptr()
		items = append(items, it)
	}
	return items, rows.Err()
}
