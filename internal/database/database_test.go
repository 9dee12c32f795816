package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/TobiSchelling/newsdigest/internal/logging"
)

var ignoreFetchedAt = cmpopts.IgnoreFields(NewsItem{}, "FetchedAt")

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
	return db
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func item(id, url, title string, published *time.Time) NewsItem {
	return NewsItem{ID: id, Source: SourceNewsAPI, Title: title, URL: url, PublishedAt: published}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		if err := db.EnsureSchema(context.Background()); err != nil {
			t.Fatalf("EnsureSchema call %d: %v", i, err)
		}
	}
}

func TestInsertIfAbsentDuplicateURLIsNoop(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	inserted, err := db.InsertIfAbsent(ctx, item("id-1", "https://x/1", "First", nil))
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	inserted, err = db.InsertIfAbsent(ctx, item("id-2", "https://x/1", "Second", nil))
	if err != nil {
		t.Fatalf("duplicate insert should not error: %v", err)
	}
	if inserted {
		t.Error("expected duplicate insert to report false")
	}

	n, _ := db.Count(ctx)
	if n != 1 {
		t.Fatalf("expected exactly 1 row, got %d", n)
	}

	got, err := db.ByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if got.Title != "First" {
		t.Errorf("expected first title to survive, got %q", got.Title)
	}
	if _, err := db.ByID(ctx, "id-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected id must not exist, got %v", err)
	}
}

func TestInsertIfAbsentRejectsInvalidItem(t *testing.T) {
	db := openTestDB(t)
	_, err := db.InsertIfAbsent(context.Background(), item("id-1", "  ", "No URL", nil))
	if !errors.Is(err, ErrInvalidItem) {
		t.Errorf("expected ErrInvalidItem, got %v", err)
	}
}

func TestInsertBatchReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	batch := []NewsItem{
		item("a", "https://a.com", "A", at("2026-02-06T10:00:00Z")),
		item("b", "https://b.com", "B", at("2026-02-06T11:00:00Z")),
		item("c", "https://c.com", "C", nil),
	}

	first := db.InsertBatch(ctx, batch)
	if first.Inserted != 3 || first.Failed != 0 {
		t.Fatalf("first batch: %+v", first)
	}
	countAfterFirst, _ := db.Count(ctx)

	replay := make([]NewsItem, len(batch))
	for i, it := range batch {
		it.ID = fmt.Sprintf("replay-%d", i)
		replay[i] = it
	}
	second := db.InsertBatch(ctx, replay)
	if second.Inserted != 0 || second.Duplicates != 3 {
		t.Errorf("replay batch: %+v", second)
	}

	countAfterSecond, _ := db.Count(ctx)
	if countAfterFirst != countAfterSecond {
		t.Errorf("row count changed on replay: %d -> %d", countAfterFirst, countAfterSecond)
	}
}

func TestInsertBatchItemFailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	res := db.InsertBatch(ctx, []NewsItem{
		item("a", "https://a.com", "A", nil),
		item("b", "", "broken", nil),
		item("c", "https://c.com", "C", nil),
	})

	if res.Inserted != 2 || res.Failed != 1 {
		t.Fatalf("expected 2 inserted / 1 failed, got %+v", res)
	}
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], ErrInvalidItem) {
		t.Errorf("expected one ErrInvalidItem, got %v", res.Errors)
	}
	if n, _ := db.Count(ctx); n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}
}

func TestByDate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	db.InsertBatch(ctx, []NewsItem{
		item("early", "https://a.com", "Early", at("2026-02-06T00:00:00Z")),
		item("late", "https://b.com", "Late", at("2026-02-06T23:59:59Z")),
		item("other", "https://c.com", "Other day", at("2026-02-07T00:00:00Z")),
		item("undated", "https://d.com", "Undated", nil),
	})

	got, err := db.ByDate(ctx, time.Date(2026, 2, 6, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ByDate: %v", err)
	}
	want := []NewsItem{
		item("late", "https://b.com", "Late", at("2026-02-06T23:59:59Z")),
		item("early", "https://a.com", "Early", at("2026-02-06T00:00:00Z")),
	}
	if diff := cmp.Diff(want, got, ignoreFetchedAt); diff != "" {
		t.Errorf("ByDate mismatch (-want +got):\n%s", diff)
	}
}

func TestByDateIsBoundedByPageSize(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var batch []NewsItem
	base := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	for i := 0; i < DatePageSize+5; i++ {
		p := base.Add(time.Duration(i) * time.Minute)
		batch = append(batch, item(fmt.Sprintf("id-%d", i), fmt.Sprintf("https://x/%d", i), "T", &p))
	}
	db.InsertBatch(ctx, batch)

	got, err := db.ByDate(ctx, base)
	if err != nil {
		t.Fatalf("ByDate: %v", err)
	}
	if len(got) != DatePageSize {
		t.Fatalf("expected %d items, got %d", DatePageSize, len(got))
	}
	if got[0].ID != fmt.Sprintf("id-%d", DatePageSize+4) {
		t.Errorf("expected newest first, got %s", got[0].ID)
	}
}

func TestRecentNewestFirstUndatedLast(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	db.InsertBatch(ctx, []NewsItem{
		item("undated", "https://u.com", "U", nil),
		item("old", "https://o.com", "O", at("2025-12-01T08:00:00Z")),
		item("new", "https://n.com", "N", at("2026-01-01T08:00:00Z")),
	})

	got, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var ids []string
	for _, it := range got {
		ids = append(ids, it.ID)
	}
	if diff := cmp.Diff([]string{"new", "old", "undated"}, ids); diff != "" {
		t.Errorf("Recent order mismatch (-want +got):\n%s", diff)
	}

	limited, _ := db.Recent(ctx, 1)
	if len(limited) != 1 || limited[0].ID != "new" {
		t.Errorf("expected only the newest item, got %+v", limited)
	}
	if none, _ := db.Recent(ctx, 0); len(none) != 0 {
		t.Errorf("expected no items for limit 0, got %d", len(none))
	}
}

func TestByIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	in := NewsItem{
		ID:          "id-1",
		Source:      SourceWorldNews,
		Title:       "Economia cresce",
		Description: "PIB sobe",
		Content:     "PIB sobe",
		URL:         "https://x/1",
		PublishedAt: at("2026-02-06T12:34:56Z"),
	}
	if _, err := db.InsertIfAbsent(ctx, in); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := db.ByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if diff := cmp.Diff(in, *got, ignoreFetchedAt); diff != "" {
		t.Errorf("ByID mismatch (-want +got):\n%s", diff)
	}
	if got.FetchedAt == nil || time.Since(*got.FetchedAt) > time.Hour {
		t.Errorf("expected fetched_at set by the store, got %v", got.FetchedAt)
	}

	if _, err := db.ByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSelectorFallsBackToSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Postgres: PostgresConfig{Host: "127.0.0.1", Port: 1, ConnectTimeout: time.Second},
		SQLite:   SQLiteConfig{Path: filepath.Join(t.TempDir(), "news.db")},
	}
	sel := NewSelector(cfg, logging.Discard())

	if sel.Kind() != "" {
		t.Fatalf("expected undecided selector, got %q", sel.Kind())
	}

	first, err := sel.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer first.Close()
	if first.Kind() != KindSQLite || sel.Kind() != KindSQLite {
		t.Fatalf("expected sqlite fallback, got store=%q selector=%q", first.Kind(), sel.Kind())
	}

	second, err := sel.Connect(ctx)
	if err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	defer second.Close()
	if second.Kind() != KindSQLite {
		t.Errorf("expected decided kind to be reused, got %q", second.Kind())
	}

	// Both handles see the same schema and data.
	if _, err := first.InsertIfAbsent(ctx, item("a", "https://a.com", "A", nil)); err != nil {
		t.Fatalf("insert via first handle: %v", err)
	}
	if n, _ := second.Count(ctx); n != 1 {
		t.Errorf("expected second handle to see 1 row, got %d", n)
	}
}

func TestSelectorEmbeddedWithoutHost(t *testing.T) {
	sel := NewSelector(Config{SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "news.db")}}, logging.Discard())
	store, err := sel.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer store.Close()
	if store.Kind() != KindSQLite {
		t.Errorf("expected sqlite, got %q", store.Kind())
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Database: "news", User: "app", Password: "p@ss word"}
	want := "postgres://app:p%40ss%20word@db:5432/news?connect_timeout=3&sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestNullTimeScan(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  *time.Time
	}{
		{name: "null", value: nil, want: nil},
		{name: "stored layout", value: "2026-02-06T12:00:00Z", want: at("2026-02-06T12:00:00Z")},
		{name: "sqlite default", value: []byte("2026-02-06 12:00:00"), want: at("2026-02-06T12:00:00Z")},
		{name: "time value", value: *at("2026-02-06T12:00:00Z"), want: at("2026-02-06T12:00:00Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n nullTime
			if err := n.Scan(tt.value); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if diff := cmp.Diff(tt.want, n.ptr()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	var n nullTime
	if err := n.Scan("yesterday"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestParseDay(t *testing.T) {
	d, ok := ParseDay("2026-02-06")
	if !ok || d.Format(DayLayout) != "2026-02-06" {
		t.Errorf("ParseDay valid: %v %v", d, ok)
	}
	d, ok = ParseDay("not-a-date")
	if ok || d.Format(DayLayout) != GetToday() {
		t.Errorf("ParseDay invalid should fall back to today: %v %v", d, ok)
	}
}
