package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// SQLite is the embedded, file-backed engine.
type SQLite struct {
	sqlStore
	path string
}

var _ Store = (*SQLite)(nil)

// OpenSQLite creates or opens a SQLite database at dbPath. The schema is not
// touched; call EnsureSchema.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every new connection would see its own empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &SQLite{
		sqlStore: sqlStore{
			db:         conn,
			kind:       KindSQLite,
			sb:         sq.StatementBuilder.PlaceholderFormat(sq.Question),
			encodeTime: encodeSQLiteTime,
			migrate:    migrateSQLite,
		},
		path: dbPath,
	}, nil
}

// sqliteDSN applies the pragmas to every pooled connection. Collectors hold
// their own handles on the same file, so writers wait on busy_timeout
// instead of failing with SQLITE_BUSY.
func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}
