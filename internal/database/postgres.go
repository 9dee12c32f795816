package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

// DefaultConnectTimeout bounds the first contact with Postgres.
const DefaultConnectTimeout = 3 * time.Second

// Postgres is the networked engine.
type Postgres struct {
	sqlStore
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects to Postgres and verifies the connection within the
// configured connect timeout.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to postgres at %s: %w", cfg.Host, err)
	}

	return &Postgres{sqlStore{
		db:         conn,
		kind:       KindPostgres,
		sb:         sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		encodeTime: encodePostgresTime,
		migrate:    migratePostgres,
	}}, nil
}

// DSN renders the config as a lib/pq connection URL.
func (c PostgresConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", strconv.Itoa(int(c.timeout().Round(time.Second)/time.Second)))

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	return u.String()
}

func (c PostgresConfig) timeout() time.Duration {
	if c.ConnectTimeout < time.Second {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}
