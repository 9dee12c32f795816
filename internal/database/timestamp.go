package database

import (
	"fmt"
	"time"
)

// sqliteTimeLayout is how timestamps are stored in SQLite TEXT columns. It
// sorts lexically in time order.
const sqliteTimeLayout = "2006-01-02T15:04:05Z"

var timeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// nullTime scans a nullable timestamp delivered either as time.Time
// (Postgres, typed SQLite columns) or as text (SQLite).
type nullTime struct {
	t     time.Time
	valid bool
}

func (n *nullTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		n.valid = false
		return nil
	case time.Time:
		n.t, n.valid = x.UTC(), true
		return nil
	case string:
		return n.parse(x)
	case []byte:
		return n.parse(string(x))
	default:
		return fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.t, n.valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}

func (n nullTime) ptr() *time.Time {
	if !n.valid {
		return nil
	}
	t := n.t
	return &t
}

func encodeSQLiteTime(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

func encodePostgresTime(t time.Time) any {
	return t.UTC()
}
