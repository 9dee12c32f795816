package database

import (
	"strings"
	"time"
)

// DayLayout is the calendar-date format used in URLs and the CLI.
const DayLayout = "2006-01-02"

// GetToday returns today's UTC date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().UTC().Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD date, falling back to today (UTC) when raw is
// empty or invalid. The second return reports whether raw was used.
func ParseDay(raw string) (time.Time, bool) {
	if d, err := time.Parse(DayLayout, strings.TrimSpace(raw)); err == nil {
		return d, true
	}
	d, _ := time.Parse(DayLayout, GetToday())
	return d, false
}

// DayBounds returns the half-open UTC interval [start, end) covering the
// calendar date of day.
func DayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// FormatDayDisplay formats a date for human-readable display: "Feb 06, 2026".
func FormatDayDisplay(day time.Time) string {
	return day.Format("Jan 02, 2006")
}
