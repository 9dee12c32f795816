package collect

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// parsePublished parses provider timestamp text. Anything absent or
// unparseable becomes nil; a time is never made up.
func parsePublished(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// firstNonEmpty returns the first value that is not blank, trimmed, or "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
