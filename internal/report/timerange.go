package report

import (
	"fmt"
	"time"
)

// ParseTime parses a time value into a Unix timestamp in milliseconds.
// Accepts a Go duration ("1h", "30m", "1h30m"), taken as that long before now,
// or an RFC3339 timestamp ("2025-10-29T13:00:00Z").
func ParseTime(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty time value")
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(value); err == nil {
		return now().Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time value: %s (use duration like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z')", value)
}

// ParseRange parses --since and --until into a time range.
// Zero means no bound on that side. since must be before until when both are set.
func ParseRange(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = ParseTime(since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilMS, err = ParseTime(until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}
