package report

import (
	"path/filepath"

	"github.com/dyluth/sleuth/internal/reasoning"
)

// Criteria selects audit steps. All set fields must match.
type Criteria struct {
	SinceTimestampMs int64  // 0 = no lower bound
	UntilTimestampMs int64  // 0 = no upper bound
	KindGlob         string // Glob over the step kind, e.g. "elim*"
	Algorithm        string // Exact algorithm label
	Last             int    // Keep only the newest N matches, 0 = all
}

// Matches reports whether a single step passes the time, kind and algorithm filters.
// Last is applied by Apply.
func (c *Criteria) Matches(s reasoning.Step) bool {
	ts := s.Timestamp.UnixMilli()
	if c.SinceTimestampMs > 0 && ts < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && ts > c.UntilTimestampMs {
		return false
	}

	if c.KindGlob != "" {
		matched, err := filepath.Match(c.KindGlob, string(s.Kind))
		if err != nil || !matched {
			return false
		}
	}

	if c.Algorithm != "" && s.Algorithm != c.Algorithm {
		return false
	}

	return true
}

// Apply returns the matching steps in order, trimmed to the newest Last.
func (c *Criteria) Apply(steps []reasoning.Step) []reasoning.Step {
	out := make([]reasoning.Step, 0, len(steps))
	for _, s := range steps {
		if c.Matches(s) {
			out = append(out, s)
		}
	}
	if c.Last > 0 && len(out) > c.Last {
		out = out[len(out)-c.Last:]
	}
	return out
}

// HasFilters returns true if any filter is set.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.KindGlob != "" ||
		c.Algorithm != "" ||
		c.Last > 0
}
