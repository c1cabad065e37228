// Package dedup detects repeat alert reports against active alerts.
package dedup

import (
	"iter"
	"time"

	"alertflow/internal/domain"
)

// DefaultWindow is the fixed deduplication window.
const DefaultWindow = 5 * time.Minute

// Match describes the active alert a candidate duplicated.
type Match struct {
	Duplicate  bool
	OriginalID string
}

// Check scans active alerts for one with equal title and source created within window.
// Params: candidate alert, active alert sequence, window, and current time.
// Returns: first match found; scan order is the sequence order.
func Check(candidate *domain.Alert, active iter.Seq[*domain.Alert], window time.Duration, now time.Time) Match {
	if candidate == nil || active == nil {
		return Match{}
	}
	for existing := range active {
		if existing.Title != candidate.Title || existing.Source != candidate.Source {
			continue
		}
		if now.Sub(existing.Timestamp) < window {
			return Match{Duplicate: true, OriginalID: existing.ID}
		}
	}
	return Match{}
}

// IsDuplicate reports whether candidate repeats a recent active alert.
func IsDuplicate(candidate *domain.Alert, active iter.Seq[*domain.Alert], window time.Duration, now time.Time) bool {
	return Check(candidate, active, window, now).Duplicate
}
