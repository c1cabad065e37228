package state

import (
	"context"
	"errors"
	"iter"
	"time"

	"alertflow/internal/domain"
)

// RecentWindow bounds the history entries counted as recent in summaries.
const RecentWindow = 24 * time.Hour

var (
	// ErrNotFound indicates absent active alert.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates lifecycle change not allowed from current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Summary is point-in-time view of store counters.
// Params: active count, severity breakdown, recent history count, and total history length.
// Returns: reporting payload for summary queries.
type Summary struct {
	ActiveAlerts      int                     `json:"active_alerts"`
	SeverityBreakdown map[domain.Severity]int `json:"severity_breakdown"`
	RecentAlerts24h   int                     `json:"recent_alerts_24h"`
	TotalProcessed    int                     `json:"total_processed"`
	LastProcessed     time.Time               `json:"last_processed"`
}

// Store keeps active alerts and append-only processing history.
// Params: keyed put/get, snapshot iteration, lifecycle transitions, and summary.
// Returns: alert registry behavior shared by pipeline and reporting callers.
type Store interface {
	Put(ctx context.Context, alert *domain.Alert) error
	GetActive(ctx context.Context, alertID string) (*domain.Alert, error)
	AllActive(ctx context.Context) iter.Seq[*domain.Alert]
	History(ctx context.Context) []*domain.Alert
	Acknowledge(ctx context.Context, alertID string) (*domain.Alert, error)
	Resolve(ctx context.Context, alertID string) (*domain.Alert, error)
	Summary(ctx context.Context) Summary
}
