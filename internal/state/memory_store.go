package state

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"alertflow/internal/domain"

	"github.com/coder/quartz"
)

// MemoryStore keeps alerts in process memory for single-instance mode.
// Params: active map keyed by alert ID, history log, and injected clock.
// Returns: store implementation without external dependencies.
type MemoryStore struct {
	mu      sync.RWMutex
	clock   quartz.Clock
	active  map[string]*domain.Alert
	history []*domain.Alert
}

// NewMemoryStore creates in-memory alert store.
// Params: clock for summary windows (defaults to real clock when nil).
// Returns: initialized empty store.
func NewMemoryStore(clock quartz.Clock) *MemoryStore {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &MemoryStore{
		clock:  clock,
		active: make(map[string]*domain.Alert),
	}
}

// Put inserts or overwrites active alert by ID and appends it to history.
// Params: fully processed alert; the store takes ownership of the instance.
// Returns: error for nil alert or empty ID.
func (s *MemoryStore) Put(_ context.Context, alert *domain.Alert) error {
	if alert == nil {
		return fmt.Errorf("put alert: nil alert")
	}
	if alert.ID == "" {
		return fmt.Errorf("put alert: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[alert.ID] = alert
	s.history = append(s.history, alert)
	return nil
}

// GetActive returns copy of active alert.
// Params: alert ID key.
// Returns: alert copy or ErrNotFound.
func (s *MemoryStore) GetActive(_ context.Context, alertID string) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.active[alertID]
	if !ok {
		return nil, ErrNotFound
	}
	return alert.Clone(), nil
}

// AllActive returns restartable sequence over active alerts captured at call time.
// Params: none.
// Returns: sequence of alert copies ordered by timestamp then ID.
func (s *MemoryStore) AllActive(_ context.Context) iter.Seq[*domain.Alert] {
	s.mu.RLock()
	snapshot := make([]*domain.Alert, 0, len(s.active))
	for _, alert := range s.active {
		snapshot = append(snapshot, alert.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].Timestamp.Equal(snapshot[j].Timestamp) {
			return snapshot[i].ID < snapshot[j].ID
		}
		return snapshot[i].Timestamp.Before(snapshot[j].Timestamp)
	})

	return func(yield func(*domain.Alert) bool) {
		for _, alert := range snapshot {
			if !yield(alert.Clone()) {
				return
			}
		}
	}
}

// History returns copies of every processed alert in append order.
func (s *MemoryStore) History(_ context.Context) []*domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Alert, 0, len(s.history))
	for _, alert := range s.history {
		out = append(out, alert.Clone())
	}
	return out
}

// Acknowledge moves active alert from new to acknowledged.
// Params: alert ID key.
// Returns: updated alert copy, ErrNotFound, or ErrInvalidTransition.
func (s *MemoryStore) Acknowledge(_ context.Context, alertID string) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.active[alertID]
	if !ok {
		return nil, ErrNotFound
	}
	if alert.Status != domain.StatusNew {
		return nil, fmt.Errorf("acknowledge %s from %s: %w", alertID, alert.Status, ErrInvalidTransition)
	}
	alert.Status = domain.StatusAcknowledged
	return alert.Clone(), nil
}

// Resolve closes active alert and removes it from the active map; history keeps it.
// Params: alert ID key.
// Returns: resolved alert copy or ErrNotFound.
func (s *MemoryStore) Resolve(_ context.Context, alertID string) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.active[alertID]
	if !ok {
		return nil, ErrNotFound
	}
	alert.Status = domain.StatusResolved
	delete(s.active, alertID)
	return alert.Clone(), nil
}

// Summary counts active alerts by severity and recent history entries.
// Params: none.
// Returns: summary evaluated against current clock time.
func (s *MemoryStore) Summary(_ context.Context) Summary {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	breakdown := make(map[domain.Severity]int, len(domain.Severities()))
	for _, severity := range domain.Severities() {
		breakdown[severity] = 0
	}
	for _, alert := range s.active {
		breakdown[alert.Severity]++
	}

	recent := 0
	for _, alert := range s.history {
		if now.Sub(alert.Timestamp) < RecentWindow {
			recent++
		}
	}

	return Summary{
		ActiveAlerts:      len(s.active),
		SeverityBreakdown: breakdown,
		RecentAlerts24h:   recent,
		TotalProcessed:    len(s.history),
		LastProcessed:     now,
	}
}
