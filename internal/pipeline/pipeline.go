package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"alertflow/internal/dedup"
	"alertflow/internal/domain"
	"alertflow/internal/enrich"
	"alertflow/internal/escalate"
	"alertflow/internal/notify"
	"alertflow/internal/routing"
	"alertflow/internal/state"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultPendingMax bounds Enqueue buffer when config leaves it unset.
const DefaultPendingMax = 1024

// ErrPendingFull is returned by Enqueue when the buffer is at capacity.
var ErrPendingFull = errors.New("pending payload buffer is full")

// Outcome is terminal state of one ingestion.
type Outcome string

const (
	// OutcomeProcessed means alert was enriched, routed, dispatched, and stored.
	OutcomeProcessed Outcome = "processed"
	// OutcomeDeduplicated means an active alert with same title and source is inside the window.
	OutcomeDeduplicated Outcome = "deduplicated"
	// OutcomeDropped means an internal failure discarded the payload.
	OutcomeDropped Outcome = "dropped"
)

// Result is ingestion report returned to callers.
type Result struct {
	Outcome       Outcome                `json:"status"`
	Alert         *domain.Alert          `json:"alert,omitempty"`
	Notifications *notify.DispatchResult `json:"notifications,omitempty"`
	DuplicateOf   string                 `json:"duplicate_of,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
}

// Dispatcher delivers processed alerts to routed channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *domain.Alert, channelNames []string) (notify.DispatchResult, error)
}

// Deps are collaborators owned by the caller.
type Deps struct {
	Store      state.Store
	Router     *routing.Router
	Escalator  *escalate.Engine
	Dispatcher Dispatcher
	Clock      quartz.Clock
}

// Options tunes pipeline behavior.
type Options struct {
	DedupWindow time.Duration
	PendingMax  int
	Registerer  prometheus.Registerer
}

// EscalationCandidate is an active unacknowledged alert past its escalation time.
type EscalationCandidate struct {
	Alert          *domain.Alert `json:"alert"`
	EscalationTime time.Duration `json:"escalation_time"`
	Overdue        time.Duration `json:"overdue"`
}

// Pipeline serializes alert ingestion through dedup, enrichment, escalation, routing, dispatch, and storage.
// Params: store, router, escalator, dispatcher, clock, and options.
// Returns: orchestrator shared by HTTP, NATS, and scheduler entry points.
type Pipeline struct {
	store      state.Store
	router     *routing.Router
	escalator  *escalate.Engine
	dispatcher Dispatcher
	clock      quartz.Clock
	opts       Options
	logger     *slog.Logger
	metrics    *metrics

	mu sync.Mutex

	pendingMu sync.Mutex
	pending   []domain.Payload
}

// New creates pipeline from dependencies.
// Params: collaborators, options, and optional logger; nil store/router/escalator/clock get defaults.
// Returns: ready pipeline or error when dispatcher is missing.
func New(deps Deps, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if deps.Dispatcher == nil {
		return nil, errors.New("pipeline dispatcher is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Store == nil {
		deps.Store = state.NewMemoryStore(deps.Clock)
	}
	if deps.Router == nil {
		deps.Router = routing.NewRouter(nil, logger)
	}
	if deps.Escalator == nil {
		deps.Escalator = escalate.New(escalate.DefaultPolicy(), logger)
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = dedup.DefaultWindow
	}
	if opts.PendingMax <= 0 {
		opts.PendingMax = DefaultPendingMax
	}

	return &Pipeline{
		store:      deps.Store,
		router:     deps.Router,
		escalator:  deps.Escalator,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		opts:       opts,
		logger:     logger,
		metrics:    newMetrics(opts.Registerer),
	}, nil
}

// Ingest runs one raw payload through the pipeline.
// Params: context and decoded payload (missing fields are defaulted).
// Returns: processed, deduplicated, or dropped result; never panics.
func (p *Pipeline) Ingest(ctx context.Context, payload domain.Payload) (result Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := p.clock.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			p.logger.Error("alert payload dropped", "error", fmt.Sprintf("panic: %v", recovered))
			result = Result{Outcome: OutcomeDropped, Reason: "internal error"}
		}
		p.metrics.ingested.WithLabelValues(string(result.Outcome)).Inc()
		p.metrics.duration.Observe(p.clock.Since(started).Seconds())
	}()

	result, err := p.process(ctx, payload)
	if err != nil {
		p.logger.Error("alert payload dropped", "alert_id", result.idForLog(), "error", err.Error())
		return Result{Outcome: OutcomeDropped, Reason: err.Error()}
	}
	return result
}

// process runs the pipeline steps; store is written only after dispatch succeeds.
func (p *Pipeline) process(ctx context.Context, payload domain.Payload) (Result, error) {
	now := p.clock.Now()
	alert := domain.NewAlert(payload, now)

	match := dedup.Check(alert, p.store.AllActive(ctx), p.opts.DedupWindow, now)
	if match.Duplicate {
		p.logger.Info("duplicate alert suppressed", "alert_id", alert.ID, "original_id", match.OriginalID, "title", alert.Title)
		return Result{Outcome: OutcomeDeduplicated, DuplicateOf: match.OriginalID}, nil
	}

	enrich.Enrich(alert, now)
	before := alert.Severity
	p.escalator.Escalate(alert)
	escalated := before != alert.Severity

	channels := p.router.Route(alert)
	dispatch, err := p.dispatcher.Dispatch(ctx, alert, channels)
	if err != nil {
		return Result{Alert: alert}, fmt.Errorf("dispatch alert: %w", err)
	}
	p.metrics.observeDispatch(dispatch)

	if err := p.store.Put(ctx, alert); err != nil {
		return Result{Alert: alert}, fmt.Errorf("store alert: %w", err)
	}
	if escalated {
		p.metrics.escalations.Inc()
	}
	p.refreshActive(ctx)

	p.logger.Info("alert processed",
		"alert_id", alert.ID,
		"severity", string(alert.Severity),
		"source", alert.Source,
		"assigned_to", alert.AssignedTo,
		"channels", len(channels),
	)
	return Result{Outcome: OutcomeProcessed, Alert: alert.Clone(), Notifications: &dispatch}, nil
}

func (r Result) idForLog() string {
	if r.Alert == nil {
		return ""
	}
	return r.Alert.ID
}

// Enqueue buffers payload for the next ProcessPending pass.
// Params: decoded payload.
// Returns: ErrPendingFull when buffer is at capacity.
func (p *Pipeline) Enqueue(payload domain.Payload) error {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	if len(p.pending) >= p.opts.PendingMax {
		return ErrPendingFull
	}
	p.pending = append(p.pending, payload)
	p.metrics.pending.Set(float64(len(p.pending)))
	return nil
}

// Pending returns buffered payload count.
func (p *Pipeline) Pending() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return len(p.pending)
}

// ProcessPending drains buffered payloads through Ingest in arrival order.
// Params: context; on cancellation the unprocessed tail is put back while the in-flight payload finishes
// under its per-send timeouts.
// Returns: number of payloads that produced a new alert.
func (p *Pipeline) ProcessPending(ctx context.Context) int {
	p.pendingMu.Lock()
	batch := p.pending
	p.pending = nil
	p.metrics.pending.Set(0)
	p.pendingMu.Unlock()

	processed := 0
	for index, payload := range batch {
		if ctx.Err() != nil {
			p.requeue(batch[index:])
			break
		}
		if p.Ingest(context.WithoutCancel(ctx), payload).Outcome == OutcomeProcessed {
			processed++
		}
	}
	if len(batch) > 0 {
		p.logger.Debug("pending payloads processed", "received", len(batch), "processed", processed)
	}
	return processed
}

func (p *Pipeline) requeue(rest []domain.Payload) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	p.pending = append(slices.Clone(rest), p.pending...)
	p.metrics.pending.Set(float64(len(p.pending)))
}

// Summary returns store aggregate counters.
func (p *Pipeline) Summary(ctx context.Context) state.Summary {
	return p.store.Summary(ctx)
}

// Active returns active alerts ordered by timestamp.
func (p *Pipeline) Active(ctx context.Context) []*domain.Alert {
	return slices.Collect(p.store.AllActive(ctx))
}

// Get returns one active alert.
func (p *Pipeline) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	return p.store.GetActive(ctx, alertID)
}

// Acknowledge moves active alert from new to acknowledged.
// Params: context and alert id.
// Returns: updated alert, state.ErrNotFound, or state.ErrInvalidTransition.
func (p *Pipeline) Acknowledge(ctx context.Context, alertID string) (*domain.Alert, error) {
	alert, err := p.store.Acknowledge(ctx, alertID)
	if err != nil {
		return nil, err
	}
	p.logger.Info("alert acknowledged", "alert_id", alertID)
	return alert, nil
}

// Resolve closes active alert and removes it from the active set.
// Params: context and alert id.
// Returns: resolved alert or state.ErrNotFound.
func (p *Pipeline) Resolve(ctx context.Context, alertID string) (*domain.Alert, error) {
	alert, err := p.store.Resolve(ctx, alertID)
	if err != nil {
		return nil, err
	}
	p.refreshActive(ctx)
	p.logger.Info("alert resolved", "alert_id", alertID)
	return alert, nil
}

// EscalationDue lists new alerts whose shortest matching rule escalation time has elapsed.
// Params: context.
// Returns: candidates in store order; nothing is re-sent.
func (p *Pipeline) EscalationDue(ctx context.Context) []EscalationCandidate {
	now := p.clock.Now()
	var due []EscalationCandidate
	for alert := range p.store.AllActive(ctx) {
		if alert.Status != domain.StatusNew {
			continue
		}
		limit, ok := p.router.EscalationTime(alert)
		if !ok {
			continue
		}
		age := now.Sub(alert.Timestamp)
		if age < limit {
			continue
		}
		due = append(due, EscalationCandidate{Alert: alert, EscalationTime: limit, Overdue: age - limit})
	}
	return due
}

func (p *Pipeline) refreshActive(ctx context.Context) {
	p.metrics.activeAlerts.Set(float64(p.store.Summary(ctx).ActiveAlerts))
}
