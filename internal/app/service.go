package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"alertflow/internal/config"
	"alertflow/internal/escalate"
	"alertflow/internal/ingest"
	"alertflow/internal/logging"
	"alertflow/internal/notify"
	"alertflow/internal/pipeline"
	"alertflow/internal/routing"
	"alertflow/internal/state"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	// schedulerTag marks the scheduler ticker for mock clock traps.
	schedulerTag = "scheduler"
)

// Service composes runtime dependencies and process lifecycle.
// Params: config snapshot and shared runtime components.
// Returns: runnable alert pipeline service.
type Service struct {
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func()
	pipeline  *pipeline.Pipeline
	registry  *prometheus.Registry
	handler   http.Handler
	httpSrv   *http.Server
	natsSub   interface{ Close() error }
	readyFlag atomic.Bool
	clock     quartz.Clock
}

// NewService builds service instance from config source.
// Params: config source and clock implementation.
// Returns: initialized service or setup error.
func NewService(source config.ConfigSource, clk quartz.Clock) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log, cfg.Service.Name)
	if err != nil {
		return nil, err
	}

	service, err := newService(cfg, logger, clk)
	if err != nil {
		closeLog()
		return nil, err
	}
	service.closeLog = closeLog

	if err := service.buildNATSSubscriber(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}
	return service, nil
}

// newService wires pipeline and HTTP surface without opening network resources.
// Params: config snapshot, logger, and clock.
// Returns: service or pipeline setup error.
func newService(cfg config.Config, logger *slog.Logger, clk quartz.Clock) (*Service, error) {
	if clk == nil {
		clk = quartz.NewReal()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p, err := buildPipeline(cfg, logger, clk, registry)
	if err != nil {
		return nil, err
	}

	service := &Service{
		cfg:      cfg,
		logger:   logger,
		pipeline: p,
		registry: registry,
		clock:    clk,
	}
	service.handler = service.buildRouter()
	service.httpSrv = &http.Server{
		Addr:              cfg.Ingest.HTTP.Listen,
		Handler:           service.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return service, nil
}

// buildPipeline assembles store, router, escalation engine, and dispatcher from config.
// Params: config snapshot, logger, clock, and metrics registerer.
// Returns: orchestrator or setup error.
func buildPipeline(cfg config.Config, logger *slog.Logger, clk quartz.Clock, reg prometheus.Registerer) (*pipeline.Pipeline, error) {
	policy := escalate.DefaultPolicy()
	if len(cfg.Escalation.Keywords) > 0 {
		policy.Keywords = cfg.Escalation.Keywords
	}
	if len(cfg.Escalation.Owners) > 0 {
		policy.Owners = cfg.Escalation.Owners
	}

	dispatcher := notify.NewDispatcher(
		cfg.NotificationChannels(),
		notify.DefaultSenders(nil, logger),
		notify.Options{Parallel: cfg.Pipeline.DispatchParallel, SendTimeout: cfg.Pipeline.SendTimeout()},
		logger,
	)

	return pipeline.New(pipeline.Deps{
		Store:      state.NewMemoryStore(clk),
		Router:     routing.NewRouter(cfg.RoutingRules(), logger),
		Escalator:  escalate.New(policy, logger),
		Dispatcher: dispatcher,
		Clock:      clk,
	}, pipeline.Options{
		DedupWindow: cfg.Pipeline.DedupWindow(),
		PendingMax:  cfg.Pipeline.PendingMax,
		Registerer:  reg,
	}, logger)
}

// buildRouter wires alert API, probes, and metrics endpoint.
func (s *Service) buildRouter() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get(s.cfg.Ingest.HTTP.HealthPath, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ok"))
	})
	router.Get(s.cfg.Ingest.HTTP.ReadyPath, func(writer http.ResponseWriter, _ *http.Request) {
		if !s.readyFlag.Load() {
			writer.WriteHeader(http.StatusServiceUnavailable)
			_, _ = writer.Write([]byte("not-ready"))
			return
		}
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ready"))
	})
	router.Handle(s.cfg.Ingest.HTTP.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	if s.cfg.Ingest.HTTP.Enabled {
		alerts := ingest.NewHTTPHandler(s.pipeline, s.cfg.Ingest.HTTP.MaxBodyBytes, s.logger)
		router.Mount(s.cfg.Ingest.HTTP.AlertsPath, alerts.Routes())
	}
	return router
}

// buildNATSSubscriber starts NATS ingest when enabled.
// Params: none.
// Returns: initialization error.
func (s *Service) buildNATSSubscriber() error {
	if !s.cfg.Ingest.NATS.Enabled {
		return nil
	}
	subscriber, err := ingest.NewNATSSubscriber(s.cfg.Ingest.NATS, s.pipeline, s.logger)
	if err != nil {
		return err
	}
	s.natsSub = subscriber
	return nil
}

// Run starts service lifecycle and blocks until shutdown signal.
// Params: root context for service runtime.
// Returns: terminal run error.
func (s *Service) Run(ctx context.Context) error {
	shutdownCtx, shutdownCancel := context.WithCancel(ctx)
	defer shutdownCancel()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "listen", s.cfg.Ingest.HTTP.Listen)
		err := s.httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		s.runScheduler(shutdownCtx)
	}()

	s.readyFlag.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errChan:
		runErr = fmt.Errorf("http server failed: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCancel()
	<-schedulerDone
	if err := s.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// runScheduler drives periodic pending processing until ctx is done.
// Params: scheduler context.
// Returns: when ctx is canceled.
func (s *Service) runScheduler(ctx context.Context) {
	interval := time.Duration(s.cfg.Service.ProcessIntervalSec) * time.Second
	ticker := s.clock.NewTicker(interval, schedulerTag)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick drains pending payloads and reports alerts past their escalation time.
// Params: scheduler context.
// Returns: processed alert count for this pass.
func (s *Service) tick(ctx context.Context) int {
	processed := s.pipeline.ProcessPending(ctx)
	for _, candidate := range s.pipeline.EscalationDue(ctx) {
		s.logger.Warn("alert unacknowledged past escalation time",
			"alert_id", candidate.Alert.ID,
			"severity", string(candidate.Alert.Severity),
			"escalation_time", candidate.EscalationTime.String(),
			"overdue", candidate.Overdue.String(),
		)
	}

	summary := s.pipeline.Summary(ctx)
	s.logger.Debug("scheduler tick",
		"processed", processed,
		"active_alerts", summary.ActiveAlerts,
		"recent_alerts_24h", summary.RecentAlerts24h,
		"total_processed", summary.TotalProcessed,
	)
	return processed
}

// shutdown closes runtime resources in dependency order.
// Params: none.
// Returns: first close error.
func (s *Service) shutdown() error {
	s.readyFlag.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var firstErr error
	markErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", "error", err.Error())
		markErr(fmt.Errorf("http shutdown: %w", err))
	}
	if s.natsSub != nil {
		if err := s.natsSub.Close(); err != nil {
			s.logger.Error("nats subscriber close failed", "error", err.Error())
			markErr(fmt.Errorf("nats subscriber close: %w", err))
		}
	}
	if pending := s.pipeline.Pending(); pending > 0 {
		s.logger.Warn("pending payloads discarded on shutdown", "pending", pending)
	}
	if s.closeLog != nil {
		s.closeLog()
	}
	return firstErr
}

// cleanupInitResources closes partially initialized resources on startup failures.
// Params: none.
// Returns: all acquired resources closed best-effort.
func (s *Service) cleanupInitResources() {
	if s.natsSub != nil {
		_ = s.natsSub.Close()
		s.natsSub = nil
	}
	if s.closeLog != nil {
		s.closeLog()
		s.closeLog = nil
	}
}
