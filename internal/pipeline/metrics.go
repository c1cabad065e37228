package pipeline

import (
	"alertflow/internal/notify"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	ingested      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	escalations   prometheus.Counter
	activeAlerts  prometheus.Gauge
	pending       prometheus.Gauge
	duration      prometheus.Histogram
}

// newMetrics creates pipeline collectors and registers them when reg is set.
// Params: optional registerer; nil keeps collectors unregistered.
// Returns: metrics bundle.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertflow",
			Name:      "alerts_ingested_total",
			Help:      "Alert payloads ingested, by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertflow",
			Name:      "notifications_total",
			Help:      "Per-channel notification outcomes.",
		}, []string{"channel", "status"}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alertflow",
			Name:      "alerts_auto_escalated_total",
			Help:      "Alerts whose severity was upgraded by the escalation engine.",
		}),
		activeAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alertflow",
			Name:      "active_alerts",
			Help:      "Alerts currently in the active set.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alertflow",
			Name:      "pending_payloads",
			Help:      "Payloads buffered for the next processing pass.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alertflow",
			Name:      "ingest_duration_seconds",
			Help:      "Time spent processing one alert payload.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	for _, outcome := range []Outcome{OutcomeProcessed, OutcomeDeduplicated, OutcomeDropped} {
		m.ingested.WithLabelValues(string(outcome))
	}
	if reg != nil {
		reg.MustRegister(m.ingested, m.notifications, m.escalations, m.activeAlerts, m.pending, m.duration)
	}
	return m
}

func (m *metrics) observeDispatch(result notify.DispatchResult) {
	for _, outcome := range result.Results {
		m.notifications.WithLabelValues(outcome.Channel, string(outcome.Status)).Inc()
	}
}
