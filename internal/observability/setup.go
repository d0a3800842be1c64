package observability

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	registerOnce sync.Once

	// Metrics
	screeningVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_screening_verdicts_total",
			Help: "Total number of screened messages by verdict",
		},
		[]string{"verdict"},
	)

	scoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modbot_scoring_duration_seconds",
			Help:    "Time spent waiting for the external toxicity scorer",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_escalation_actions_total",
			Help: "Escalation coordinator actions by kind",
		},
		[]string{"action"},
	)

	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_user_reports_total",
			Help: "Completed user report sessions by outcome",
		},
		[]string{"outcome"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_events_total",
			Help: "Inbound platform events by kind and status",
		},
		[]string{"kind", "status"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modbot_active_report_sessions",
			Help: "Report sessions currently in progress",
		},
	)
)

// Init registers metrics with the default registry and installs a tracer provider.
// The returned func flushes the tracer provider.
func Init(ctx context.Context) (func(context.Context) error, error) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			screeningVerdictsTotal,
			scoringDuration,
			escalationsTotal,
			reportsTotal,
			eventsTotal,
			activeSessions,
		)
	})

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func RecordVerdict(verdict string) {
	screeningVerdictsTotal.WithLabelValues(verdict).Inc()
}

// StartScoring returns a function to record scorer latency.
func StartScoring() func(status string) {
	started := time.Now()
	return func(status string) {
		scoringDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	}
}

func RecordEscalation(action string) {
	escalationsTotal.WithLabelValues(action).Inc()
}

func RecordReport(outcome string) {
	reportsTotal.WithLabelValues(outcome).Inc()
}

func RecordEvent(kind, status string) {
	eventsTotal.WithLabelValues(kind, status).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
