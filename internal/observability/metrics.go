package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the scheduler.
type Metrics struct {
	SnapshotsConsumed prometheus.Counter
	SnapshotErrors    prometheus.Counter
	EventsPublished   prometheus.Counter
	PublishErrors     prometheus.Counter
	SchedulerRunning  prometheus.Gauge

	// Tick metrics.
	Ticks        *prometheus.CounterVec   // labels: kind={regular,fixed}
	TickDuration *prometheus.HistogramVec // labels: kind={regular,fixed}

	// Session metrics.
	EventsFired    *prometheus.CounterVec // labels: weather, kind
	ActiveSessions *prometheus.GaugeVec   // labels: weather
	Severity       *prometheus.GaugeVec   // labels: weather, subject
	FlareTier      prometheus.Gauge
}

// NewMetrics creates and registers all scheduler metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SnapshotsConsumed,
		m.SnapshotErrors,
		m.EventsPublished,
		m.PublishErrors,
		m.SchedulerRunning,
		m.Ticks,
		m.TickDuration,
		m.EventsFired,
		m.ActiveSessions,
		m.Severity,
		m.FlareTier,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SnapshotsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_scheduler",
			Name:      "snapshots_consumed_total",
			Help:      "Total subject snapshots read from the source topic.",
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_scheduler",
			Name:      "snapshot_errors_total",
			Help:      "Total subject snapshots that failed to parse.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_scheduler",
			Name:      "events_published_total",
			Help:      "Total events written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_scheduler",
			Name:      "publish_errors_total",
			Help:      "Total failed event batch publishes.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_scheduler",
			Name:      "running",
			Help:      "1 when the tick loop is active, 0 when shut down.",
		}),
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_scheduler",
			Name:      "ticks_total",
			Help:      "Scheduler ticks by kind.",
		}, []string{"kind"}),
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storm_scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent inside one scheduler tick.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}, []string{"kind"}),
		EventsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_scheduler",
			Name:      "events_fired_total",
			Help:      "Events fired by sessions, by weather and kind.",
		}, []string{"weather", "kind"}),
		ActiveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storm_scheduler",
			Name:      "active_sessions",
			Help:      "Running sessions by weather.",
		}, []string{"weather"}),
		Severity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storm_scheduler",
			Name:      "severity",
			Help:      "Current exposure severity by weather and subject.",
		}, []string{"weather", "subject"}),
		FlareTier: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_scheduler",
			Name:      "flare_tier",
			Help:      "Solar-flare tier of the running session, -1 when none.",
		}),
	}
}
