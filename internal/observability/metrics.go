package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the weather monitor.
type Metrics struct {
	ReadingsFetched *prometheus.CounterVec // labels: city, outcome={success,error}
	FetchDuration   prometheus.Histogram

	AlertsFired *prometheus.CounterVec // labels: direction={above,below}
	EmailSends  *prometheus.CounterVec // labels: outcome={success,error}

	SummaryRuns    *prometheus.CounterVec // labels: outcome={success,empty,error}
	PushClients    prometheus.Gauge
	PushDeliveries prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "readings_fetched_total",
			Help:      "Provider fetches by city and outcome.",
		}, []string{"city", "outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weathermon",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one provider fetch-and-store cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "alerts_fired_total",
			Help:      "Threshold notifications fired by crossing direction.",
		}, []string{"direction"}),
		EmailSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "email_sends_total",
			Help:      "Notification delivery attempts by outcome.",
		}, []string{"outcome"}),
		SummaryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "summary_runs_total",
			Help:      "Daily summary job executions per city by outcome.",
		}, []string{"outcome"}),
		PushClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weathermon",
			Name:      "push_clients",
			Help:      "Currently connected live-update subscribers.",
		}),
		PushDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "push_deliveries_total",
			Help:      "Live payloads delivered to subscribers.",
		}),
	}
}

// NewMetrics creates the instruments and registers them with the
// default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsFetched,
		m.FetchDuration,
		m.AlertsFired,
		m.EmailSends,
		m.SummaryRuns,
		m.PushClients,
		m.PushDeliveries,
	)
	return m
}

// NewMetricsForTesting creates unregistered instruments so parallel
// tests do not trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
