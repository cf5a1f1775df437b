package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker run outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// Metrics is the set of server metrics, registered on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	CheckerRuns          *prometheus.CounterVec
	CheckerDuration      *prometheus.HistogramVec
	Requests             *prometheus.CounterVec
	DiagnosticsPublished prometheus.Counter
	DiagnosticsDropped   prometheus.Counter
}

// New creates and registers all metrics.
func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.CheckerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mplxls_checker_runs_total",
			Help: "Total number of external checker invocations",
		},
		[]string{"mode", "outcome"},
	)

	m.CheckerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mplxls_checker_duration_seconds",
			Help:    "Duration of external checker invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	m.Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mplxls_requests_total",
			Help: "Total number of protocol messages handled",
		},
		[]string{"method"},
	)

	m.DiagnosticsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mplxls_diagnostics_published_total",
			Help: "Total number of diagnostic batches published",
		},
	)

	m.DiagnosticsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mplxls_diagnostics_dropped_total",
			Help: "Total number of diagnostic batches discarded as stale",
		},
	)

	m.Registry.MustRegister(
		m.CheckerRuns,
		m.CheckerDuration,
		m.Requests,
		m.DiagnosticsPublished,
		m.DiagnosticsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveChecker(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CheckerRuns.WithLabelValues(mode, outcome).Inc()
	m.CheckerDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRequest(method string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method).Inc()
}

func (m *Metrics) Published() {
	if m == nil {
		return
	}
	m.DiagnosticsPublished.Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.DiagnosticsDropped.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
