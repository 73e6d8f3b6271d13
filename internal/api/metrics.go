package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// Metrics holds the server's Prometheus collectors on a private registry,
// so tests can build independent servers without duplicate-registration
// panics.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	resolveOutcomes *prometheus.CounterVec
	parseOutcomes   *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dailybread",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dailybread",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   httpDurationBuckets,
		}, []string{"method", "path"}),
		resolveOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dailybread",
			Name:      "resolve_outcomes_total",
			Help:      "Book resolver outcomes by kind and method",
		}, []string{"kind", "method"}),
		parseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dailybread",
			Name:      "parse_outcomes_total",
			Help:      "Reference parse outcomes by kind",
		}, []string{"kind"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dailybread",
			Name:      "upstream_errors_total",
			Help:      "bible-api.com request failures by operation",
		}, []string{"operation"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dailybread",
			Name:      "disambiguation_sessions_active",
			Help:      "Pending disambiguation sessions",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.resolveOutcomes,
		m.parseOutcomes,
		m.upstreamErrors,
		m.sessionsActive,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument wraps a handler with request count and duration collection.
// The path label is the route pattern, not the raw URL, to bound
// cardinality.
func (m *Metrics) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		m.requestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	}
}

// statusRecorder captures the response status for metric labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
