package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. Each Metrics value
// carries its own registry so tests can build handlers repeatedly without
// duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	providerErrors  prometheus.Counter
}

func New(service string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rbac_poc_http_requests_total",
			Help:        "HTTP requests handled, by method, path and status.",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "rbac_poc_http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),
		providerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rbac_poc_provider_errors_total",
			Help:        "Identity provider calls that failed at the transport level.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.providerErrors)
	return m
}

func (m *Metrics) IncProviderError() {
	m.providerErrors.Inc()
}

// Handler exposes the exposition endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency per request. The path label uses
// the route pattern-free URL path; cardinality stays low on this surface
// (fixed endpoints plus uuid record ids).
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		m.requestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
