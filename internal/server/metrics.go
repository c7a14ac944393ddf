package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus instruments for the repair service. Each
// server owns its own registry so instances stay independent.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	repairDuration    prometheus.Histogram
	repairsTotal      *prometheus.CounterVec
	recordsRepaired   prometheus.Counter
	bytesPadded       prometheus.Counter
}

// NewMetrics creates and registers the service metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtrunc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		repairDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dtrunc_repair_duration_seconds",
				Help:    "Capture repair duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		repairsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtrunc_repairs_total",
				Help: "Total number of repair operations",
			},
			[]string{"status"},
		),
		recordsRepaired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dtrunc_records_repaired_total",
				Help: "Total number of records restored to full length",
			},
		),
		bytesPadded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dtrunc_bytes_padded_total",
				Help: "Total number of zero bytes appended to payloads",
			},
		),
	}
}

// Registry exposes the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recordHTTPRequest(method, endpoint string, statusCode int) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) recordRepair(status string, duration time.Duration, repaired int, padded int64) {
	if m == nil {
		return
	}
	m.repairsTotal.WithLabelValues(status).Inc()
	m.repairDuration.Observe(duration.Seconds())
	if repaired > 0 {
		m.recordsRepaired.Add(float64(repaired))
	}
	if padded > 0 {
		m.bytesPadded.Add(float64(padded))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with per-endpoint request counting.
func (m *Metrics) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		m.recordHTTPRequest(r.Method, endpoint, rec.status)
	}
}
