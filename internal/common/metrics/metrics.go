package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	// HTTPRequestDuration tracks request latency by method, path, and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Database metrics
var (
	// DBOptimisticLockConflicts counts optimistic lock conflicts by repository.
	DBOptimisticLockConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_optimistic_lock_conflicts_total",
			Help: "Total number of optimistic lock conflicts",
		},
		[]string{"repository"},
	)

	// DBSaveDuration tracks document save latency by repository.
	DBSaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_save_duration_seconds",
			Help:    "Duration of document saves in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"repository"},
	)
)

// Ledger metrics
var (
	// LedgerOperations counts ledger operations by operation and result class.
	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of pricing ledger operations",
		},
		[]string{"operation", "result"},
	)

	// LedgerCompensations counts compensating writes by outcome (restored, failed).
	LedgerCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_compensations_total",
			Help: "Total number of compensating writes after a failed secondary save",
		},
		[]string{"outcome"},
	)

	// LedgerFatalInconsistencies counts operations that left the mirrors divergent.
	LedgerFatalInconsistencies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_fatal_inconsistencies_total",
			Help: "Total number of failed compensations leaving item and supplier mirrors divergent",
		},
	)

	// LedgerMirrorDivergences gauges the divergences found by the last mirror audit.
	LedgerMirrorDivergences = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_mirror_divergences",
			Help: "Number of mirror divergences found by the most recent audit",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns an HTTP middleware that records request metrics.
// Side effects: records Prometheus metrics and reads the current time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip metrics endpoint itself
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := NormalizePath(r.URL.Path)

		HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// NormalizePath replaces business keys in catalog paths with placeholders
// to keep label cardinality bounded.
func NormalizePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 {
		return path
	}
	switch segments[0] {
	case "items":
		placeholders := []string{"items", "{code}", "suppliers", "{name}", "rebates", "{index}"}
		return "/" + strings.Join(placeholders[:min(len(segments), len(placeholders))], "/")
	case "suppliers":
		placeholders := []string{"suppliers", "{name}"}
		return "/" + strings.Join(placeholders[:min(len(segments), len(placeholders))], "/")
	default:
		return path
	}
}

// RecordOptimisticLockConflict increments the optimistic lock conflict counter.
// Side effects: records a Prometheus metric.
func RecordOptimisticLockConflict(repository string) {
	DBOptimisticLockConflicts.WithLabelValues(repository).Inc()
}

// RecordSaveDuration records a document save duration.
// Side effects: records a Prometheus metric.
func RecordSaveDuration(repository string, duration time.Duration) {
	DBSaveDuration.WithLabelValues(repository).Observe(duration.Seconds())
}

// RecordLedgerOperation increments the ledger operation counter.
// Side effects: records a Prometheus metric.
func RecordLedgerOperation(operation, result string) {
	LedgerOperations.WithLabelValues(operation, result).Inc()
}

// RecordCompensation increments the compensation counter for the given outcome.
// Side effects: records a Prometheus metric.
func RecordCompensation(outcome string) {
	LedgerCompensations.WithLabelValues(outcome).Inc()
}

// RecordFatalInconsistency increments the fatal inconsistency counter.
// Side effects: records a Prometheus metric.
func RecordFatalInconsistency() {
	LedgerFatalInconsistencies.Inc()
}

// SetMirrorDivergences records the number of divergences found by an audit.
// Side effects: records a Prometheus metric.
func SetMirrorDivergences(n int) {
	LedgerMirrorDivergences.Set(float64(n))
}
