package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// AuthAttempts counts register/login attempts by action and outcome.
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of register/login attempts by outcome",
		},
		[]string{"action", "status"},
	)

	// DeadlineOps counts deadline operations by op (create, update, delete) and outcome.
	DeadlineOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadline_ops_total",
			Help: "Total number of deadline mutations by outcome",
		},
		[]string{"op", "status"},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, AuthAttempts, DeadlineOps)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id},
// e.g. /123 -> /{id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordAuth records a register or login attempt. status is "ok", "rejected", or "error".
func RecordAuth(action, status string) {
	AuthAttempts.WithLabelValues(action, status).Inc()
}

// RecordDeadlineOp records a deadline mutation. status is "ok", "rejected", "not_found", or "error".
func RecordDeadlineOp(op, status string) {
	DeadlineOps.WithLabelValues(op, status).Inc()
}
