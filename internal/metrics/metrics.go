package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for RepositoryOperationsTotal.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

var (
	RepositoryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_repository_operations_total",
		Help: "Total number of inventory repository operations by outcome",
	}, []string{"op", "result"})

	RepositoryOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_repository_operation_duration_seconds",
		Help:    "Latency of inventory repository operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	ClockConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_clock_conflicts_total",
		Help: "Total number of updates rejected by the Lamport clock guard",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveOperation records one repository call.
func ObserveOperation(op, result string, started time.Time) {
	RepositoryOperationsTotal.WithLabelValues(op, result).Inc()
	RepositoryOperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if result == ResultConflict {
		ClockConflictsTotal.Inc()
	}
}
