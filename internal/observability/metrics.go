package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ride_dispatch"

var (
	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_transitions_total", Help: "Ride lifecycle operations by event and outcome"},
		[]string{"event", "outcome"},
	)
	AcceptConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "accept_conflicts_total", Help: "Rejected accepts by reason"},
		[]string{"reason"},
	)
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "storage_errors_total", Help: "Persistence failures by operation"},
		[]string{"op"},
	)
	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "event_publish_failures_total", Help: "Ride events that could not be published"},
		[]string{"type"},
	)
	OperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "operation_duration_seconds", Help: "Dispatch operation latency", Buckets: prometheus.DefBuckets},
		[]string{"event"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
