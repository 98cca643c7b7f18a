package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route template, method and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration observes request latency by route template and method
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskboard_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Reconciliations counts cross-reference updates by kind and outcome
	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_reconciliations_total",
			Help: "Total number of user/task reference reconciliations",
		},
		[]string{"kind", "status"},
	)
)

// Reconciliation kinds
const (
	KindTaskWrite  = "task_write"
	KindTaskDelete = "task_delete"
	KindUserWrite  = "user_write"
	KindUserDelete = "user_delete"
)

// ObserveReconciliation records the outcome of one reconciliation
func ObserveReconciliation(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	Reconciliations.WithLabelValues(kind, status).Inc()
}
