package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_admin_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_admin_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_admin_order_operations_total",
			Help: "Total number of order operations",
		},
		[]string{"operation", "status"},
	)

	eventPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_admin_order_events_published_total",
			Help: "Outbox events handed to the broker",
		},
		[]string{"type", "status"},
	)
)

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordOrderOperation 记录订单操作指标（place / cancel / update_status）
func RecordOrderOperation(operation string, success bool) {
	orderOperations.WithLabelValues(operation, outcome(success)).Inc()
}

func RecordEventPublish(eventType string, success bool) {
	eventPublishes.WithLabelValues(eventType, outcome(success)).Inc()
}
