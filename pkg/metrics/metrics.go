package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ascend_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts access-checker evaluations and their outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ascend_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"capability", "result"},
	)

	// PropagationWrites counts per-descendant writes issued during permission fan-out.
	PropagationWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ascend_propagation_writes_total",
			Help: "Descendant permission writes by collection and result",
		},
		[]string{"collection", "result"},
	)

	// ShareNotifications counts outbound share notification attempts.
	ShareNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ascend_share_notifications_total",
			Help: "Share notification emails by result",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ascend_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
