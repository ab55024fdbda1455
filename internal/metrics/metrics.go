package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	StructureMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structure_mutations_total",
			Help: "Structure tree and assignment mutations by kind and operation.",
		},
		[]string{"kind", "op"},
	)

	AuthorizationDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "process_authorization_denials_total",
			Help: "Process mutations refused by the authorization policy.",
		},
		[]string{"actor_kind", "action"},
	)

	ReconcileRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_reconcile_repairs_total",
			Help: "Half-links repaired by the assignment reconciler.",
		},
		[]string{"kind"},
	)
)

// Register adds the collectors to the default registry.
func Register() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		StructureMutations,
		AuthorizationDenials,
		ReconcileRepairs,
	)
}
