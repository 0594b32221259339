package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK       = "ok"
	OutcomeAbsent   = "absent"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

var (
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubsite_store_operations_total",
		Help: "Document store operations by op, resource and outcome.",
	}, []string{"op", "resource", "outcome"})

	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clubsite_store_operation_duration_seconds",
		Help:    "Latency of remote key-value calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	ContactSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubsite_contact_submissions_total",
		Help: "Contact form submissions by outcome.",
	}, []string{"outcome"})
)
