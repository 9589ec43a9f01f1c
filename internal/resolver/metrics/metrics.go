package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the resolver engine.
type Metrics struct {
	// Operations by name and outcome ("ok" or a failure code)
	Operations *prometheus.CounterVec

	// Claims by resolver variant
	Claims *prometheus.CounterVec

	// Full operation latency including the store transaction
	OperationLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all resolver metrics registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scrip_resolver_operations_total",
			Help: "Resolver engine operations by name and outcome",
		}, []string{"operation", "outcome"}),

		Claims: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scrip_resolver_claims_total",
			Help: "Successful claims by resolver variant",
		}, []string{"variant"}),

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scrip_resolver_operation_duration_seconds",
			Help:    "Duration of resolver engine operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// RecordOperation records one engine operation.
func (m *Metrics) RecordOperation(operation, outcome string, elapsed time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(operation, outcome).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

// RecordClaim records a successful claim.
func (m *Metrics) RecordClaim(variant string) {
	if m != nil {
		m.Claims.WithLabelValues(variant).Inc()
	}
}
