package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential side effect.
type Metrics struct {
	Issued   prometheus.Counter
	Failed   prometheus.Counter
	Skipped  prometheus.Counter
	Breaker  *prometheus.CounterVec
}

// New creates a Metrics instance with all credential metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scrip_credential_issued_total",
			Help: "Claim credentials issued successfully",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scrip_credential_failures_total",
			Help: "Claim credential attempts that failed and were swallowed",
		}),
		Skipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scrip_credential_skipped_total",
			Help: "Claim credentials skipped while the circuit was open",
		}),
		Breaker: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scrip_credential_breaker_transitions_total",
			Help: "Credential circuit breaker transitions by direction",
		}, []string{"direction"}),
	}
}

// IncrementIssued records a successful issuance.
func (m *Metrics) IncrementIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

// IncrementFailed records a swallowed failure.
func (m *Metrics) IncrementFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}

// IncrementSkipped records a call skipped because the circuit was open.
func (m *Metrics) IncrementSkipped() {
	if m != nil {
		m.Skipped.Inc()
	}
}

// RecordBreakerTransition records an open or close transition.
func (m *Metrics) RecordBreakerTransition(direction string) {
	if m != nil {
		m.Breaker.WithLabelValues(direction).Inc()
	}
}
