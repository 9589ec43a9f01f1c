package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verifier module.
type Metrics struct {
	// Check outcomes: "granted" or "denied"
	Checks *prometheus.CounterVec

	// Denials by failure code
	Denials *prometheus.CounterVec

	// Full check latency including the gateway lookup
	CheckLatency prometheus.Histogram

	// Attestation gateway lookup latency
	LookupLatency prometheus.Histogram
}

// New creates a Metrics instance with all verifier metrics registered.
func New() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scrip_verifier_checks_total",
			Help: "Total capability checks by outcome",
		}, []string{"outcome"}),

		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scrip_verifier_denials_total",
			Help: "Capability denials by failure code",
		}, []string{"code"}),

		CheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scrip_verifier_check_duration_seconds",
			Help:    "Duration of capability checks including the attestation lookup",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		LookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scrip_verifier_attestation_lookup_duration_seconds",
			Help:    "Duration of attestation gateway lookups",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementCheck records a check outcome.
func (m *Metrics) IncrementCheck(outcome string) {
	if m != nil {
		m.Checks.WithLabelValues(outcome).Inc()
	}
}

// IncrementDenial records a denial by failure code.
func (m *Metrics) IncrementDenial(code string) {
	if m != nil {
		m.Denials.WithLabelValues(code).Inc()
	}
}

// ObserveCheckLatency records the duration of a full check.
func (m *Metrics) ObserveCheckLatency(d time.Duration) {
	if m != nil {
		m.CheckLatency.Observe(d.Seconds())
	}
}

// ObserveLookupLatency records the duration of a gateway lookup.
func (m *Metrics) ObserveLookupLatency(d time.Duration) {
	if m != nil {
		m.LookupLatency.Observe(d.Seconds())
	}
}
