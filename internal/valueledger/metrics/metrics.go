package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the value ledger.
type Metrics struct {
	// Transfers by kind ("within_slot" or "split") and outcome
	Transfers *prometheus.CounterVec

	// Units of value moved by successful transfers
	ValueMoved prometheus.Counter

	// Authorization path taken by successful transfers
	Authorizations *prometheus.CounterVec
}

// New creates a Metrics instance with all value-ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		Transfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scrip_value_transfers_total",
			Help: "Value transfers by kind and outcome",
		}, []string{"kind", "outcome"}),

		ValueMoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scrip_value_moved_total",
			Help: "Units of value moved by successful transfers",
		}),

		Authorizations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scrip_value_authorizations_total",
			Help: "Authorization path used by successful transfers",
		}, []string{"path"}),
	}
}

// RecordTransfer records one transfer attempt.
func (m *Metrics) RecordTransfer(kind, outcome string) {
	if m != nil {
		m.Transfers.WithLabelValues(kind, outcome).Inc()
	}
}

// RecordValueMoved adds to the moved-value counter.
func (m *Metrics) RecordValueMoved(amount uint64) {
	if m != nil {
		m.ValueMoved.Add(float64(amount))
	}
}

// RecordAuthorization records which authorization layer satisfied a
// transfer.
func (m *Metrics) RecordAuthorization(path string) {
	if m != nil {
		m.Authorizations.WithLabelValues(path).Inc()
	}
}
