package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	AssignmentsCreated prometheus.Counter
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		AssignmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scrip_registry_assignments_created_total",
			Help: "Total issuer assignments written",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scrip_registry_cache_hits_total",
			Help: "Assignment lookups served from the Redis cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scrip_registry_cache_misses_total",
			Help: "Assignment lookups that fell through to the store",
		}),
	}
}

// IncrementAssignmentCreated records a successful SetIssuer.
func (m *Metrics) IncrementAssignmentCreated() {
	if m != nil {
		m.AssignmentsCreated.Inc()
	}
}

// IncrementCacheHit records a cache hit.
func (m *Metrics) IncrementCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// IncrementCacheMiss records a cache miss.
func (m *Metrics) IncrementCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}
