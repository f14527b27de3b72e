package ecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultMerged = "merged"
	resultStale  = "stale"
	resultFailed = "failed"
)

type metrics struct {
	queries        *prometheus.CounterVec
	completions    *prometheus.CounterVec
	identityShared prometheus.Counter
	entities       prometheus.Gauge
	pending        prometheus.Gauge
}

// newMetrics creates the cache collectors. A nil registerer creates them
// without registering.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootcause",
			Subsystem: "entity_cache",
			Name:      "queries_total",
			Help:      "Number of framework and identity queries dispatched.",
		}, []string{"framework"}),
		completions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootcause",
			Subsystem: "entity_cache",
			Name:      "completions_total",
			Help:      "Number of completed queries by framework and result (merged, stale, failed).",
		}, []string{"framework", "result"}),
		identityShared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rootcause",
			Subsystem: "entity_cache",
			Name:      "identity_shared_total",
			Help:      "Number of identity lookups answered by an identical lookup already in flight.",
		}),
		entities: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rootcause",
			Subsystem: "entity_cache",
			Name:      "entities",
			Help:      "Number of entities in the store.",
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rootcause",
			Subsystem: "entity_cache",
			Name:      "pending_frameworks",
			Help:      "Number of search frameworks awaiting a response for the current context.",
		}),
	}
}
