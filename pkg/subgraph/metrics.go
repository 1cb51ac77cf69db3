package subgraph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dexcollector",
		Subsystem: "subgraph",
		Name:      "query_duration_seconds",
		Help:      "Latency of GraphQL queries sent to the subgraph.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"client", "status"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dexcollector",
		Subsystem: "subgraph",
		Name:      "cache_hits_total",
		Help:      "Queries answered from the in-memory result cache.",
	}, []string{"client"})
)
