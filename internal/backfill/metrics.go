package backfill

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backfillRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dexcollector",
		Subsystem: "backfill",
		Name:      "runs_total",
		Help:      "Token chart backfills by execution mode and outcome.",
	}, []string{"mode", "result"})

	backfillDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dexcollector",
		Subsystem: "backfill",
		Name:      "duration_seconds",
		Help:      "Time spent fetching and filling a token chart.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"mode"})
)
