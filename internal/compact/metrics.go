package compact

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cupid",
		Subsystem: "compaction",
		Name:      "runs_total",
		Help:      "Compaction runs by result.",
	}, []string{"result"})

	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cupid",
		Subsystem: "compaction",
		Name:      "blocks_total",
		Help:      "Blocks processed by action.",
	}, []string{"action"})

	tokensReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cupid",
		Subsystem: "compaction",
		Name:      "tokens_reclaimed_total",
		Help:      "Estimated tokens removed from conversations by compaction.",
	})
)
