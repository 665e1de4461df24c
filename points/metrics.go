package points

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InitEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "correlator",
		Name:      "init_events_total",
		Help:      "BridgeInitialized events by outcome: applied or duplicate.",
	}, []string{"chain", "result"})
	FinalizeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "correlator",
		Name:      "finalize_events_total",
		Help:      "BridgeFinalized events by outcome: completed or parked.",
	}, []string{"result"})
	PendingSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "correlator",
		Name:      "pending_finalize_entries",
		Help:      "Finalize events waiting for their init event.",
	})
)
