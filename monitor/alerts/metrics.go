package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NewAlertStalePendingTransfer = func() *prometheus.GaugeVec {
		return promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "alert",
			Subsystem: "indexer",
			Name:      "stale_pending_transfer",
			Help:      "Shows transfers that are still waiting for their finalize event, valued by age in seconds.",
		}, []string{"from_chain", "request_id", "tx_hash", "wallet"})
	}
	NewAlertParkedFinalizeEvents = func() *prometheus.GaugeVec {
		return promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "alert",
			Subsystem: "indexer",
			Name:      "parked_finalize_events",
			Help:      "Shows the number of finalize events waiting for their init event.",
		}, []string{})
	}
)
