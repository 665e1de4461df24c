package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatestHeadBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "stream",
		Name:      "latest_head_block",
		Help:      "Shows the latest confirmation-safe head block observed for the particular chain.",
	}, []string{"chain", "event"})
	LatestProcessedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "stream",
		Name:      "latest_processed_block",
		Help:      "Shows the next block to be scanned by the particular stream. Logs before this block are already applied.",
	}, []string{"chain", "event"})
	SyncedStream = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "stream",
		Name:      "synced",
		Help:      "Shows 1 if the stream has caught up with the confirmation-safe head at least once.",
	}, []string{"chain", "event"})
	BackfillPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "backfill",
		Name:      "pages_total",
		Help:      "Counts block range pages fetched and applied by the stream.",
	}, []string{"chain", "event"})
	BackfillLogs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "backfill",
		Name:      "logs_total",
		Help:      "Counts logs applied by the stream.",
	}, []string{"chain", "event"})
	BackfillFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "backfill",
		Name:      "fetch_errors_total",
		Help:      "Counts failed log requests by error kind.",
	}, []string{"chain", "event", "kind"})
	BackfillRangeSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "backfill",
		Name:      "range_size",
		Help:      "Shows the current adaptive block range size used by the stream.",
	}, []string{"chain", "event"})
)
