package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/contract"
	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/ethclient"
	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/utils"
)

// Backfiller scans a single event of the bridge contract from the stream
// cursor up to the confirmation-safe head, shrinking the requested block
// range when the provider refuses it.
type Backfiller struct {
	logger           logging.Logger
	chainKey         string
	eventName        string
	source           LogSource
	contract         *contract.Contract
	cursors          entity.CursorsRepo
	confirmations    uint64
	maxRange         uint64
	minRange         uint64
	rangeBackoff     time.Duration
	rateLimitBackoff time.Duration
	retryBackoff     time.Duration

	headMetric      prometheus.Gauge
	processedMetric prometheus.Gauge
	pagesMetric     prometheus.Counter
	logsMetric      prometheus.Counter
	rangeMetric     prometheus.Gauge
	syncedMetric    prometheus.Gauge
}

func NewBackfiller(logger logging.Logger, source LogSource, c *contract.Contract, cursors entity.CursorsRepo, chainCfg *config.ChainConfig, cfg *config.BackfillConfig, eventName string) *Backfiller {
	minRange, maxRange := chainCfg.MinBlockRangeSize, chainCfg.MaxBlockRangeSize
	if minRange == 0 {
		minRange = 1
	}
	if maxRange < minRange {
		maxRange = minRange
	}
	labels := prometheus.Labels{
		"chain": chainCfg.Key,
		"event": eventName,
	}
	return &Backfiller{
		logger: logger.WithFields(logrus.Fields{
			"chain": chainCfg.Key,
			"event": eventName,
		}),
		chainKey:         chainCfg.Key,
		eventName:        eventName,
		source:           source,
		contract:         c,
		cursors:          cursors,
		confirmations:    chainCfg.BlockConfirmations(),
		maxRange:         maxRange,
		minRange:         minRange,
		rangeBackoff:     cfg.RangeBackoff,
		rateLimitBackoff: cfg.RateLimitBackoff,
		retryBackoff:     cfg.RetryBackoff,
		headMetric:       LatestHeadBlock.With(labels),
		processedMetric:  LatestProcessedBlock.With(labels),
		pagesMetric:      BackfillPages.With(labels),
		logsMetric:       BackfillLogs.With(labels),
		rangeMetric:      BackfillRangeSize.With(labels),
		syncedMetric:     SyncedStream.With(labels),
	}
}

// Run applies all logs between the stream cursor and the confirmation-safe
// head in (block, log index) order. It returns immediately if another Run of
// the same stream is in flight. Handler, persistence and fatal provider
// errors are returned with the cursor left before the failed log.
func (b *Backfiller) Run(ctx context.Context, state *StreamState, handle LogHandler) error {
	if !state.TryAcquire() {
		b.logger.Debug("backfill is already running, skipping")
		return nil
	}
	defer state.Release()

	head, err := b.headBlock(ctx)
	if err != nil {
		return err
	}
	var bound uint64
	if head > b.confirmations {
		bound = head - b.confirmations
	}
	b.headMetric.Set(float64(bound))

	width := b.maxRange
	b.rangeMetric.Set(float64(width))
	for {
		cursor := state.Cursor()
		if cursor.Block >= bound {
			state.markSynced()
			b.syncedMetric.Set(1)
			return nil
		}
		from := cursor.Block
		to := from + width - 1
		if to > bound-1 {
			to = bound - 1
		}
		logger := b.logger.WithFields(logrus.Fields{
			"from_block": from,
			"to_block":   to,
		})

		q, err := b.contract.FilterQuery(b.eventName, from, to)
		if err != nil {
			return fmt.Errorf("can't build logs query: %w", err)
		}
		logs, err := b.source.FilterLogs(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			kind := b.source.ClassifyError(err)
			BackfillFetchErrors.WithLabelValues(b.chainKey, b.eventName, kind.String()).Inc()
			var wait time.Duration
			switch kind {
			case ethclient.ErrorKindRangeTooLarge, ethclient.ErrorKindRateLimited:
				next := width / 2
				if next < b.minRange {
					next = b.minRange
				}
				if next != width {
					logger.WithError(err).WithField("range_size", next).Warn("provider refused block range, shrinking")
				}
				width = next
				b.rangeMetric.Set(float64(width))
				wait = b.rangeBackoff
				if kind == ethclient.ErrorKindRateLimited {
					wait = b.rateLimitBackoff
				}
			case ethclient.ErrorKindFatal:
				return fmt.Errorf("can't fetch logs in range [%d, %d]: %w", from, to, err)
			default:
				logger.WithError(err).Error("failed logs fetching, retrying")
				wait = b.retryBackoff
			}
			if !utils.ContextSleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}

		SortLogs(logs)
		logger.WithField("count", len(logs)).Debug("fetched logs in range")
		for i := range logs {
			log := &logs[i]
			if log.Removed || cursor.Applied(log.BlockNumber, uint32(log.Index)) {
				continue
			}
			if err = handle(ctx, log); err != nil {
				return fmt.Errorf("can't handle log %s:%d in block %d: %w", log.TxHash, log.Index, log.BlockNumber, err)
			}
			if err = b.advance(ctx, state, log.BlockNumber, uint32(log.Index)+1); err != nil {
				return err
			}
			b.logsMetric.Inc()
		}
		if err = b.advance(ctx, state, to+1, 0); err != nil {
			return err
		}
		b.pagesMetric.Inc()
		if len(logs) > 0 {
			logger.WithField("count", len(logs)).Info("applied logs in range")
		}
	}
}

func (b *Backfiller) headBlock(ctx context.Context) (uint64, error) {
	for {
		head, err := b.source.BlockNumber(ctx)
		if err == nil {
			return head, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if b.source.ClassifyError(err) == ethclient.ErrorKindFatal {
			return 0, fmt.Errorf("can't fetch latest block number: %w", err)
		}
		b.logger.WithError(err).Error("can't fetch latest block number, retrying")
		if !utils.ContextSleep(ctx, b.retryBackoff) {
			return 0, ctx.Err()
		}
	}
}

// advance persists the new cursor position and only then exposes it in state.
func (b *Backfiller) advance(ctx context.Context, state *StreamState, block uint64, logIndex uint32) error {
	cursor := state.Cursor()
	if !cursor.Less(block, logIndex) {
		return nil
	}
	cursor.Block = block
	cursor.LogIndex = logIndex
	if err := b.cursors.Ensure(ctx, &cursor); err != nil {
		return fmt.Errorf("can't save %s cursor: %w", b.eventName, err)
	}
	state.setCursor(block, logIndex)
	b.processedMetric.Set(float64(block))
	return nil
}
