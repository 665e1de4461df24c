package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/logging"
)

var ErrHeaderNotFound = errors.New("block header not found")

type BlockTimeResolver interface {
	BlockTime(ctx context.Context, log *types.Log) (time.Time, error)
}

// TimestampResolver resolves the timestamp of the block a log was emitted in.
// Resolved timestamps are cached in the block_timestamps table.
type TimestampResolver struct {
	logger  logging.Logger
	chainID uint64
	source  BlockSource
	repo    entity.BlockTimestampsRepo
	timeout time.Duration
}

func NewTimestampResolver(logger logging.Logger, chainID uint64, source BlockSource, repo entity.BlockTimestampsRepo, timeout time.Duration) *TimestampResolver {
	return &TimestampResolver{
		logger:  logger,
		chainID: chainID,
		source:  source,
		repo:    repo,
		timeout: timeout,
	}
}

func (r *TimestampResolver) BlockTime(ctx context.Context, log *types.Log) (time.Time, error) {
	ts, err := r.repo.GetByBlockNumber(ctx, r.chainID, log.BlockNumber)
	if err == nil {
		return ts.Timestamp, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return time.Time{}, fmt.Errorf("can't get block timestamp from db: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.timeout
	var header *types.Header
	err = backoff.RetryNotify(func() error {
		var err2 error
		header, err2 = r.fetchHeader(ctx, log)
		return err2
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"block_number": log.BlockNumber,
			"retry_in":     next,
		}).Warn("failed to get block header, retrying")
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("can't resolve timestamp of block %d: %w", log.BlockNumber, err)
	}

	blockTime := time.Unix(int64(header.Time), 0).UTC()
	err = r.repo.Ensure(ctx, &entity.BlockTimestamp{
		ChainID:     r.chainID,
		BlockNumber: log.BlockNumber,
		Timestamp:   blockTime,
	})
	if err != nil {
		r.logger.WithError(err).WithField("block_number", log.BlockNumber).Warn("can't cache block timestamp")
	}
	return blockTime, nil
}

// fetchHeader tries the block number first, then the block hash of the log,
// then the block referenced by the transaction receipt.
func (r *TimestampResolver) fetchHeader(ctx context.Context, log *types.Log) (*types.Header, error) {
	header, err := r.source.HeaderByNumber(ctx, log.BlockNumber)
	if err == nil && header != nil {
		return header, nil
	}
	lastErr := err
	if log.BlockHash != (common.Hash{}) {
		header, err = r.source.HeaderByHash(ctx, log.BlockHash)
		if err == nil && header != nil {
			return header, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if log.TxHash != (common.Hash{}) {
		receipt, err := r.source.TransactionReceiptByHash(ctx, log.TxHash)
		if err != nil {
			lastErr = err
		} else if receipt != nil {
			if receipt.BlockNumber != nil {
				header, err = r.source.HeaderByNumber(ctx, receipt.BlockNumber.Uint64())
				if err == nil && header != nil {
					return header, nil
				}
			}
			if receipt.BlockHash != (common.Hash{}) {
				header, err = r.source.HeaderByHash(ctx, receipt.BlockHash)
				if err == nil && header != nil {
					return header, nil
				}
			}
			if err != nil {
				lastErr = err
			}
		}
	}
	if lastErr == nil {
		lastErr = ErrHeaderNotFound
	}
	return nil, lastErr
}
