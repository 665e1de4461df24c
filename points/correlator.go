package points

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/repository"
)

const correlatorLockStripes = 64

// Correlator joins init and finalize events of the same request into one
// transfer record and awards points once per transfer. Events may arrive in
// any order and any number of times.
type Correlator struct {
	logger  logging.Logger
	repo    *repository.Repo
	pending PendingStore
	award   AwardRule
	locks   [correlatorLockStripes]sync.Mutex
}

func NewCorrelator(logger logging.Logger, repo *repository.Repo, pending PendingStore, award AwardRule) *Correlator {
	return &Correlator{
		logger:  logger,
		repo:    repo,
		pending: pending,
		award:   award,
	}
}

// lock serializes handling of a single request id across chains.
func (c *Correlator) lock(requestID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(requestID))
	mu := &c.locks[h.Sum32()%correlatorLockStripes]
	mu.Lock()
	return mu.Unlock
}

func (c *Correlator) OnInit(ctx context.Context, ev *InitEvent, chainKey string) error {
	defer c.lock(ev.RequestID)()

	logger := c.logger.WithFields(logrus.Fields{
		"chain":      chainKey,
		"request_id": ev.RequestID,
		"from_hash":  ev.FromHash,
	})
	_, err := c.repo.Transfers.FindByHashOrRequestID(ctx, ev.FromHash, ev.RequestID)
	if err == nil {
		logger.Debug("transfer already recorded, skipping init event")
		InitEvents.WithLabelValues(chainKey, "duplicate").Inc()
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("can't lookup transfer: %w", err)
	}

	award := c.award.Award(chainKey)
	var created, completed bool
	err = c.repo.Atomic(ctx, func(repo *repository.Repo) error {
		var err error
		created, err = repo.Transfers.Create(ctx, &entity.Transfer{
			RequestID:      ev.RequestID,
			WalletAddress:  ev.Wallet,
			FromChain:      ev.FromChain,
			FromHash:       ev.FromHash,
			StartTimestamp: ev.StartTime,
			PointsAwarded:  award,
		})
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		if err = repo.WalletPoints.Increment(ctx, ev.Wallet, award); err != nil {
			return err
		}
		fin, ok, err := c.pending.Get(ctx, ev.RequestID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		completed = true
		return repo.Transfers.Complete(ctx, &entity.TransferCompletion{
			RequestID:    ev.RequestID,
			ToChain:      fin.ToChain,
			ToHash:       fin.ToHash,
			EndTimestamp: fin.EndTimestamp,
			DurationMs:   entity.DurationMs(ev.StartTime, fin.EndTimestamp),
		})
	})
	if err != nil {
		return fmt.Errorf("can't apply init event %s: %w", ev.RequestID, err)
	}
	if !created {
		logger.Debug("transfer was recorded concurrently, skipping init event")
		InitEvents.WithLabelValues(chainKey, "duplicate").Inc()
		return nil
	}
	InitEvents.WithLabelValues(chainKey, "applied").Inc()
	logger.WithFields(logrus.Fields{
		"wallet":    ev.Wallet,
		"points":    award,
		"completed": completed,
	}).Info("recorded new transfer")
	if completed {
		FinalizeEvents.WithLabelValues("completed").Inc()
		if err = c.pending.Delete(ctx, ev.RequestID); err != nil {
			logger.WithError(err).Warn("can't delete applied pending finalize")
		}
	}
	return nil
}

func (c *Correlator) OnFinalize(ctx context.Context, ev *FinalizeEvent) error {
	defer c.lock(ev.RequestID)()

	logger := c.logger.WithFields(logrus.Fields{
		"request_id": ev.RequestID,
		"to_chain":   ev.ToChain,
		"to_hash":    ev.ToHash,
	})
	transfer, err := c.repo.Transfers.GetByRequestID(ctx, ev.RequestID)
	if errors.Is(err, db.ErrNotFound) {
		err = c.pending.Put(ctx, &entity.PendingFinalize{
			RequestID:    ev.RequestID,
			ToChain:      ev.ToChain,
			ToHash:       ev.ToHash,
			EndTimestamp: ev.EndTime,
		})
		if err != nil {
			return fmt.Errorf("can't park finalize event %s: %w", ev.RequestID, err)
		}
		FinalizeEvents.WithLabelValues("parked").Inc()
		logger.Info("init event not seen yet, parked finalize event")
		return nil
	}
	if err != nil {
		return fmt.Errorf("can't lookup transfer: %w", err)
	}
	err = c.repo.Transfers.Complete(ctx, &entity.TransferCompletion{
		RequestID:    ev.RequestID,
		ToChain:      ev.ToChain,
		ToHash:       ev.ToHash,
		EndTimestamp: ev.EndTime,
		DurationMs:   entity.DurationMs(transfer.StartTimestamp, ev.EndTime),
	})
	if err != nil {
		return fmt.Errorf("can't complete transfer %s: %w", ev.RequestID, err)
	}
	FinalizeEvents.WithLabelValues("completed").Inc()
	logger.Info("completed transfer")
	return nil
}
