package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/gobridge/bridge-points/points"
	"github.com/gobridge/bridge-points/repository"
)

type AlertsProvider struct {
	repo    *repository.Repo
	pending points.PendingStore
	now     func() time.Time
}

func NewAlertsProvider(repo *repository.Repo, pending points.PendingStore) *AlertsProvider {
	return &AlertsProvider{
		repo:    repo,
		pending: pending,
		now:     time.Now,
	}
}

type StalePendingTransfer struct {
	FromChain  uint64 `json:"from_chain,string"`
	RequestID  string `json:"request_id"`
	TxHash     string `json:"tx_hash"`
	Wallet     string `json:"wallet"`
	AgeSeconds int64  `json:"_value,string"`
}

func (p *AlertsProvider) FindStalePendingTransfers(ctx context.Context, params *AlertJobParams) (interface{}, error) {
	now := p.now()
	transfers, err := p.repo.Transfers.FindPendingOlderThan(ctx, now.Add(-params.StalePendingAfter), params.Limit)
	if err != nil {
		return nil, fmt.Errorf("can't find stale pending transfers: %w", err)
	}
	res := make([]*StalePendingTransfer, len(transfers))
	for i, transfer := range transfers {
		res[i] = &StalePendingTransfer{
			FromChain:  transfer.FromChain,
			RequestID:  transfer.RequestID,
			TxHash:     transfer.FromHash,
			Wallet:     transfer.WalletAddress,
			AgeSeconds: int64(now.Sub(transfer.StartTimestamp).Seconds()),
		}
	}
	return res, nil
}

type ParkedFinalizeEvents struct {
	Count int `json:"_value,string"`
}

func (p *AlertsProvider) CountParkedFinalizeEvents(ctx context.Context, _ *AlertJobParams) (interface{}, error) {
	n, err := p.pending.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't count parked finalize events: %w", err)
	}
	return []*ParkedFinalizeEvents{{Count: n}}, nil
}
