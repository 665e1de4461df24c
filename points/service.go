package points

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/repository"
)

type Thresholds struct {
	Current int64 `json:"current"`
	Next    int64 `json:"next"`
}

type UserView struct {
	Address     string             `json:"address"`
	Points      int64              `json:"points"`
	Level       int                `json:"level"`
	Thresholds  Thresholds         `json:"thresholds"`
	ProgressPct int                `json:"progressPct"`
	Transfers   []*entity.Transfer `json:"transfers"`
	UpdatedAt   *time.Time         `json:"updatedAt"`
	CreatedAt   *time.Time         `json:"createdAt"`
}

type TransfersPage struct {
	Items      []*entity.Transfer `json:"items"`
	NextCursor *uint64            `json:"nextCursor"`
}

// Service is the read side over the transfer and points ledgers.
type Service struct {
	repo       *repository.Repo
	thresholds []int64
}

func NewService(repo *repository.Repo, thresholds []int64) *Service {
	return &Service{
		repo:       repo,
		thresholds: thresholds,
	}
}

func (s *Service) GetUserView(ctx context.Context, address string, limit uint64) (*UserView, error) {
	wallet := strings.ToLower(address)
	view := &UserView{Address: wallet}

	wp, err := s.repo.WalletPoints.GetByWallet(ctx, wallet)
	if err = db.IgnoreErrNotFound(err); err != nil {
		return nil, fmt.Errorf("can't get wallet points: %w", err)
	}
	if wp != nil {
		view.Points = wp.Points
		view.CreatedAt = wp.CreatedAt
		view.UpdatedAt = wp.UpdatedAt
	}

	view.Transfers, err = s.repo.Transfers.FindByWallet(ctx, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("can't find wallet transfers: %w", err)
	}

	level := ComputeLevel(view.Points, s.thresholds)
	view.Level = level.Level
	view.Thresholds = Thresholds{Current: level.CurrentCap, Next: level.NextCap}
	view.ProgressPct = level.ProgressPct
	return view, nil
}

// ListTransfers returns one page of a wallet's transfers. NextCursor is set
// when the page is full.
func (s *Service) ListTransfers(ctx context.Context, filter *entity.TransferFilter) (*TransfersPage, error) {
	f := *filter
	f.Wallet = strings.ToLower(f.Wallet)
	items, err := s.repo.Transfers.Find(ctx, &f)
	if err != nil {
		return nil, fmt.Errorf("can't list transfers: %w", err)
	}
	page := &TransfersPage{Items: items}
	if f.Limit > 0 && uint64(len(items)) == f.Limit {
		next := items[len(items)-1].ID
		page.NextCursor = &next
	}
	return page, nil
}
