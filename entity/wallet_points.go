package entity

import (
	"context"
	"time"
)

type WalletPoints struct {
	WalletAddress string     `db:"wallet_address"`
	Points        int64      `db:"points"`
	CreatedAt     *time.Time `db:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at"`
}

type WalletPointsRepo interface {
	Increment(ctx context.Context, wallet string, delta int64) error
	GetByWallet(ctx context.Context, wallet string) (*WalletPoints, error)
}
