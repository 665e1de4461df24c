package entity

import (
	"context"
	"time"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "Pending"
	TransferStatusCompleted TransferStatus = "Completed"
)

type Transfer struct {
	ID             uint64     `db:"id" json:"id"`
	RequestID      string     `db:"request_id" json:"requestId"`
	WalletAddress  string     `db:"wallet_address" json:"walletAddress"`
	FromChain      uint64     `db:"from_chain" json:"fromChain"`
	FromHash       string     `db:"from_hash" json:"fromHash"`
	ToChain        *uint64    `db:"to_chain" json:"toChain"`
	ToHash         *string    `db:"to_hash" json:"toHash"`
	StartTimestamp time.Time  `db:"start_timestamp" json:"startTimestamp"`
	EndTimestamp   *time.Time `db:"end_timestamp" json:"endTimestamp"`
	DurationMs     *int64     `db:"duration_ms" json:"durationMs"`
	PointsAwarded  int64      `db:"points_awarded" json:"pointsAwarded"`
	CreatedAt      *time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updatedAt"`
}

func (t *Transfer) Status() TransferStatus {
	if t.EndTimestamp != nil {
		return TransferStatusCompleted
	}
	return TransferStatusPending
}

// TransferCompletion carries the destination side of a transfer.
type TransferCompletion struct {
	RequestID    string
	ToChain      uint64
	ToHash       string
	EndTimestamp time.Time
	DurationMs   int64
}

// DurationMs returns the non-negative distance between two timestamps.
func DurationMs(start, end time.Time) int64 {
	d := end.Sub(start).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}

type TransferSort int

const (
	SortByStart TransferSort = iota
	SortByEnd
)

// TransferFilter selects a page of a wallet's transfers, newest first by
// the chosen timestamp. Cursor is the id of the last row of the previous
// page. Sorting by end only yields completed transfers.
type TransferFilter struct {
	Wallet    string
	FromChain *uint64
	ToChain   *uint64
	Sort      TransferSort
	Cursor    uint64
	Limit     uint64
}

type TransfersRepo interface {
	// Create inserts the transfer unless one with the same request id or
	// source hash already exists. It reports whether a row was inserted.
	Create(ctx context.Context, transfer *Transfer) (bool, error)
	Complete(ctx context.Context, completion *TransferCompletion) error
	GetByRequestID(ctx context.Context, requestID string) (*Transfer, error)
	FindByHashOrRequestID(ctx context.Context, fromHash, requestID string) (*Transfer, error)
	FindByWallet(ctx context.Context, wallet string, limit uint64) ([]*Transfer, error)
	Find(ctx context.Context, filter *TransferFilter) ([]*Transfer, error)
	FindPendingOlderThan(ctx context.Context, before time.Time, limit uint64) ([]*Transfer, error)
}
