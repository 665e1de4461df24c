package repository

import (
	"context"

	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/repository/postgres"
)

type Repo struct {
	Cursors         entity.CursorsRepo
	Transfers       entity.TransfersRepo
	WalletPoints    entity.WalletPointsRepo
	BlockTimestamps entity.BlockTimestampsRepo

	conn *db.DB
}

func NewRepo(conn *db.DB) *Repo {
	repo := newRepo(conn)
	repo.conn = conn
	return repo
}

func newRepo(q db.Querier) *Repo {
	return &Repo{
		Cursors:         postgres.NewCursorsRepo("cursors", q),
		Transfers:       postgres.NewTransfersRepo("transfers", q),
		WalletPoints:    postgres.NewWalletPointsRepo("wallet_points", q),
		BlockTimestamps: postgres.NewBlockTimestampsRepo("block_timestamps", q),
	}
}

// Atomic runs fn with repositories bound to a single transaction.
// Calls on a repo that is already transactional run fn in place.
func (r *Repo) Atomic(ctx context.Context, fn func(repo *Repo) error) error {
	if r.conn == nil {
		return fn(r)
	}
	return r.conn.RunInTx(ctx, func(tx *db.Tx) error {
		return fn(newRepo(tx))
	})
}
