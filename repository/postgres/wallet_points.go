package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
)

type walletPointsRepo basePostgresRepo

func NewWalletPointsRepo(table string, db db.Querier) entity.WalletPointsRepo {
	return (*walletPointsRepo)(newBasePostgresRepo(table, db))
}

func (r *walletPointsRepo) base() *basePostgresRepo {
	return (*basePostgresRepo)(r)
}

func (r *walletPointsRepo) Increment(ctx context.Context, wallet string, delta int64) error {
	q, args, err := r.base().builder().Insert(r.table).
		Columns("wallet_address", "points").
		Values(wallet, delta).
		Suffix(fmt.Sprintf("ON CONFLICT (wallet_address) DO UPDATE SET "+
			"updated_at = CURRENT_TIMESTAMP, points = %s.points + EXCLUDED.points", r.table)).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't increment wallet points: %w", err)
	}
	return nil
}

func (r *walletPointsRepo) GetByWallet(ctx context.Context, wallet string) (*entity.WalletPoints, error) {
	q, args, err := r.base().builder().Select("*").
		From(r.table).
		Where(sq.Eq{"wallet_address": wallet}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	wp := new(entity.WalletPoints)
	err = r.db.GetContext(ctx, wp, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get wallet points: %w", err)
	}
	return wp, nil
}
