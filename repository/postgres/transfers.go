package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
)

type transfersRepo basePostgresRepo

func NewTransfersRepo(table string, db db.Querier) entity.TransfersRepo {
	return (*transfersRepo)(newBasePostgresRepo(table, db))
}

func (r *transfersRepo) base() *basePostgresRepo {
	return (*basePostgresRepo)(r)
}

func (r *transfersRepo) Create(ctx context.Context, transfer *entity.Transfer) (bool, error) {
	q, args, err := r.base().builder().Insert(r.table).
		Columns("request_id", "wallet_address", "from_chain", "from_hash", "start_timestamp", "points_awarded").
		Values(transfer.RequestID, transfer.WalletAddress, transfer.FromChain, transfer.FromHash,
			transfer.StartTimestamp.UTC(), transfer.PointsAwarded).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("can't build query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("can't insert transfer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("can't get affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *transfersRepo) Complete(ctx context.Context, c *entity.TransferCompletion) error {
	q, args, err := r.base().builder().Update(r.table).
		Set("to_chain", c.ToChain).
		Set("to_hash", c.ToHash).
		Set("end_timestamp", c.EndTimestamp.UTC()).
		Set("duration_ms", c.DurationMs).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"request_id": c.RequestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't complete transfer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("can't complete transfer %s: %w", c.RequestID, db.ErrNotFound)
	}
	return nil
}

func (r *transfersRepo) GetByRequestID(ctx context.Context, requestID string) (*entity.Transfer, error) {
	return r.getOne(ctx, sq.Eq{"request_id": requestID})
}

func (r *transfersRepo) FindByHashOrRequestID(ctx context.Context, fromHash, requestID string) (*entity.Transfer, error) {
	return r.getOne(ctx, sq.Or{
		sq.Eq{"from_hash": fromHash},
		sq.Eq{"request_id": requestID},
	})
}

func (r *transfersRepo) getOne(ctx context.Context, pred sq.Sqlizer) (*entity.Transfer, error) {
	q, args, err := r.base().builder().Select("*").
		From(r.table).
		Where(pred).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	transfer := new(entity.Transfer)
	err = r.db.GetContext(ctx, transfer, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get transfer: %w", err)
	}
	return transfer, nil
}

func (r *transfersRepo) FindByWallet(ctx context.Context, wallet string, limit uint64) ([]*entity.Transfer, error) {
	return r.Find(ctx, &entity.TransferFilter{
		Wallet: wallet,
		Limit:  limit,
	})
}

func (r *transfersRepo) Find(ctx context.Context, filter *entity.TransferFilter) ([]*entity.Transfer, error) {
	column := "start_timestamp"
	if filter.Sort == entity.SortByEnd {
		column = "end_timestamp"
	}
	builder := r.base().builder().Select("*").
		From(r.table).
		Where(sq.Eq{"wallet_address": filter.Wallet})
	if filter.FromChain != nil {
		builder = builder.Where(sq.Eq{"from_chain": *filter.FromChain})
	}
	if filter.ToChain != nil {
		builder = builder.Where(sq.Eq{"to_chain": *filter.ToChain})
	}
	if filter.Sort == entity.SortByEnd {
		builder = builder.Where(sq.NotEq{"end_timestamp": nil})
	}
	if filter.Cursor > 0 {
		anchor := fmt.Sprintf("(SELECT %s FROM %s WHERE id = ?)", column, r.table)
		builder = builder.Where(sq.Or{
			sq.Expr(fmt.Sprintf("%s < %s", column, anchor), filter.Cursor),
			sq.And{
				sq.Expr(fmt.Sprintf("%s = %s", column, anchor), filter.Cursor),
				sq.Lt{"id": filter.Cursor},
			},
		})
	}
	q, args, err := builder.
		OrderBy(column+" DESC", "id DESC").
		Limit(filter.Limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	transfers := make([]*entity.Transfer, 0, filter.Limit)
	err = r.db.SelectContext(ctx, &transfers, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't find transfers: %w", err)
	}
	return transfers, nil
}

func (r *transfersRepo) FindPendingOlderThan(ctx context.Context, before time.Time, limit uint64) ([]*entity.Transfer, error) {
	q, args, err := r.base().builder().Select("*").
		From(r.table).
		Where(sq.Eq{"end_timestamp": nil}).
		Where(sq.Lt{"start_timestamp": before.UTC()}).
		OrderBy("start_timestamp").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	transfers := make([]*entity.Transfer, 0, 10)
	err = r.db.SelectContext(ctx, &transfers, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't find pending transfers: %w", err)
	}
	return transfers, nil
}
