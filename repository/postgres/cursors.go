package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
)

type cursorsRepo basePostgresRepo

func NewCursorsRepo(table string, db db.Querier) entity.CursorsRepo {
	return (*cursorsRepo)(newBasePostgresRepo(table, db))
}

func (r *cursorsRepo) base() *basePostgresRepo {
	return (*basePostgresRepo)(r)
}

// Ensure upserts the cursor. A stored position ahead of the given one is
// left untouched, so the cursor never moves backwards.
func (r *cursorsRepo) Ensure(ctx context.Context, cursor *entity.Cursor) error {
	q, args, err := r.base().builder().Insert(r.table).
		Columns("chain_key", "event_name", "block", "log_index").
		Values(cursor.ChainKey, cursor.EventName, cursor.Block, cursor.LogIndex).
		Suffix(fmt.Sprintf("ON CONFLICT (chain_key, event_name) DO UPDATE SET "+
			"updated_at = CURRENT_TIMESTAMP, block = EXCLUDED.block, log_index = EXCLUDED.log_index "+
			"WHERE %[1]s.block < EXCLUDED.block OR (%[1]s.block = EXCLUDED.block AND %[1]s.log_index <= EXCLUDED.log_index)", r.table)).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert cursor: %w", err)
	}
	return nil
}

func (r *cursorsRepo) GetByChainAndEvent(ctx context.Context, chainKey, eventName string) (*entity.Cursor, error) {
	q, args, err := r.base().builder().Select("*").
		From(r.table).
		Where(sq.Eq{"chain_key": chainKey, "event_name": eventName}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	cursor := new(entity.Cursor)
	err = r.db.GetContext(ctx, cursor, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get cursor by chain and event: %w", err)
	}
	return cursor, nil
}
