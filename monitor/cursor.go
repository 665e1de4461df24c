package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
)

// LoadCursor returns the persisted cursor of the stream, or a cursor at
// defaultBlock when the stream was never indexed.
func LoadCursor(ctx context.Context, repo entity.CursorsRepo, chainKey, eventName string, defaultBlock uint64) (*entity.Cursor, error) {
	cursor, err := repo.GetByChainAndEvent(ctx, chainKey, eventName)
	if errors.Is(err, db.ErrNotFound) {
		return &entity.Cursor{
			ChainKey:  chainKey,
			EventName: eventName,
			Block:     defaultBlock,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't load %s cursor for chain %s: %w", eventName, chainKey, err)
	}
	return cursor, nil
}
