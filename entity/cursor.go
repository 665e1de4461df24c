package entity

import (
	"context"
	"time"
)

// Cursor is the durable read position of a single (chain, event) stream.
// (Block, LogIndex) is the position of the next log to apply: every log
// sorting before it has already been handled.
type Cursor struct {
	ChainKey  string     `db:"chain_key"`
	EventName string     `db:"event_name"`
	Block     uint64     `db:"block"`
	LogIndex  uint32     `db:"log_index"`
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// Less reports whether c is strictly behind (block, logIndex).
func (c *Cursor) Less(block uint64, logIndex uint32) bool {
	return c.Block < block || (c.Block == block && c.LogIndex < logIndex)
}

// Applied reports whether the log at (block, logIndex) sorts before c.
func (c *Cursor) Applied(block uint64, logIndex uint32) bool {
	return block < c.Block || (block == c.Block && logIndex < c.LogIndex)
}

type CursorsRepo interface {
	Ensure(ctx context.Context, cursor *Cursor) error
	GetByChainAndEvent(ctx context.Context, chainKey, eventName string) (*Cursor, error)
}
