package points

import (
	"context"
	"fmt"
	"time"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/entity"
)

// PendingStore buffers finalize events whose init event is not yet applied.
// Entries expire after a TTL.
type PendingStore interface {
	Put(ctx context.Context, entry *entity.PendingFinalize) error
	Get(ctx context.Context, requestID string) (*entity.PendingFinalize, bool, error)
	Delete(ctx context.Context, requestID string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

func NewPendingStore(cfg *config.PendingConfig) (PendingStore, error) {
	switch cfg.Backend {
	case config.PendingBackendRedis:
		return NewRedisPendingStore(cfg.Redis, cfg.TTL)
	case config.PendingBackendMemory, "":
		return NewMemoryPendingStore(cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown pending backend %q", cfg.Backend)
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 10
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
