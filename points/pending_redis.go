package points

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/entity"
)

const pendingKeyPrefix = "pending_finalize:"

type redisPendingStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPendingStore keeps entries in redis, so parked finalize events
// survive restarts. Expiry is delegated to redis.
func NewRedisPendingStore(cfg *config.RedisConfig, ttl time.Duration) (PendingStore, error) {
	if cfg == nil {
		return nil, errors.New("redis config is missing")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("can't parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("can't connect to redis: %w", err)
	}
	return NewRedisPendingStoreWithClient(rdb, ttl), nil
}

func NewRedisPendingStoreWithClient(rdb *redis.Client, ttl time.Duration) PendingStore {
	return &redisPendingStore{rdb: rdb, ttl: ttl}
}

func pendingKey(requestID string) string {
	return pendingKeyPrefix + requestID
}

func (s *redisPendingStore) Put(ctx context.Context, entry *entity.PendingFinalize) error {
	blob, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("can't encode pending finalize: %w", err)
	}
	if err = s.rdb.Set(ctx, pendingKey(entry.RequestID), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("can't store pending finalize: %w", err)
	}
	return nil
}

func (s *redisPendingStore) Get(ctx context.Context, requestID string) (*entity.PendingFinalize, bool, error) {
	blob, err := s.rdb.Get(ctx, pendingKey(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("can't get pending finalize: %w", err)
	}
	entry := new(entity.PendingFinalize)
	if err = json.Unmarshal(blob, entry); err != nil {
		return nil, false, fmt.Errorf("can't decode pending finalize: %w", err)
	}
	return entry, true, nil
}

func (s *redisPendingStore) Delete(ctx context.Context, requestID string) error {
	if err := s.rdb.Del(ctx, pendingKey(requestID)).Err(); err != nil {
		return fmt.Errorf("can't delete pending finalize: %w", err)
	}
	return nil
}

func (s *redisPendingStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.rdb.Scan(ctx, 0, pendingKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("can't count pending finalize entries: %w", err)
	}
	return n, nil
}

func (s *redisPendingStore) Close() error {
	return s.rdb.Close()
}
