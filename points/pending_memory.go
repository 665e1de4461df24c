package points

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/gobridge/bridge-points/entity"
)

type memoryPendingStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemoryPendingStore keeps entries in process memory. Expired entries are
// removed by a background janitor.
func NewMemoryPendingStore(ttl time.Duration) PendingStore {
	return &memoryPendingStore{
		cache: cache.New(ttl, cleanupInterval(ttl)),
		ttl:   ttl,
	}
}

func (s *memoryPendingStore) Put(_ context.Context, entry *entity.PendingFinalize) error {
	e := *entry
	s.cache.Set(entry.RequestID, &e, s.ttl)
	PendingSize.Set(float64(s.cache.ItemCount()))
	return nil
}

func (s *memoryPendingStore) Get(_ context.Context, requestID string) (*entity.PendingFinalize, bool, error) {
	v, ok := s.cache.Get(requestID)
	if !ok {
		return nil, false, nil
	}
	e := *v.(*entity.PendingFinalize)
	return &e, true, nil
}

func (s *memoryPendingStore) Delete(_ context.Context, requestID string) error {
	s.cache.Delete(requestID)
	PendingSize.Set(float64(s.cache.ItemCount()))
	return nil
}

func (s *memoryPendingStore) Len(_ context.Context) (int, error) {
	n := s.cache.ItemCount()
	PendingSize.Set(float64(n))
	return n, nil
}

func (s *memoryPendingStore) Close() error {
	s.cache.Flush()
	return nil
}
