package monitor

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/gobridge/bridge-points/entity"
)

const (
	StreamIdle int32 = iota
	StreamRunning
)

// StreamState is the in-memory state of one (chain, event) stream: its read
// cursor, a single-flight guard shared by the tail loop and the catch-up
// schedule, and the active flag checked by the tail loop.
type StreamState struct {
	ChainKey  string
	EventName string

	status *atomic.Int32
	active *atomic.Bool
	synced *atomic.Bool

	mu     sync.RWMutex
	cursor entity.Cursor
}

func NewStreamState(cursor *entity.Cursor) *StreamState {
	return &StreamState{
		ChainKey:  cursor.ChainKey,
		EventName: cursor.EventName,
		status:    atomic.NewInt32(StreamIdle),
		active:    atomic.NewBool(true),
		synced:    atomic.NewBool(false),
		cursor:    *cursor,
	}
}

// TryAcquire moves the stream from Idle to Running. It returns false if a
// backfill is already in flight.
func (s *StreamState) TryAcquire() bool {
	return s.status.CompareAndSwap(StreamIdle, StreamRunning)
}

func (s *StreamState) Release() {
	s.status.Store(StreamIdle)
}

func (s *StreamState) IsRunning() bool {
	return s.status.Load() == StreamRunning
}

func (s *StreamState) IsActive() bool {
	return s.active.Load()
}

func (s *StreamState) Deactivate() {
	s.active.Store(false)
}

// IsSynced reports whether the stream has reached the confirmation-safe head
// at least once.
func (s *StreamState) IsSynced() bool {
	return s.synced.Load()
}

func (s *StreamState) markSynced() {
	s.synced.Store(true)
}

func (s *StreamState) Cursor() entity.Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// setCursor moves the cursor forward, positions behind it are ignored.
func (s *StreamState) setCursor(block uint64, logIndex uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cursor.Less(block, logIndex) {
		return false
	}
	s.cursor.Block = block
	s.cursor.LogIndex = logIndex
	return true
}
