package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/contract"
	"github.com/gobridge/bridge-points/contract/bridgeabi"
	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/ethclient"
	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/monitor"
)

var bridgeAddress = common.HexToAddress("0x5af3107a4000000000000000000000000000b21d")

// fakeLogSource serves logs from memory in reverse order. Requests spanning
// more than maxSpan blocks are refused with a range error.
type fakeLogSource struct {
	mu       sync.Mutex
	head     uint64
	logs     []types.Log
	maxSpan  uint64
	errs     []error
	requests []monitor.BlocksRange
}

func (s *fakeLogSource) setHead(head uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = head
}

func (s *fakeLogSource) requestsMade() []monitor.BlocksRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]monitor.BlocksRange(nil), s.requests...)
}

func (s *fakeLogSource) BlockNumber(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, nil
}

func (s *fakeLogSource) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	s.requests = append(s.requests, monitor.BlocksRange{From: from, To: to})
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	if s.maxSpan > 0 && to-from+1 > s.maxSpan {
		return nil, fmt.Errorf("query exceeds max block range %d", s.maxSpan)
	}
	var res []types.Log
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].BlockNumber >= from && s.logs[i].BlockNumber <= to {
			res = append(res, s.logs[i])
		}
	}
	return res, nil
}

func (s *fakeLogSource) ClassifyError(err error) ethclient.ErrorKind {
	return ethclient.ClassifyError(err)
}

type fakeCursorsRepo struct {
	mu     sync.Mutex
	saved  []entity.Cursor
	err    error
	stored map[string]*entity.Cursor
}

func (r *fakeCursorsRepo) Ensure(_ context.Context, cursor *entity.Cursor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.stored == nil {
		r.stored = make(map[string]*entity.Cursor)
	}
	c := *cursor
	r.saved = append(r.saved, c)
	r.stored[c.ChainKey+"/"+c.EventName] = &c
	return nil
}

func (r *fakeCursorsRepo) GetByChainAndEvent(_ context.Context, chainKey, eventName string) (*entity.Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.stored[chainKey+"/"+eventName]
	if !ok {
		return nil, db.ErrNotFound
	}
	res := *c
	return &res, nil
}

func (r *fakeCursorsRepo) history() []entity.Cursor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Cursor(nil), r.saved...)
}

type logPosition struct {
	Block uint64
	Index uint
}

type recordingHandler struct {
	mu      sync.Mutex
	handled []logPosition
	failAt  *logPosition
}

func (h *recordingHandler) Handle(_ context.Context, log *types.Log) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	pos := logPosition{log.BlockNumber, log.Index}
	if h.failAt != nil && *h.failAt == pos {
		return errors.New("handler failure")
	}
	h.handled = append(h.handled, pos)
	return nil
}

func (h *recordingHandler) positions() []logPosition {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]logPosition(nil), h.handled...)
}

func testLogger() logging.Logger {
	logger := logging.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newLog(block uint64, index uint) types.Log {
	return types.Log{
		Address:     bridgeAddress,
		Topics:      []common.Hash{bridgeabi.BridgeInitializedEventSignature},
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(index))),
	}
}

func newTestBackfiller(source monitor.LogSource, cursors entity.CursorsRepo, maxRange, minRange uint64) *monitor.Backfiller {
	confirmations := uint64(2)
	chainCfg := &config.ChainConfig{
		Key:                        "base",
		ChainID:                    8453,
		BridgeAddress:              bridgeAddress,
		RequiredBlockConfirmations: &confirmations,
		MaxBlockRangeSize:          maxRange,
		MinBlockRangeSize:          minRange,
		TailInterval:               10 * time.Millisecond,
	}
	backfillCfg := &config.BackfillConfig{
		RangeBackoff:     time.Millisecond,
		RateLimitBackoff: time.Millisecond,
		RetryBackoff:     time.Millisecond,
	}
	c := contract.NewBridgeContract(bridgeAddress)
	return monitor.NewBackfiller(testLogger(), source, c.Contract, cursors, chainCfg, backfillCfg, bridgeabi.BridgeInitializedEventName)
}

func newTestState(block uint64) *monitor.StreamState {
	return monitor.NewStreamState(&entity.Cursor{
		ChainKey:  "base",
		EventName: bridgeabi.BridgeInitializedEventName,
		Block:     block,
	})
}
