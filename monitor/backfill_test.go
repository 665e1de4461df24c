package monitor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/gobridge/bridge-points/contract/bridgeabi"
	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/ethclient"
	"github.com/gobridge/bridge-points/monitor"
)

func TestBackfiller_AppliesLogsInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := &fakeLogSource{
		head: 10,
		logs: []types.Log{newLog(5, 2), newLog(4, 9), newLog(5, 0)},
	}
	cursors := new(fakeCursorsRepo)
	handler := new(recordingHandler)
	state := newTestState(0)

	err := newTestBackfiller(source, cursors, 1000, 100).Run(ctx, state, handler.Handle)
	require.NoError(t, err)
	require.Equal(t, []logPosition{{4, 9}, {5, 0}, {5, 2}}, handler.positions())

	cursor := state.Cursor()
	require.Equal(t, uint64(8), cursor.Block)
	require.Equal(t, uint32(0), cursor.LogIndex)
	require.Equal(t, []monitor.BlocksRange{{From: 0, To: 7}}, source.requestsMade())
	require.True(t, state.IsSynced())

	stored, err := cursors.GetByChainAndEvent(ctx, cursor.ChainKey, cursor.EventName)
	require.NoError(t, err)
	require.Equal(t, cursor.Block, stored.Block)
}

func TestBackfiller_ShrinksRangeOnProviderLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var logs []types.Log
	var expected []logPosition
	for block := uint64(3); block < 10_000; block += 97 {
		logs = append(logs, newLog(block, 1))
		expected = append(expected, logPosition{block, 1})
	}
	source := &fakeLogSource{
		head:    10_002,
		logs:    logs,
		maxSpan: 500,
	}
	handler := new(recordingHandler)
	state := newTestState(0)

	err := newTestBackfiller(source, new(fakeCursorsRepo), 1000, 250).Run(ctx, state, handler.Handle)
	require.NoError(t, err)
	require.Equal(t, expected, handler.positions(), "every log is applied exactly once")
	require.Equal(t, uint64(10_000), state.Cursor().Block)

	requests := source.requestsMade()
	require.Equal(t, monitor.BlocksRange{From: 0, To: 999}, requests[0])
	for _, r := range requests[1:] {
		require.LessOrEqual(t, r.To-r.From+1, uint64(500), "request %d-%d after shrink", r.From, r.To)
		require.GreaterOrEqual(t, r.To-r.From+1, uint64(250))
	}
	require.Equal(t, uint64(9_999), requests[len(requests)-1].To)
}

func TestBackfiller_RangeSizeFloor(t *testing.T) {
	t.Parallel()

	source := &fakeLogSource{
		head: 5_002,
		errs: []error{
			errors.New("block range too large"),
			errors.New("block range too large"),
			errors.New("block range too large"),
		},
	}
	err := newTestBackfiller(source, new(fakeCursorsRepo), 4000, 1500).Run(context.Background(), newTestState(0), new(recordingHandler).Handle)
	require.NoError(t, err)

	requests := source.requestsMade()
	require.Equal(t, monitor.BlocksRange{From: 0, To: 3999}, requests[0])
	require.Equal(t, monitor.BlocksRange{From: 0, To: 1999}, requests[1])
	require.Equal(t, monitor.BlocksRange{From: 0, To: 1499}, requests[2])
	require.Equal(t, monitor.BlocksRange{From: 0, To: 1499}, requests[3])
}

func TestBackfiller_CursorIsMonotonic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := &fakeLogSource{
		head: 302,
		logs: []types.Log{newLog(10, 0), newLog(10, 3), newLog(150, 1), newLog(299, 4), newLog(420, 0)},
	}
	cursors := new(fakeCursorsRepo)
	handler := new(recordingHandler)
	state := newTestState(0)
	backfiller := newTestBackfiller(source, cursors, 100, 10)

	require.NoError(t, backfiller.Run(ctx, state, handler.Handle))
	require.Equal(t, uint64(300), state.Cursor().Block)

	// head moving backwards must not move the cursor back
	source.setHead(200)
	require.NoError(t, backfiller.Run(ctx, state, handler.Handle))
	require.Equal(t, uint64(300), state.Cursor().Block)

	source.setHead(502)
	require.NoError(t, backfiller.Run(ctx, state, handler.Handle))
	require.Equal(t, uint64(500), state.Cursor().Block)
	require.Equal(t, []logPosition{{10, 0}, {10, 3}, {150, 1}, {299, 4}, {420, 0}}, handler.positions())

	history := cursors.history()
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		require.True(t, prev.Less(cur.Block, cur.LogIndex), "cursor moved from %d:%d to %d:%d", prev.Block, prev.LogIndex, cur.Block, cur.LogIndex)
	}
}

func TestBackfiller_SingleFlight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := &fakeLogSource{
		head: 100,
		logs: []types.Log{newLog(50, 0)},
	}
	state := newTestState(0)
	backfiller := newTestBackfiller(source, new(fakeCursorsRepo), 1000, 100)

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := func(ctx context.Context, log *types.Log) error {
		close(entered)
		<-release
		return nil
	}
	done := make(chan error, 1)
	go func() {
		done <- backfiller.Run(ctx, state, blocking)
	}()
	<-entered
	require.True(t, state.IsRunning())

	handler := new(recordingHandler)
	require.NoError(t, backfiller.Run(ctx, state, handler.Handle))
	require.Empty(t, handler.positions())
	require.Len(t, source.requestsMade(), 1)

	close(release)
	require.NoError(t, <-done)
	require.False(t, state.IsRunning())
	require.Equal(t, uint64(98), state.Cursor().Block)
}

func TestBackfiller_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Log("Running sub-test \"Fatal provider error\"")
	source := &fakeLogSource{
		head: 100,
		errs: []error{ethclient.ErrInvalidLogsQuery},
	}
	state := newTestState(10)
	err := newTestBackfiller(source, new(fakeCursorsRepo), 1000, 100).Run(ctx, state, new(recordingHandler).Handle)
	require.ErrorIs(t, err, ethclient.ErrInvalidLogsQuery)
	require.False(t, state.IsSynced())
	require.Equal(t, uint64(10), state.Cursor().Block)
	require.False(t, state.IsRunning())

	t.Log("Running sub-test \"Transient provider errors are retried\"")
	source = &fakeLogSource{
		head: 100,
		logs: []types.Log{newLog(20, 0)},
		errs: []error{errors.New("connection reset by peer"), errors.New("EOF")},
	}
	handler := new(recordingHandler)
	state = newTestState(10)
	require.NoError(t, newTestBackfiller(source, new(fakeCursorsRepo), 1000, 100).Run(ctx, state, handler.Handle))
	require.Equal(t, []logPosition{{20, 0}}, handler.positions())
	require.Len(t, source.requestsMade(), 3)

	t.Log("Running sub-test \"Handler error keeps the cursor before the failed log\"")
	source = &fakeLogSource{
		head: 10,
		logs: []types.Log{newLog(4, 9), newLog(5, 0), newLog(5, 2)},
	}
	handler = &recordingHandler{failAt: &logPosition{5, 2}}
	state = newTestState(0)
	backfiller := newTestBackfiller(source, new(fakeCursorsRepo), 1000, 100)
	err = backfiller.Run(ctx, state, handler.Handle)
	require.Error(t, err)
	require.Equal(t, uint64(5), state.Cursor().Block)
	require.Equal(t, uint32(1), state.Cursor().LogIndex)

	handler.failAt = nil
	require.NoError(t, backfiller.Run(ctx, state, handler.Handle))
	require.Equal(t, []logPosition{{4, 9}, {5, 0}, {5, 2}}, handler.positions())
	require.Equal(t, uint64(8), state.Cursor().Block)

	t.Log("Running sub-test \"Cursor persistence error\"")
	source = &fakeLogSource{
		head: 10,
		logs: []types.Log{newLog(4, 9)},
	}
	state = newTestState(0)
	err = newTestBackfiller(source, &fakeCursorsRepo{err: errors.New("db is down")}, 1000, 100).Run(ctx, state, new(recordingHandler).Handle)
	require.Error(t, err)
	require.Equal(t, uint64(0), state.Cursor().Block)
}

func TestBackfiller_ContextCancelled(t *testing.T) {
	t.Parallel()

	errs := make([]error, 1000)
	for i := range errs {
		errs[i] = errors.New("connection refused")
	}
	source := &fakeLogSource{head: 100, errs: errs}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := newTestBackfiller(source, new(fakeCursorsRepo), 1000, 100).Run(ctx, newTestState(0), new(recordingHandler).Handle)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackfiller_SkipsRemovedAndUnconfirmed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	removed := newLog(3, 1)
	removed.Removed = true
	source := &fakeLogSource{
		head: 1,
		logs: []types.Log{newLog(3, 0), removed, newLog(7, 0)},
	}
	handler := new(recordingHandler)
	state := newTestState(0)
	backfiller := newTestBackfiller(source, new(fakeCursorsRepo), 1000, 100)

	require.NoError(t, backfiller.Run(ctx, state, handler.Handle))
	require.Empty(t, source.requestsMade(), "head is within confirmation depth")

	source.setHead(7)
	require.NoError(t, backfiller.Run(ctx, state, handler.Handle))
	require.Equal(t, []logPosition{{3, 0}}, handler.positions())
	require.Equal(t, uint64(5), state.Cursor().Block)
}

func TestBackfiller_ResumesAfterAppliedLogs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := &fakeLogSource{
		head: 10,
		logs: []types.Log{newLog(5, 0), newLog(5, 1), newLog(5, 2), newLog(5, 3)},
	}
	cursors := new(fakeCursorsRepo)
	handler := &recordingHandler{failAt: &logPosition{5, 3}}
	state := newTestState(0)
	backfiller := newTestBackfiller(source, cursors, 1000, 100)

	require.Error(t, backfiller.Run(ctx, state, handler.Handle))
	stored, err := cursors.GetByChainAndEvent(ctx, state.ChainKey, state.EventName)
	require.NoError(t, err)
	require.Equal(t, uint64(5), stored.Block)
	require.Equal(t, uint32(3), stored.LogIndex)

	handler.failAt = nil
	require.NoError(t, backfiller.Run(ctx, state, handler.Handle))
	require.Equal(t, []logPosition{{5, 0}, {5, 1}, {5, 2}, {5, 3}}, handler.positions())

	t.Log("Running sub-test \"Restart from the stored cursor\"")
	restarted := new(recordingHandler)
	state = monitor.NewStreamState(&entity.Cursor{
		ChainKey:  "base",
		EventName: bridgeabi.BridgeInitializedEventName,
		Block:     5,
		LogIndex:  2,
	})
	require.NoError(t, newTestBackfiller(source, new(fakeCursorsRepo), 1000, 100).Run(ctx, state, restarted.Handle))
	require.Equal(t, []logPosition{{5, 2}, {5, 3}}, restarted.positions())
	require.Equal(t, uint64(8), state.Cursor().Block)
	require.Equal(t, uint32(0), state.Cursor().LogIndex)
}
