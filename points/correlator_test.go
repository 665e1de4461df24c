package points_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/points"
	"github.com/gobridge/bridge-points/repository"
)

const wallet = "0x00000000000000000000000000000000000000aa"

var startTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *repository.Repo {
	t.Helper()
	conn, err := db.ConnectToDBAndMigrate(&config.DBConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "points.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})
	return repository.NewRepo(conn)
}

type testEnv struct {
	repo       *repository.Repo
	pending    points.PendingStore
	correlator *points.Correlator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := newTestRepo(t)
	pending := points.NewMemoryPendingStore(time.Hour)
	return &testEnv{
		repo:    repo,
		pending: pending,
		correlator: points.NewCorrelator(logger, repo, pending, points.AwardRule{
			BasePoints:    35,
			PerChainBonus: map[string]int64{"arbitrum": 5},
		}),
	}
}

func initEvent(i int) *points.InitEvent {
	return &points.InitEvent{
		RequestID: fmt.Sprintf("0x%064x", i),
		Wallet:    wallet,
		FromChain: 8453,
		FromHash:  fmt.Sprintf("0x%064x", 1_000_000+i),
		StartTime: startTime.Add(time.Duration(i) * time.Minute),
	}
}

func finalizeEvent(i int, end time.Time) *points.FinalizeEvent {
	return &points.FinalizeEvent{
		RequestID: fmt.Sprintf("0x%064x", i),
		ToChain:   42161,
		ToHash:    fmt.Sprintf("0x%064x", 2_000_000+i),
		EndTime:   end,
	}
}

func walletPoints(t *testing.T, repo *repository.Repo) int64 {
	t.Helper()
	wp, err := repo.WalletPoints.GetByWallet(context.Background(), wallet)
	require.NoError(t, err)
	return wp.Points
}

func TestCorrelator_OnInitIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	ev := initEvent(1)
	require.NoError(t, env.correlator.OnInit(ctx, ev, "base"))
	require.NoError(t, env.correlator.OnInit(ctx, ev, "base"))

	transfers, err := env.repo.Transfers.FindByWallet(ctx, wallet, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, ev.RequestID, transfers[0].RequestID)
	require.Equal(t, int64(35), transfers[0].PointsAwarded)
	require.Equal(t, entity.TransferStatusPending, transfers[0].Status())
	require.Equal(t, int64(35), walletPoints(t, env.repo))
}

func TestCorrelator_DedupeBySourceHash(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	ev := initEvent(1)
	require.NoError(t, env.correlator.OnInit(ctx, ev, "base"))

	replay := *ev
	replay.RequestID = fmt.Sprintf("0x%064x", 99)
	require.NoError(t, env.correlator.OnInit(ctx, &replay, "base"))

	transfers, err := env.repo.Transfers.FindByWallet(ctx, wallet, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, ev.RequestID, transfers[0].RequestID)
	require.Equal(t, int64(35), walletPoints(t, env.repo))
}

func TestCorrelator_FinalizeBeforeInit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	ev := initEvent(1)
	end := ev.StartTime.Add(90 * time.Second)
	require.NoError(t, env.correlator.OnFinalize(ctx, finalizeEvent(1, end)))

	_, err := env.repo.Transfers.GetByRequestID(ctx, ev.RequestID)
	require.ErrorIs(t, err, db.ErrNotFound)
	n, err := env.pending.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, env.correlator.OnInit(ctx, ev, "arbitrum"))

	transfer, err := env.repo.Transfers.GetByRequestID(ctx, ev.RequestID)
	require.NoError(t, err)
	require.Equal(t, entity.TransferStatusCompleted, transfer.Status())
	require.Equal(t, uint64(42161), *transfer.ToChain)
	require.Equal(t, fmt.Sprintf("0x%064x", 2_000_001), *transfer.ToHash)
	require.Equal(t, int64(90_000), *transfer.DurationMs)
	require.True(t, end.Equal(*transfer.EndTimestamp))
	require.Equal(t, int64(40), transfer.PointsAwarded)
	require.Equal(t, int64(40), walletPoints(t, env.repo))

	_, ok, err := env.pending.Get(ctx, ev.RequestID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCorrelator_FinalizeAfterInit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	ev := initEvent(1)
	require.NoError(t, env.correlator.OnInit(ctx, ev, "base"))

	end := ev.StartTime.Add(-time.Minute)
	fin := finalizeEvent(1, end)
	require.NoError(t, env.correlator.OnFinalize(ctx, fin))
	require.NoError(t, env.correlator.OnFinalize(ctx, fin))

	transfer, err := env.repo.Transfers.GetByRequestID(ctx, ev.RequestID)
	require.NoError(t, err)
	require.Equal(t, entity.TransferStatusCompleted, transfer.Status())
	require.Equal(t, int64(0), *transfer.DurationMs)
	require.Equal(t, int64(35), walletPoints(t, env.repo))

	n, err := env.pending.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCorrelator_EndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	for i := 0; i < 30; i++ {
		ev := initEvent(i)
		if i%2 == 0 {
			require.NoError(t, env.correlator.OnFinalize(ctx, finalizeEvent(i, ev.StartTime.Add(time.Minute))))
			require.NoError(t, env.correlator.OnInit(ctx, ev, "base"))
		} else {
			require.NoError(t, env.correlator.OnInit(ctx, ev, "base"))
			require.NoError(t, env.correlator.OnFinalize(ctx, finalizeEvent(i, ev.StartTime.Add(time.Minute))))
		}
		// replays must not change anything
		require.NoError(t, env.correlator.OnInit(ctx, ev, "base"))
	}

	service := points.NewService(env.repo, []int64{0, 1000, 2500})
	view, err := service.GetUserView(ctx, "0x00000000000000000000000000000000000000AA", 100)
	require.NoError(t, err)
	require.Equal(t, wallet, view.Address)
	require.Equal(t, int64(1050), view.Points)
	require.Equal(t, 1, view.Level)
	require.Equal(t, points.Thresholds{Current: 1000, Next: 2500}, view.Thresholds)
	require.Equal(t, 3, view.ProgressPct)
	require.Len(t, view.Transfers, 30)
	require.NotNil(t, view.CreatedAt)
	for i, transfer := range view.Transfers {
		require.Equal(t, entity.TransferStatusCompleted, transfer.Status())
		require.Equal(t, int64(60_000), *transfer.DurationMs)
		require.Equal(t, fmt.Sprintf("0x%064x", 29-i), transfer.RequestID, "transfers are newest first")
	}
}

func TestService_GetUserViewUnknownWallet(t *testing.T) {
	t.Parallel()

	service := points.NewService(newTestRepo(t), nil)
	view, err := service.GetUserView(context.Background(), "0xdead", 10)
	require.NoError(t, err)
	require.Equal(t, &points.UserView{
		Address:    "0xdead",
		Thresholds: points.Thresholds{Current: 0, Next: 1000},
		Transfers:  []*entity.Transfer{},
	}, view)
}

func TestService_ListTransfers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		ev := initEvent(i)
		require.NoError(t, env.correlator.OnInit(ctx, ev, "base"))
		if i < 3 {
			require.NoError(t, env.correlator.OnFinalize(ctx, finalizeEvent(i, ev.StartTime.Add(time.Hour))))
		}
	}
	service := points.NewService(env.repo, nil)

	page, err := service.ListTransfers(ctx, &entity.TransferFilter{Wallet: wallet, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)
	require.Equal(t, fmt.Sprintf("0x%064x", 4), page.Items[0].RequestID)

	seen := len(page.Items)
	for page.NextCursor != nil {
		page, err = service.ListTransfers(ctx, &entity.TransferFilter{Wallet: wallet, Limit: 2, Cursor: *page.NextCursor})
		require.NoError(t, err)
		seen += len(page.Items)
	}
	require.Equal(t, 5, seen)

	page, err = service.ListTransfers(ctx, &entity.TransferFilter{Wallet: wallet, Limit: 10, Sort: entity.SortByEnd})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.Nil(t, page.NextCursor)

	toChain := uint64(1)
	page, err = service.ListTransfers(ctx, &entity.TransferFilter{Wallet: wallet, Limit: 10, ToChain: &toChain})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestCorrelator_ConcurrentEventsPerRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	const requests, replicas = 20, 3
	var wg sync.WaitGroup
	errs := make(chan error, requests*replicas*2)
	for i := 0; i < requests; i++ {
		ev := initEvent(i)
		fin := finalizeEvent(i, ev.StartTime.Add(time.Minute))
		for r := 0; r < replicas; r++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				errs <- env.correlator.OnInit(ctx, ev, "base")
			}()
			go func() {
				defer wg.Done()
				errs <- env.correlator.OnFinalize(ctx, fin)
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int64(requests*35), walletPoints(t, env.repo))
	transfers, err := env.repo.Transfers.FindByWallet(ctx, wallet, 100)
	require.NoError(t, err)
	require.Len(t, transfers, requests)
	for _, transfer := range transfers {
		require.Equal(t, entity.TransferStatusCompleted, transfer.Status(), transfer.RequestID)
		require.Equal(t, int64(60_000), *transfer.DurationMs)
	}
	n, err := env.pending.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
