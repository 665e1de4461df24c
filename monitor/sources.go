package monitor

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gobridge/bridge-points/ethclient"
)

// LogSource is the part of a chain client the backfill engine depends on.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	ClassifyError(err error) ethclient.ErrorKind
}

type BlockSource interface {
	HeaderByNumber(ctx context.Context, n uint64) (*types.Header, error)
	HeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error)
	TransactionReceiptByHash(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type safeLogSource struct {
	ethclient.Client
}

func (s safeLogSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return s.Client.FilterLogsSafe(ctx, q)
}

// NewLogSource adapts a chain client. With safe set, every logs request is
// batched with eth_blockNumber to reject answers from lagging nodes.
func NewLogSource(client ethclient.Client, safe bool) LogSource {
	if safe {
		return safeLogSource{client}
	}
	return client
}
