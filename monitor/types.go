package monitor

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/core/types"
)

type BlocksRange struct {
	From uint64
	To   uint64
}

// LogHandler applies a single log. Returned errors stop the
// backfill before the stream cursor passes the log.
type LogHandler func(ctx context.Context, log *types.Log) error

func SplitBlockRange(fromBlock uint64, toBlock uint64, maxSize uint64) []*BlocksRange {
	batches := make([]*BlocksRange, 0, 10)
	if maxSize == 0 {
		return batches
	}
	for fromBlock <= toBlock {
		batchToBlock := fromBlock + maxSize - 1
		if batchToBlock > toBlock {
			batchToBlock = toBlock
		}
		batches = append(batches, &BlocksRange{
			From: fromBlock,
			To:   batchToBlock,
		})
		fromBlock += maxSize
	}
	return batches
}

// SortLogs orders logs by (block number, log index).
func SortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		a, b := logs[i], logs[j]
		return a.BlockNumber < b.BlockNumber || (a.BlockNumber == b.BlockNumber && a.Index < b.Index)
	})
}
