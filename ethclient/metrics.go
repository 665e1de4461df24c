package ethclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "rpc",
		Name:      "request_results_total",
		Help:      "JSON rpc request outcomes by chain, method and status.",
	}, []string{"chain_id", "query", "status"})

	RequestDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "indexer",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20},
	}, []string{"chain_id", "query"})
)

func ObserveError(chainID, query string, err error) {
	if err == nil {
		RequestResults.WithLabelValues(chainID, query, "ok").Inc()
		return
	}
	var rpcErr rpc.Error
	var httpErr rpc.HTTPError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		RequestResults.WithLabelValues(chainID, query, "timeout").Inc()
	case errors.As(err, &httpErr):
		RequestResults.WithLabelValues(chainID, query, fmt.Sprintf("http-%d", httpErr.StatusCode)).Inc()
	case errors.As(err, &rpcErr):
		RequestResults.WithLabelValues(chainID, query, fmt.Sprintf("error-%d", rpcErr.ErrorCode())).Inc()
	default:
		RequestResults.WithLabelValues(chainID, query, "error").Inc()
	}
}

func ObserveDuration(chainID, query string) func() time.Duration {
	return prometheus.NewTimer(RequestDurations.WithLabelValues(chainID, query)).ObserveDuration
}
