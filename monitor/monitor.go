package monitor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/contract"
	"github.com/gobridge/bridge-points/contract/bridgeabi"
	"github.com/gobridge/bridge-points/ethclient"
	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/repository"
)

var BridgeEvents = []string{
	bridgeabi.BridgeInitializedEventName,
	bridgeabi.BridgeFinalizedEventName,
}

// ChainMonitor owns both bridge event streams of a single chain.
type ChainMonitor struct {
	cfg      *config.ChainConfig
	logger   logging.Logger
	client   ethclient.Client
	source   LogSource
	contract *contract.BridgeContract
	handlers *EventHandlers
	streams  map[string]*Stream
}

func NewChainMonitor(ctx context.Context, logger logging.Logger, repo *repository.Repo, cfg *config.Config, chainCfg *config.ChainConfig, client ethclient.Client, correlator Correlator) (*ChainMonitor, error) {
	logger = logger.WithField("chain", chainCfg.Key)
	bridge := contract.NewBridgeContract(chainCfg.BridgeAddress)
	timestamps := NewTimestampResolver(logger, chainCfg.ChainID, client, repo.BlockTimestamps, cfg.Backfill.TimestampRetryTimeout)
	m := &ChainMonitor{
		cfg:      chainCfg,
		logger:   logger,
		client:   client,
		source:   NewLogSource(client, chainCfg.SafeLogsRequest),
		contract: bridge,
		handlers: NewEventHandlers(chainCfg.Key, chainCfg.ChainID, bridge, timestamps, correlator),
		streams:  make(map[string]*Stream, len(BridgeEvents)),
	}
	events := bridge.AllEvents()
	for _, event := range BridgeEvents {
		if !events[event] {
			return nil, fmt.Errorf("contract does not have %s event in its ABI", event)
		}
		handle, err := m.handlers.Handler(event)
		if err != nil {
			return nil, err
		}
		cursor, err := LoadCursor(ctx, repo.Cursors, chainCfg.Key, event, chainCfg.DeploymentBlock)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"event":     event,
			"block":     cursor.Block,
			"log_index": cursor.LogIndex,
		}).Info("loaded stream cursor")
		m.streams[event] = &Stream{
			State:      NewStreamState(cursor),
			Backfiller: NewBackfiller(logger, m.source, bridge.Contract, repo.Cursors, chainCfg, cfg.Backfill, event),
			Handle:     handle,
			Interval:   chainCfg.TailInterval,
		}
	}
	return m, nil
}

func (m *ChainMonitor) Streams() []*Stream {
	streams := make([]*Stream, 0, len(BridgeEvents))
	for _, event := range BridgeEvents {
		streams = append(streams, m.streams[event])
	}
	return streams
}

func (m *ChainMonitor) Stream(event string) *Stream {
	return m.streams[event]
}

// ProcessBlockRange replays a single event over the inclusive block range
// through the regular handlers. The stream cursor is left untouched.
func (m *ChainMonitor) ProcessBlockRange(ctx context.Context, event string, fromBlock, toBlock uint64) error {
	s, ok := m.streams[event]
	if !ok {
		return fmt.Errorf("unknown event %s: %w", event, contract.ErrUnexpectedEvent)
	}
	for _, br := range SplitBlockRange(fromBlock, toBlock, m.cfg.MaxBlockRangeSize) {
		q, err := m.contract.FilterQuery(event, br.From, br.To)
		if err != nil {
			return fmt.Errorf("can't build logs query: %w", err)
		}
		logs, err := m.source.FilterLogs(ctx, q)
		if err != nil {
			return fmt.Errorf("can't fetch logs in range [%d, %d]: %w", br.From, br.To, err)
		}
		SortLogs(logs)
		m.logger.WithFields(logrus.Fields{
			"event":      event,
			"from_block": br.From,
			"to_block":   br.To,
			"count":      len(logs),
		}).Info("reprocessing logs in range")
		for i := range logs {
			if logs[i].Removed {
				continue
			}
			if err = s.Handle(ctx, &logs[i]); err != nil {
				return fmt.Errorf("can't handle log %s:%d: %w", logs[i].TxHash, logs[i].Index, err)
			}
		}
	}
	return nil
}

// Monitor runs the chain monitors of all enabled chains on one tailer.
type Monitor struct {
	logger logging.Logger
	chains map[string]*ChainMonitor
	tailer *Tailer
}

func NewMonitor(ctx context.Context, logger logging.Logger, repo *repository.Repo, cfg *config.Config, clients map[string]ethclient.Client, correlator Correlator) (*Monitor, error) {
	logger.Info("initializing bridge points monitor")
	m := &Monitor{
		logger: logger,
		chains: make(map[string]*ChainMonitor, len(clients)),
		tailer: NewTailer(logger),
	}
	for _, key := range cfg.ChainKeys() {
		client, ok := clients[key]
		if !ok {
			continue
		}
		chainMonitor, err := NewChainMonitor(ctx, logger, repo, cfg, cfg.Chains[key], client, correlator)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s chain monitor: %w", key, err)
		}
		m.chains[key] = chainMonitor
		streams := chainMonitor.Streams()
		for _, s := range streams {
			m.tailer.AddStream(s)
		}
		m.tailer.AddCatchup(key, cfg.Chains[key].CatchupInterval, streams...)
	}
	if len(m.chains) == 0 {
		return nil, fmt.Errorf("no chains to monitor")
	}
	return m, nil
}

func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("starting bridge points monitor")
	return m.tailer.Start(ctx)
}

func (m *Monitor) Stop() {
	m.tailer.Stop()
}

func (m *Monitor) Wait() {
	m.tailer.Wait()
}

// IsSynced reports whether every stream of every chain has caught up with
// its head at least once.
func (m *Monitor) IsSynced() bool {
	for _, chainMonitor := range m.chains {
		for _, s := range chainMonitor.Streams() {
			if !s.State.IsSynced() {
				return false
			}
		}
	}
	return true
}

func (m *Monitor) Chain(key string) (*ChainMonitor, bool) {
	chainMonitor, ok := m.chains[key]
	return chainMonitor, ok
}

func (m *Monitor) ProcessBlockRange(ctx context.Context, chainKey, event string, fromBlock, toBlock uint64) error {
	chainMonitor, ok := m.chains[chainKey]
	if !ok {
		return fmt.Errorf("chain %s is not monitored", chainKey)
	}
	return chainMonitor.ProcessBlockRange(ctx, event, fromBlock, toBlock)
}
