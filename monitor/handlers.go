package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gobridge/bridge-points/contract"
	"github.com/gobridge/bridge-points/contract/bridgeabi"
	"github.com/gobridge/bridge-points/points"
)

type Correlator interface {
	OnInit(ctx context.Context, ev *points.InitEvent, chainKey string) error
	OnFinalize(ctx context.Context, ev *points.FinalizeEvent) error
}

// EventHandlers turns bridge logs of a single chain into correlator events.
type EventHandlers struct {
	chainKey   string
	chainID    uint64
	contract   *contract.BridgeContract
	timestamps BlockTimeResolver
	correlator Correlator
}

func NewEventHandlers(chainKey string, chainID uint64, c *contract.BridgeContract, timestamps BlockTimeResolver, correlator Correlator) *EventHandlers {
	return &EventHandlers{
		chainKey:   chainKey,
		chainID:    chainID,
		contract:   c,
		timestamps: timestamps,
		correlator: correlator,
	}
}

func (h *EventHandlers) HandleBridgeInitialized(ctx context.Context, log *types.Log) error {
	ev, err := h.contract.DecodeBridgeInitialized(log)
	if err != nil {
		return err
	}
	start, err := h.timestamps.BlockTime(ctx, log)
	if err != nil {
		return err
	}
	return h.correlator.OnInit(ctx, &points.InitEvent{
		RequestID: ev.RequestID.Hex(),
		Wallet:    strings.ToLower(ev.SrcInitiator.Hex()),
		FromChain: h.chainID,
		FromHash:  log.TxHash.Hex(),
		StartTime: start,
	}, h.chainKey)
}

func (h *EventHandlers) HandleBridgeFinalized(ctx context.Context, log *types.Log) error {
	ev, err := h.contract.DecodeBridgeFinalized(log)
	if err != nil {
		return err
	}
	end, err := h.timestamps.BlockTime(ctx, log)
	if err != nil {
		return err
	}
	return h.correlator.OnFinalize(ctx, &points.FinalizeEvent{
		RequestID: ev.RequestID.Hex(),
		ToChain:   h.chainID,
		ToHash:    log.TxHash.Hex(),
		EndTime:   end,
	})
}

// Handler returns the log handler of the given bridge event.
func (h *EventHandlers) Handler(eventName string) (LogHandler, error) {
	switch eventName {
	case bridgeabi.BridgeInitializedEventName:
		return h.HandleBridgeInitialized, nil
	case bridgeabi.BridgeFinalizedEventName:
		return h.HandleBridgeFinalized, nil
	default:
		return nil, fmt.Errorf("no handler for event %s: %w", eventName, contract.ErrUnexpectedEvent)
	}
}
