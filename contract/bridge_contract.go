package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gobridge/bridge-points/contract/bridgeabi"
)

type BridgeContract struct {
	*Contract
}

func NewBridgeContract(addr common.Address) *BridgeContract {
	return &BridgeContract{NewContract(addr, bridgeabi.BridgeABI)}
}

type BridgeInitializedEvent struct {
	RequestID    common.Hash
	SrcChainID   uint64
	DestChainID  uint64
	DestSwapPath []byte
	SrcBridge    common.Address
	SrcNonce     *big.Int
	SrcInitiator common.Address
	DestTo       common.Address
	SrcToken     common.Address
	DestToken    common.Address
	SrcAmountIn  *big.Int
	GoUSDBurned  *big.Int
	MinAmountOut *big.Int
	RnkFee       *big.Int
	DestFee      *big.Int
}

type BridgeFinalizedEvent struct {
	RequestID common.Hash
	To        common.Address
	DestToken common.Address
	AmountOut *big.Int
}

func (c *BridgeContract) DecodeBridgeInitialized(log *types.Log) (*BridgeInitializedEvent, error) {
	data, err := c.decode(log, bridgeabi.BridgeInitialized)
	if err != nil {
		return nil, err
	}
	d := decoder{data: data}
	ev := &BridgeInitializedEvent{
		RequestID:    d.hash("requestId"),
		SrcChainID:   d.uint64("srcChainId"),
		DestChainID:  d.uint64("destChainId"),
		DestSwapPath: d.bytes("destSwapPath"),
		SrcBridge:    d.address("srcBridge"),
		SrcNonce:     d.bigInt("srcNonce"),
		SrcInitiator: d.address("srcInitiator"),
		DestTo:       d.address("destTo"),
		SrcToken:     d.address("srcToken"),
		DestToken:    d.address("destToken"),
		SrcAmountIn:  d.bigInt("srcAmountIn"),
		GoUSDBurned:  d.bigInt("goUSDBurned"),
		MinAmountOut: d.bigInt("minAmountOut"),
		RnkFee:       d.bigInt("rnkFee"),
		DestFee:      d.bigInt("destFee"),
	}
	if d.err != nil {
		return nil, fmt.Errorf("can't decode %s: %w", bridgeabi.BridgeInitializedEventName, d.err)
	}
	return ev, nil
}

func (c *BridgeContract) DecodeBridgeFinalized(log *types.Log) (*BridgeFinalizedEvent, error) {
	data, err := c.decode(log, bridgeabi.BridgeFinalized)
	if err != nil {
		return nil, err
	}
	d := decoder{data: data}
	ev := &BridgeFinalizedEvent{
		RequestID: d.hash("requestId"),
		To:        d.address("to"),
		DestToken: d.address("destToken"),
		AmountOut: d.bigInt("amountOut"),
	}
	if d.err != nil {
		return nil, fmt.Errorf("can't decode %s: %w", bridgeabi.BridgeFinalizedEventName, d.err)
	}
	return ev, nil
}

func (c *BridgeContract) decode(log *types.Log, expected string) (map[string]interface{}, error) {
	event, data, err := c.ParseLog(log)
	if err != nil {
		return nil, err
	}
	if event != expected {
		return nil, fmt.Errorf("log %s:%d is %q: %w", log.TxHash, log.Index, event, ErrUnexpectedEvent)
	}
	return data, nil
}

// decoder extracts typed fields from a decoded event, keeping the first error.
type decoder struct {
	data map[string]interface{}
	err  error
}

func (d *decoder) get(name string) interface{} {
	v, ok := d.data[name]
	if !ok && d.err == nil {
		d.err = fmt.Errorf("missing field %s", name)
	}
	return v
}

func (d *decoder) fail(name string, v interface{}) {
	if d.err == nil {
		d.err = fmt.Errorf("field %s has unexpected type %T", name, v)
	}
}

func (d *decoder) hash(name string) common.Hash {
	raw := d.get(name)
	switch v := raw.(type) {
	case [32]byte:
		return v
	case common.Hash:
		return v
	default:
		d.fail(name, raw)
		return common.Hash{}
	}
}

func (d *decoder) uint64(name string) uint64 {
	raw := d.get(name)
	v, ok := raw.(uint64)
	if !ok {
		d.fail(name, raw)
	}
	return v
}

func (d *decoder) bigInt(name string) *big.Int {
	raw := d.get(name)
	v, ok := raw.(*big.Int)
	if !ok {
		d.fail(name, raw)
	}
	return v
}

func (d *decoder) address(name string) common.Address {
	raw := d.get(name)
	v, ok := raw.(common.Address)
	if !ok {
		d.fail(name, raw)
	}
	return v
}

func (d *decoder) bytes(name string) []byte {
	raw := d.get(name)
	v, ok := raw.([]byte)
	if !ok {
		d.fail(name, raw)
	}
	return v
}

// EncodeBridgeInitialized is the inverse of DecodeBridgeInitialized.
func (c *BridgeContract) EncodeBridgeInitialized(ev *BridgeInitializedEvent) ([]common.Hash, []byte, error) {
	event := c.abi.Events[bridgeabi.BridgeInitializedEventName]
	data, err := event.Inputs.NonIndexed().Pack(
		ev.DestSwapPath, ev.SrcBridge, ev.SrcNonce, ev.SrcInitiator, ev.DestTo,
		ev.SrcToken, ev.DestToken, ev.SrcAmountIn, ev.GoUSDBurned, ev.MinAmountOut,
		ev.RnkFee, ev.DestFee,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("can't pack %s: %w", bridgeabi.BridgeInitializedEventName, err)
	}
	topics := []common.Hash{
		event.ID,
		ev.RequestID,
		common.BigToHash(new(big.Int).SetUint64(ev.SrcChainID)),
		common.BigToHash(new(big.Int).SetUint64(ev.DestChainID)),
	}
	return topics, data, nil
}

// EncodeBridgeFinalized is the inverse of DecodeBridgeFinalized.
func (c *BridgeContract) EncodeBridgeFinalized(ev *BridgeFinalizedEvent) ([]common.Hash, []byte, error) {
	event := c.abi.Events[bridgeabi.BridgeFinalizedEventName]
	data, err := event.Inputs.NonIndexed().Pack(ev.To, ev.DestToken, ev.AmountOut)
	if err != nil {
		return nil, nil, fmt.Errorf("can't pack %s: %w", bridgeabi.BridgeFinalizedEventName, err)
	}
	return []common.Hash{event.ID, ev.RequestID}, data, nil
}
