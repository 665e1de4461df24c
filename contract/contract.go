package contract

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gobridge/bridge-points/contract/abi"
)

var ErrUnexpectedEvent = errors.New("unexpected event")

type Contract struct {
	address common.Address
	abi     *abi.ABI
}

func NewContract(addr common.Address, abi *abi.ABI) *Contract {
	return &Contract{addr, abi}
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) AllEvents() map[string]bool {
	return c.abi.AllEvents()
}

// FilterQuery builds an eth_getLogs query for a single event of the contract
// over the inclusive block range.
func (c *Contract) FilterQuery(eventName string, fromBlock, toBlock uint64) (ethereum.FilterQuery, error) {
	event, ok := c.abi.Events[eventName]
	if !ok {
		return ethereum.FilterQuery{}, fmt.Errorf("event %s is not in contract abi: %w", eventName, ErrUnexpectedEvent)
	}
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{event.ID}},
	}, nil
}

func (c *Contract) ParseLog(log *types.Log) (string, map[string]interface{}, error) {
	return c.abi.ParseLog(log)
}
