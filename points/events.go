package points

import "time"

// InitEvent is the source side of a transfer, taken from BridgeInitialized.
type InitEvent struct {
	RequestID string
	Wallet    string
	FromChain uint64
	FromHash  string
	StartTime time.Time
}

// FinalizeEvent is the destination side of a transfer, taken from BridgeFinalized.
type FinalizeEvent struct {
	RequestID string
	ToChain   uint64
	ToHash    string
	EndTime   time.Time
}
