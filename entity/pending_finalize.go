package entity

import "time"

// PendingFinalize is a finalize event observed before its init event.
type PendingFinalize struct {
	RequestID    string    `json:"requestId"`
	ToChain      uint64    `json:"toChain"`
	ToHash       string    `json:"toHash"`
	EndTimestamp time.Time `json:"endTimestamp"`
}
