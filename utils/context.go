package utils

import (
	"context"
	"time"
)

// ContextSleep pauses a polling or retry loop for d. It reports false when
// ctx is done first, so callers can leave the loop without another attempt.
func ContextSleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
