package infra

import (
	"context"
	"time"
)

// DefaultReconnectDelay is the pause between feed reconnection attempts.
const DefaultReconnectDelay = 2 * time.Second

// ReconnectPolicy waits a fixed delay between attempts and never gives up.
// There is no backoff and no circuit breaker.
type ReconnectPolicy struct {
	Delay time.Duration
}

// NewReconnectPolicy returns a fixed-delay policy, falling back to DefaultReconnectDelay.
func NewReconnectPolicy(delay time.Duration) ReconnectPolicy {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return ReconnectPolicy{Delay: delay}
}

// Next returns the delay before attempt n. It is the same for every attempt.
func (p ReconnectPolicy) Next(attempt int) time.Duration {
	return p.Delay
}

// Wait sleeps for the delay before attempt n. It returns false if ctx ends first.
func (p ReconnectPolicy) Wait(ctx context.Context, attempt int) bool {
	t := time.NewTimer(p.Next(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
