package infra

import (
	"context"
	"testing"
	"time"
)

func TestReconnectPolicy_FixedDelay(t *testing.T) {
	p := NewReconnectPolicy(2 * time.Second)

	for _, attempt := range []int{0, 1, 5, 100, 10000} {
		if d := p.Next(attempt); d != 2*time.Second {
			t.Errorf("Next(%d) = %v, want 2s", attempt, d)
		}
	}

	if NewReconnectPolicy(0).Delay != DefaultReconnectDelay {
		t.Error("Expected default delay for non-positive input")
	}
}

func TestReconnectPolicy_WaitHonoursContext(t *testing.T) {
	p := NewReconnectPolicy(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if p.Wait(ctx, 1) {
		t.Error("Wait should return false on a cancelled context")
	}

	if !NewReconnectPolicy(time.Millisecond).Wait(context.Background(), 1) {
		t.Error("Wait should return true after the delay")
	}
}
