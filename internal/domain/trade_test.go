package domain

import (
	"errors"
	"math"
	"testing"
)

func TestTradeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     TradeRequest
		wantErr bool
	}{
		{"buy ok", TradeRequest{Side: SideBuy, Quantity: 1}, false},
		{"sell ok", TradeRequest{Side: SideSell, Quantity: 0.5}, false},
		{"unknown side", TradeRequest{Side: "hold", Quantity: 1}, true},
		{"empty side", TradeRequest{Quantity: 1}, true},
		{"zero qty", TradeRequest{Side: SideBuy, Quantity: 0}, true},
		{"negative qty", TradeRequest{Side: SideSell, Quantity: -3}, true},
		{"NaN qty", TradeRequest{Side: SideBuy, Quantity: math.NaN()}, true},
		{"Inf qty", TradeRequest{Side: SideBuy, Quantity: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestSide_Valid(t *testing.T) {
	tests := []struct {
		side Side
		want bool
	}{
		{SideBuy, true},
		{SideSell, true},
		{"BUY", false},
		{"Sell", false},
		{" sell ", false},
		{"short", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.side.Valid(); got != tt.want {
			t.Errorf("Side(%q).Valid() = %v, want %v", tt.side, got, tt.want)
		}
	}
}

func TestTradeLog_NewestFirstAndEviction(t *testing.T) {
	log := NewTradeLog(3)

	for i := 1; i <= 5; i++ {
		log.Prepend(Trade{Price: float64(i)})
	}

	if log.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", log.Len())
	}

	got := log.Recent(0)
	want := []float64{5, 4, 3}
	for i, p := range want {
		if got[i].Price != p {
			t.Errorf("entry %d: expected price %v, got %v", i, p, got[i].Price)
		}
	}

	if n := len(log.Recent(2)); n != 2 {
		t.Errorf("Expected Recent(2) to return 2 entries, got %d", n)
	}
}

func TestTradeLog_RecentIsCopy(t *testing.T) {
	log := NewTradeLog(0)
	if log.Capacity() != DefaultTradeLogCapacity {
		t.Fatalf("Expected default capacity %d, got %d", DefaultTradeLogCapacity, log.Capacity())
	}

	log.Prepend(Trade{Price: 1})
	out := log.Recent(1)
	out[0].Price = 99

	if log.Recent(1)[0].Price != 1 {
		t.Error("Recent must not expose internal storage")
	}
}
