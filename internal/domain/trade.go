package domain

import (
	"math"
	"time"
)

// Side is the taker side of a simulated market order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is exactly buy or sell. Case and whitespace variants are rejected.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeRequest is a simulated taker market order.
type TradeRequest struct {
	Side     Side    `json:"side"`
	Quantity float64 `json:"qty"`
}

// Validate rejects requests that must not reach the book.
func (r TradeRequest) Validate() error {
	if !r.Side.Valid() {
		return &ValidationError{Field: "side", Reason: "must be buy or sell"}
	}
	if math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0) || r.Quantity <= 0 {
		return &ValidationError{Field: "qty", Reason: "must be a positive number"}
	}
	return nil
}

// Trade is one fill against a ladder level.
type Trade struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"qty"`
	Side      Side      `json:"side"`
	PnL       float64   `json:"pnl"`
	Reference float64   `json:"ref_price"`
}

// DefaultTradeLogCapacity matches the number of fills kept in memory.
const DefaultTradeLogCapacity = 200

// TradeLog keeps the most recent fills, newest first.
type TradeLog struct {
	entries  []Trade
	capacity int
}

// NewTradeLog creates a log holding at most capacity trades.
func NewTradeLog(capacity int) *TradeLog {
	if capacity <= 0 {
		capacity = DefaultTradeLogCapacity
	}
	return &TradeLog{
		entries:  make([]Trade, 0, capacity),
		capacity: capacity,
	}
}

// Prepend adds t as the newest entry and evicts the oldest on overflow.
func (l *TradeLog) Prepend(t Trade) {
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, Trade{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = t
}

// Len returns the number of stored trades.
func (l *TradeLog) Len() int {
	return len(l.entries)
}

// Capacity returns the maximum number of stored trades.
func (l *TradeLog) Capacity() int {
	return l.capacity
}

// Recent returns a copy of up to n newest trades. n <= 0 returns all of them.
func (l *TradeLog) Recent(n int) []Trade {
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Trade, n)
	copy(out, l.entries[:n])
	return out
}
