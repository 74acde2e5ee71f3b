package event

import (
	"time"

	"quotebook/internal/domain"
	"quotebook/internal/matching"
	"quotebook/internal/snapshot"
)

// Type tags an inbox message.
type Type int

const (
	TypeQuote Type = iota + 1
	TypeMatch
	TypeSnapshot
)

// String returns the string representation of Type
func (t Type) String() string {
	switch t {
	case TypeQuote:
		return "QUOTE"
	case TypeMatch:
		return "MATCH"
	case TypeSnapshot:
		return "SNAPSHOT"
	default:
		return "UNKNOWN"
	}
}

// Event is anything the sequencer accepts on its inbox.
type Event interface {
	GetType() Type
	GetTs() time.Time
}

// BaseEvent carries the receive time shared by all events.
type BaseEvent struct {
	Ts time.Time
}

func (b BaseEvent) GetTs() time.Time { return b.Ts }

// QuoteEvent is one parsed feed tick.
type QuoteEvent struct {
	BaseEvent
	Source domain.Source
	Value  float64
	Feed   string
}

func (*QuoteEvent) GetType() Type { return TypeQuote }

// MatchReply answers a MatchCommand.
type MatchReply struct {
	Result   matching.Result
	Snapshot snapshot.Snapshot
	Err      error
}

// MatchCommand asks the sequencer to execute a market order.
// Resp must be buffered so the sequencer never blocks on a departed caller.
type MatchCommand struct {
	BaseEvent
	Request domain.TradeRequest
	Resp    chan MatchReply
}

func (*MatchCommand) GetType() Type { return TypeMatch }

// SnapshotQuery asks the sequencer for the current snapshot.
type SnapshotQuery struct {
	BaseEvent
	Resp chan snapshot.Snapshot
}

func (*SnapshotQuery) GetType() Type { return TypeSnapshot }
