package snapshot

import (
	"time"

	"quotebook/internal/domain"
)

// DefaultRecentTrades is how many trades a snapshot carries.
const DefaultRecentTrades = 50

// Phase is the lifecycle state of the quote book.
type Phase string

const (
	PhaseAwaitingReference Phase = "awaiting_reference"
	PhaseInitialized       Phase = "initialized"
)

// Snapshot is an immutable, serializable view of the market maker's state.
type Snapshot struct {
	Type      string    `json:"type"`
	Seq       uint64    `json:"seq"`
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"ts"`

	Inventory      domain.Inventory `json:"inventory"`
	OrderBook      domain.OrderBook `json:"orderbook"`
	ReferencePrice float64          `json:"mid_price"`
	HasReference   bool             `json:"has_reference"`
	Quotes         []domain.Quote   `json:"quotes"`
	RecentTrades   []domain.Trade   `json:"tx_log"`

	CumulativePnL           float64 `json:"total_unrealized_pnl"`
	CumulativeBaseTraded    float64 `json:"total_base"`
	ApproxAverageTradePrice float64 `json:"avg_price"`

	BestBid float64 `json:"best_bid"`
	BestAsk float64 `json:"best_ask"`
	Spread  float64 `json:"spread"`
}

// Input gathers the state a snapshot is built from.
type Input struct {
	Seq          uint64
	Phase        Phase
	Now          time.Time
	Book         *domain.OrderBook
	Inventory    *domain.Inventory
	Reference    float64
	HasReference bool
	Quotes       []domain.Quote
	Trades       *domain.TradeLog
	AvgPrice     float64
	TradeLimit   int
}

// Build copies the current state into a Snapshot. It never mutates its input.
func Build(in Input) Snapshot {
	limit := in.TradeLimit
	if limit <= 0 {
		limit = DefaultRecentTrades
	}

	s := Snapshot{
		Type:                    "state",
		Seq:                     in.Seq,
		Phase:                   in.Phase,
		Timestamp:               in.Now,
		ReferencePrice:          in.Reference,
		HasReference:            in.HasReference,
		ApproxAverageTradePrice: in.AvgPrice,
		Quotes:                  append([]domain.Quote(nil), in.Quotes...),
		RecentTrades:            []domain.Trade{},
		OrderBook:               domain.OrderBook{Bids: []domain.Level{}, Asks: []domain.Level{}},
	}

	if in.Book != nil {
		s.OrderBook = in.Book.Clone()
		bid, okBid := in.Book.BestBid()
		ask, okAsk := in.Book.BestAsk()
		if okBid {
			s.BestBid = bid.Price
		}
		if okAsk {
			s.BestAsk = ask.Price
		}
		if okBid && okAsk {
			s.Spread = ask.Price - bid.Price
		}
	}
	if in.Inventory != nil {
		s.Inventory = in.Inventory.Snapshot()
		s.CumulativePnL = s.Inventory.CumulativePnL
		s.CumulativeBaseTraded = s.Inventory.CumulativeBaseTraded
	}
	if in.Trades != nil {
		s.RecentTrades = in.Trades.Recent(limit)
	}
	return s
}
