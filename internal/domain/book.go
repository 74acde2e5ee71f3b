package domain

import "sort"

const (
	// Epsilon is the quantity below which a level or a request counts as exhausted.
	Epsilon = 1e-9

	// MinDriftQuantity floors a level's quantity after drift jitter.
	MinDriftQuantity = 1e-6

	// DefaultOwner owns every synthetic level.
	DefaultOwner = "marketmaker"
)

// Level is one resting order on a ladder side.
type Level struct {
	ID       string  `json:"id"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"qty"`
	Owner    string  `json:"owner"`
}

// OrderBook holds both ladder sides.
// Bids are sorted by descending price, asks by ascending price.
type OrderBook struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// IsEmpty reports whether both sides are empty (book not built yet or fully drained).
func (b *OrderBook) IsEmpty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

// SortSides restores the price ordering of both sides.
func (b *OrderBook) SortSides() {
	sort.SliceStable(b.Bids, func(i, j int) bool { return b.Bids[i].Price > b.Bids[j].Price })
	sort.SliceStable(b.Asks, func(i, j int) bool { return b.Asks[i].Price < b.Asks[j].Price })
}

// BestBid returns the highest bid.
func (b *OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask.
func (b *OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// SideFor returns a pointer to the side a taker on the given side consumes:
// buyers lift asks, sellers hit bids.
func (b *OrderBook) SideFor(taker Side) *[]Level {
	if taker == SideBuy {
		return &b.Asks
	}
	return &b.Bids
}

// TotalQuantity sums the resting quantity of a side.
func TotalQuantity(levels []Level) float64 {
	var total float64
	for _, l := range levels {
		total += l.Quantity
	}
	return total
}

// Clone returns a deep copy safe to hand to observers.
func (b *OrderBook) Clone() OrderBook {
	out := OrderBook{
		Bids: make([]Level, len(b.Bids)),
		Asks: make([]Level, len(b.Asks)),
	}
	copy(out.Bids, b.Bids)
	copy(out.Asks, b.Asks)
	return out
}
