package matching

import (
	"math"
	"time"

	"github.com/google/uuid"

	"quotebook/internal/domain"
)

// Fill is one execution reported back to the taker.
type Fill struct {
	Price    float64     `json:"price"`
	Quantity float64     `json:"quantity"`
	Side     domain.Side `json:"side"`
	PnL      float64     `json:"pnl"`
}

// Result describes the outcome of one market order.
type Result struct {
	Trades    []Fill           `json:"trades"`
	Requested float64          `json:"requested"`
	Filled    float64          `json:"filled"`
	Shortfall float64          `json:"shortfall"`
	Partial   bool             `json:"partial"`
	Inventory domain.Inventory `json:"inventory"`

	// AvgPrice is the plain mean of this call's execution prices, not volume weighted.
	AvgPrice float64 `json:"avg_price"`

	// Records are the full trade entries of this call in execution order,
	// independent of how many the bounded trade log keeps.
	Records []domain.Trade `json:"-"`
}

// Engine executes market orders against the synthetic ladder with price-time priority.
type Engine struct {
	newID func() string
}

// NewEngine creates a matching engine.
func NewEngine() *Engine {
	return &Engine{newID: uuid.NewString}
}

// Execute fills req against ob at reference ref, books every fill in inv and log,
// and reports any shortfall when the side runs dry. A request that fails
// validation leaves all state untouched.
func (e *Engine) Execute(ob *domain.OrderBook, inv *domain.Inventory, log *domain.TradeLog,
	req domain.TradeRequest, ref float64, now time.Time) (Result, error) {

	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if ref <= 0 || math.IsNaN(ref) {
		return Result{}, domain.ErrReferenceUnavailable
	}

	res := Result{Requested: req.Quantity, Trades: make([]Fill, 0)}
	side := ob.SideFor(req.Side)
	remaining := req.Quantity
	var priceSum float64

	for remaining > domain.Epsilon && len(*side) > 0 {
		top := &(*side)[0]
		qty := math.Min(remaining, top.Quantity)
		price := top.Price

		top.Quantity -= qty
		remaining -= qty
		if top.Quantity <= domain.Epsilon {
			*side = (*side)[1:]
		}

		pnl := inv.ApplyFill(req.Side, qty, price, ref)
		res.Trades = append(res.Trades, Fill{Price: price, Quantity: qty, Side: req.Side, PnL: pnl})
		tr := domain.Trade{
			ID:        e.newID(),
			Timestamp: now,
			Price:     price,
			Quantity:  qty,
			Side:      req.Side,
			PnL:       pnl,
			Reference: ref,
		}
		log.Prepend(tr)
		res.Records = append(res.Records, tr)
		priceSum += price
	}

	if remaining < 0 {
		remaining = 0
	}
	res.Filled = req.Quantity - remaining
	if remaining > domain.Epsilon {
		res.Shortfall = remaining
		res.Partial = true
	}
	if n := len(res.Trades); n > 0 {
		res.AvgPrice = priceSum / float64(n)
	}
	res.Inventory = inv.Snapshot()
	return res, nil
}
