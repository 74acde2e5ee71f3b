package domain

// Inventory is the market maker's running position.
// Only the matching engine mutates it.
type Inventory struct {
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`

	// CumulativeBaseTraded is the signed net base flow of the market maker:
	// it falls when takers buy and rises when takers sell.
	CumulativeBaseTraded float64 `json:"cumulative_base_traded"`
	CumulativePnL        float64 `json:"cumulative_pnl"`
}

// NewInventory creates an inventory with the given starting balances.
func NewInventory(base, quote float64) *Inventory {
	return &Inventory{Base: base, Quote: quote}
}

// ApplyFill books one fill at price against reference ref and returns its PnL contribution.
// taker is the side of the simulated market order; the market maker takes the opposite side.
func (inv *Inventory) ApplyFill(taker Side, qty, price, ref float64) float64 {
	var pnl float64
	switch taker {
	case SideBuy: // market maker sells base
		inv.Base -= qty
		inv.Quote += qty * price
		inv.CumulativeBaseTraded -= qty
		pnl = (price - ref) * qty
	case SideSell: // market maker buys base
		inv.Base += qty
		inv.Quote -= qty * price
		inv.CumulativeBaseTraded += qty
		pnl = (ref - price) * qty
	}
	inv.CumulativePnL += pnl
	return pnl
}

// Snapshot returns a copy of the inventory.
func (inv *Inventory) Snapshot() Inventory {
	return *inv
}
