package book

import (
	"math"

	"quotebook/internal/domain"
)

const (
	jitterLow  = 0.95
	jitterHigh = 1.05
)

// Drifter moves the live ladder part of the way toward a freshly synthesized one.
type Drifter struct {
	synth *Synthesizer
	alpha float64
}

// NewDrifter creates a drifter blending with smoothing factor alpha.
func NewDrifter(synth *Synthesizer, alpha float64) *Drifter {
	return &Drifter{synth: synth, alpha: alpha}
}

// Drift blends ob toward the ladder for ref, jitters quantities, and re-sorts both sides.
// Indices missing from the live side (consumed by matches) are skipped.
func (d *Drifter) Drift(ob *domain.OrderBook, ref float64) error {
	target, err := d.synth.Generate(ref)
	if err != nil {
		return err
	}

	d.blend(ob.Bids, target.Bids)
	d.blend(ob.Asks, target.Asks)

	// jitter can swap adjacent levels
	ob.SortSides()
	return nil
}

func (d *Drifter) blend(live, target []domain.Level) {
	rng := d.synth.Rand()
	n := min(len(live), len(target))
	for i := 0; i < n; i++ {
		live[i].Price = live[i].Price*(1-d.alpha) + target[i].Price*d.alpha
		u := jitterLow + rng.Float64()*(jitterHigh-jitterLow)
		live[i].Quantity = math.Max(domain.MinDriftQuantity, live[i].Quantity*u)
	}
}
