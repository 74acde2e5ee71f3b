package book

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"quotebook/internal/domain"
)

// Params shapes the synthetic ladder.
type Params struct {
	Levels     int     // levels per side
	Spread     float64 // total top-of-book spread as a fraction of the reference
	StepFactor float64 // geometric gap between adjacent levels, > 1
	MinQty     float64
	MaxQty     float64
	Owner      string
}

// Validate rejects parameters that would produce non-positive or crossed prices.
func (p Params) Validate() error {
	switch {
	case p.Levels < 1:
		return fmt.Errorf("levels must be >= 1, got %d", p.Levels)
	case p.Spread <= 0 || p.Spread >= 2:
		return fmt.Errorf("spread must be in (0, 2), got %v", p.Spread)
	case p.StepFactor <= 1:
		return fmt.Errorf("step factor must be > 1, got %v", p.StepFactor)
	case p.MinQty <= 0 || p.MaxQty < p.MinQty:
		return fmt.Errorf("quantity range [%v, %v] is invalid", p.MinQty, p.MaxQty)
	}
	return nil
}

// Synthesizer builds full ladders around a reference price.
// Prices depend only on (P, Params); quantities are drawn from rng.
type Synthesizer struct {
	params Params
	rng    *rand.Rand
	nextID uint64
}

// NewSynthesizer creates a synthesizer. A nil rng gets a time-seeded source.
func NewSynthesizer(p Params, rng *rand.Rand) *Synthesizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if p.Owner == "" {
		p.Owner = domain.DefaultOwner
	}
	return &Synthesizer{params: p, rng: rng}
}

// Rand exposes the random source so drift jitter shares one seeded stream.
func (s *Synthesizer) Rand() *rand.Rand {
	return s.rng
}

// Generate builds a fresh ladder of Levels per side around ref.
func (s *Synthesizer) Generate(ref float64) (domain.OrderBook, error) {
	if math.IsNaN(ref) || math.IsInf(ref, 0) || ref <= 0 {
		return domain.OrderBook{}, fmt.Errorf("%w: %v", domain.ErrReferenceUnavailable, ref)
	}

	p := s.params
	topBid := ref * (1 - p.Spread/2)
	topAsk := ref * (1 + p.Spread/2)

	ob := domain.OrderBook{
		Bids: make([]domain.Level, 0, p.Levels),
		Asks: make([]domain.Level, 0, p.Levels),
	}
	for i := 0; i < p.Levels; i++ {
		step := math.Pow(p.StepFactor, float64(i))
		ob.Bids = append(ob.Bids, s.level(topBid/step))
		ob.Asks = append(ob.Asks, s.level(topAsk*step))
	}

	ob.SortSides()
	return ob, nil
}

func (s *Synthesizer) level(price float64) domain.Level {
	s.nextID++
	return domain.Level{
		ID:       "mm-" + strconv.FormatUint(s.nextID, 10),
		Price:    price,
		Quantity: s.params.MinQty + s.rng.Float64()*(s.params.MaxQty-s.params.MinQty),
		Owner:    s.params.Owner,
	}
}
