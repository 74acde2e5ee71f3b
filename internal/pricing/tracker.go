package pricing

import (
	"fmt"
	"math"
	"time"

	"quotebook/internal/domain"
)

// Tracker fuses the base/stablecoin and stablecoin/local quotes into one
// smoothed reference price.
//
// It is owned by the sequencer and is not safe for concurrent use.
type Tracker struct {
	alpha  float64
	quotes map[domain.Source]domain.Quote

	reference float64
	hasRef    bool
}

// NewTracker creates a tracker with smoothing factor alpha in (0, 1].
func NewTracker(alpha float64) *Tracker {
	return &Tracker{
		alpha: alpha,
		quotes: map[domain.Source]domain.Quote{
			domain.SourceBase: {Source: domain.SourceBase},
			domain.SourceFX:   {Source: domain.SourceFX},
		},
	}
}

// Update overwrites the quote of one source and recomputes the reference once
// both sources have reported. It returns the reference after the update.
func (t *Tracker) Update(src domain.Source, value float64, at time.Time) (float64, bool, error) {
	if !src.Valid() {
		return t.reference, t.hasRef, fmt.Errorf("%w: %q", domain.ErrUnknownSource, src)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return t.reference, t.hasRef, fmt.Errorf("%w: %s=%v", domain.ErrInvalidQuote, src, value)
	}

	t.quotes[src] = domain.Quote{Source: src, Value: value, LastUpdated: at}

	base, fx := t.quotes[domain.SourceBase], t.quotes[domain.SourceFX]
	if !base.IsSet() || !fx.IsSet() {
		return 0, false, nil
	}

	raw := base.Value * fx.Value
	if !t.hasRef {
		t.reference = raw
		t.hasRef = true
	} else {
		t.reference = t.reference*(1-t.alpha) + raw*t.alpha
	}
	return t.reference, true, nil
}

// Reference returns the smoothed reference price, or false while a source is missing.
func (t *Tracker) Reference() (float64, bool) {
	return t.reference, t.hasRef
}

// Quote returns the last quote stored for src.
func (t *Tracker) Quote(src domain.Source) domain.Quote {
	return t.quotes[src]
}

// Quotes returns both stored quotes.
func (t *Tracker) Quotes() []domain.Quote {
	return []domain.Quote{t.quotes[domain.SourceBase], t.quotes[domain.SourceFX]}
}
