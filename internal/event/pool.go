package event

import (
	"sync"
	"time"
)

// quoteEventPool recycles feed ticks, the highest-frequency inbox message.
//
// Usage:
//
//	ev := AcquireQuoteEvent()
//	ev.Source = domain.SourceBase
//	// ... send to inbox; the sequencer releases it after processing ...
var quoteEventPool = sync.Pool{
	New: func() interface{} {
		return &QuoteEvent{}
	},
}

// AcquireQuoteEvent gets a QuoteEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireQuoteEvent() *QuoteEvent {
	return quoteEventPool.Get().(*QuoteEvent)
}

// ReleaseQuoteEvent returns a QuoteEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseQuoteEvent(ev *QuoteEvent) {
	if ev == nil {
		return
	}
	ev.Ts = time.Time{}
	ev.Source = ""
	ev.Value = 0
	ev.Feed = ""

	quoteEventPool.Put(ev)
}

// Warmup pre-allocates quote events to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 256

	evs := make([]*QuoteEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireQuoteEvent())
	}
	for _, ev := range evs {
		ReleaseQuoteEvent(ev)
	}
}
