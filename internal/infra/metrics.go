package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsProcessed atomic.Uint64
	quotesAccepted  atomic.Uint64
	quotesMalformed atomic.Uint64
	quotesDropped   atomic.Uint64
	driftTicks      atomic.Uint64
	matches         atomic.Uint64
	fills           atomic.Uint64
	rejected        atomic.Uint64
	reconnects      atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEvent records an event processing with latency.
func (m *Metrics) RecordEvent(latencyNs int64) {
	m.eventsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordQuote records a quote accepted by the price tracker.
func (m *Metrics) RecordQuote() {
	m.quotesAccepted.Add(1)
}

// RecordMalformed records a feed message that was discarded.
func (m *Metrics) RecordMalformed() {
	m.quotesMalformed.Add(1)
}

// RecordDropped records a quote dropped because the inbox was full.
func (m *Metrics) RecordDropped() {
	m.quotesDropped.Add(1)
}

// RecordDrift records a drift tick that moved the book.
func (m *Metrics) RecordDrift() {
	m.driftTicks.Add(1)
}

// RecordMatch records an executed market order and its number of fills.
func (m *Metrics) RecordMatch(fills int) {
	m.matches.Add(1)
	m.fills.Add(uint64(fills))
}

// RecordRejected records a market order rejected before execution.
func (m *Metrics) RecordRejected() {
	m.rejected.Add(1)
}

// RecordReconnect records a feed reconnection attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsProcessed   uint64    `json:"events_processed"`
	QuotesAccepted    uint64    `json:"quotes_accepted"`
	QuotesMalformed   uint64    `json:"quotes_malformed"`
	QuotesDropped     uint64    `json:"quotes_dropped"`
	DriftTicks        uint64    `json:"drift_ticks"`
	Matches           uint64    `json:"matches"`
	Fills             uint64    `json:"fills"`
	Rejected          uint64    `json:"rejected"`
	Reconnects        uint64    `json:"reconnects"`
	AvgLatencyNs      int64     `json:"avg_latency_ns"`
	ActiveConnections int32     `json:"active_connections"`
	Timestamp         time.Time `json:"ts"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsProcessed:   m.eventsProcessed.Load(),
		QuotesAccepted:    m.quotesAccepted.Load(),
		QuotesMalformed:   m.quotesMalformed.Load(),
		QuotesDropped:     m.quotesDropped.Load(),
		DriftTicks:        m.driftTicks.Load(),
		Matches:           m.matches.Load(),
		Fills:             m.fills.Load(),
		Rejected:          m.rejected.Load(),
		Reconnects:        m.reconnects.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsProcessed.Store(0)
	m.quotesAccepted.Store(0)
	m.quotesMalformed.Store(0)
	m.quotesDropped.Store(0)
	m.driftTicks.Store(0)
	m.matches.Store(0)
	m.fills.Store(0)
	m.rejected.Store(0)
	m.reconnects.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
}
