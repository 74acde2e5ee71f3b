package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"quotebook/internal/book"
	"quotebook/internal/domain"
	"quotebook/internal/event"
	"quotebook/internal/infra"
	"quotebook/internal/matching"
	"quotebook/internal/pricing"
	"quotebook/internal/snapshot"
)

// Options configures a Sequencer.
type Options struct {
	Book             book.Params
	Smoothing        float64
	InitPollInterval time.Duration
	DriftInterval    time.Duration
	TradeLogCapacity int
	SnapshotTrades   int
	StartBase        float64
	StartQuote       float64
	InboxSize        int
	DumpPath         string

	Rand    *rand.Rand       // nil means time-seeded
	Clock   func() time.Time // nil means time.Now
	Metrics *infra.Metrics   // nil means infra.GlobalMetrics
}

// Hooks are invoked on the sequencer goroutine after a transition has fully applied.
// They must not block.
type Hooks struct {
	OnSnapshot func(snapshot.Snapshot)
	OnTrades   func([]domain.Trade)
}

// Sequencer is the single-threaded owner of the quote book.
// Feed ticks, timer ticks and match requests are handled one at a time, in order,
// so the book, inventory and trade log need no locking.
type Sequencer struct {
	inbox chan event.Event

	tracker *pricing.Tracker
	synth   *book.Synthesizer
	drifter *book.Drifter
	matcher *matching.Engine

	book      domain.OrderBook
	inventory *domain.Inventory
	trades    *domain.TradeLog
	phase     snapshot.Phase
	avgPrice  float64
	seq       uint64

	opts    Options
	hooks   Hooks
	now     func() time.Time
	metrics *infra.Metrics
}

// NewSequencer creates a sequencer in the AwaitingReference phase.
func NewSequencer(opts Options, hooks Hooks) *Sequencer {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}
	if opts.SnapshotTrades <= 0 {
		opts.SnapshotTrades = snapshot.DefaultRecentTrades
	}
	if opts.InitPollInterval <= 0 {
		opts.InitPollInterval = 200 * time.Millisecond
	}
	if opts.DriftInterval <= 0 {
		opts.DriftInterval = time.Second
	}
	if opts.DumpPath == "" {
		opts.DumpPath = "panic_dump.json"
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}

	synth := book.NewSynthesizer(opts.Book, opts.Rand)
	return &Sequencer{
		inbox:     make(chan event.Event, opts.InboxSize),
		tracker:   pricing.NewTracker(opts.Smoothing),
		synth:     synth,
		drifter:   book.NewDrifter(synth, opts.Smoothing),
		matcher:   matching.NewEngine(),
		inventory: domain.NewInventory(opts.StartBase, opts.StartQuote),
		trades:    domain.NewTradeLog(opts.TradeLogCapacity),
		phase:     snapshot.PhaseAwaitingReference,
		opts:      opts,
		hooks:     hooks,
		now:       now,
		metrics:   metrics,
	}
}

// Inbox returns the event channel. Feed workers send quote events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
// The init poll ticker stops for good once the book is built; the drift ticker
// keeps running but does nothing until then.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (single timeline)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.opts.DumpPath)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	initTicker := time.NewTicker(s.opts.InitPollInterval)
	defer initTicker.Stop()
	initC := initTicker.C

	driftTicker := time.NewTicker(s.opts.DriftInterval)
	defer driftTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case <-initC:
			if s.pollInit() {
				initTicker.Stop()
				initC = nil
			}
		case <-driftTicker.C:
			s.driftTick()
		case ev := <-s.inbox:
			s.processEvent(ev)
		}
	}
}

func (s *Sequencer) processEvent(ev event.Event) {
	start := time.Now()

	switch e := ev.(type) {
	case *event.QuoteEvent:
		s.handleQuote(e)
		event.ReleaseQuoteEvent(e)
	case *event.MatchCommand:
		s.handleMatch(e)
	case *event.SnapshotQuery:
		e.Resp <- s.buildSnapshot()
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	s.metrics.RecordEvent(time.Since(start).Nanoseconds())
}

func (s *Sequencer) handleQuote(e *event.QuoteEvent) {
	ts := e.Ts
	if ts.IsZero() {
		ts = s.now()
	}
	if _, _, err := s.tracker.Update(e.Source, e.Value, ts); err != nil {
		s.metrics.RecordMalformed()
		slog.Debug("Quote discarded", slog.String("feed", e.Feed), slog.Any("error", err))
		return
	}
	s.metrics.RecordQuote()
}

// pollInit builds the book on the first poll that sees a reference price.
// It reports whether the sequencer is now Initialized.
func (s *Sequencer) pollInit() bool {
	if s.phase == snapshot.PhaseInitialized {
		return true
	}
	ref, ok := s.tracker.Reference()
	if !ok {
		return false
	}

	ob, err := s.synth.Generate(ref)
	if err != nil {
		slog.Warn("Initial book synthesis deferred", slog.Any("error", err))
		return false
	}
	s.book = ob
	s.phase = snapshot.PhaseInitialized
	slog.Info("Order book initialized",
		slog.Float64("reference", ref),
		slog.Int("levels", s.opts.Book.Levels),
	)
	s.broadcast()
	return true
}

func (s *Sequencer) driftTick() {
	if s.phase != snapshot.PhaseInitialized {
		return
	}
	ref, ok := s.tracker.Reference()
	if !ok {
		return
	}
	if err := s.drifter.Drift(&s.book, ref); err != nil {
		slog.Warn("Drift skipped", slog.Any("error", err))
		return
	}
	s.metrics.RecordDrift()
	s.broadcast()
}

func (s *Sequencer) handleMatch(cmd *event.MatchCommand) {
	reply := event.MatchReply{}
	defer func() { cmd.Resp <- reply }()

	if err := cmd.Request.Validate(); err != nil {
		s.metrics.RecordRejected()
		reply.Err = err
		return
	}

	ref, ok := s.tracker.Reference()
	if !ok || s.phase != snapshot.PhaseInitialized {
		reply.Err = domain.ErrReferenceUnavailable
		return
	}

	res, err := s.matcher.Execute(&s.book, s.inventory, s.trades, cmd.Request, ref, s.now())
	if err != nil {
		s.metrics.RecordRejected()
		reply.Err = err
		return
	}
	s.avgPrice = res.AvgPrice
	s.metrics.RecordMatch(len(res.Trades))

	slog.Info("Market order executed",
		slog.String("side", string(cmd.Request.Side)),
		slog.Float64("requested", res.Requested),
		slog.Float64("filled", res.Filled),
		slog.Bool("partial", res.Partial),
	)

	if s.hooks.OnTrades != nil && len(res.Records) > 0 {
		s.hooks.OnTrades(res.Records)
	}
	reply.Result = res
	reply.Snapshot = s.broadcast()
}

func (s *Sequencer) buildSnapshot() snapshot.Snapshot {
	ref, ok := s.tracker.Reference()
	return snapshot.Build(snapshot.Input{
		Seq:          s.seq,
		Phase:        s.phase,
		Now:          s.now(),
		Book:         &s.book,
		Inventory:    s.inventory,
		Reference:    ref,
		HasReference: ok,
		Quotes:       s.tracker.Quotes(),
		Trades:       s.trades,
		AvgPrice:     s.avgPrice,
		TradeLimit:   s.opts.SnapshotTrades,
	})
}

// broadcast publishes a snapshot after all mutations of the current transition.
func (s *Sequencer) broadcast() snapshot.Snapshot {
	s.seq++
	snap := s.buildSnapshot()
	if s.hooks.OnSnapshot != nil {
		s.hooks.OnSnapshot(snap)
	}
	return snap
}

// Submit executes req on the sequencer goroutine and waits for the result.
// Safe for concurrent use.
func (s *Sequencer) Submit(ctx context.Context, req domain.TradeRequest) (matching.Result, error) {
	cmd := &event.MatchCommand{
		BaseEvent: event.BaseEvent{Ts: s.now()},
		Request:   req,
		Resp:      make(chan event.MatchReply, 1),
	}
	select {
	case s.inbox <- cmd:
	case <-ctx.Done():
		return matching.Result{}, ctx.Err()
	}

	select {
	case reply := <-cmd.Resp:
		return reply.Result, reply.Err
	case <-ctx.Done():
		return matching.Result{}, ctx.Err()
	}
}

// Snapshot returns the current state as seen by the sequencer goroutine.
// Safe for concurrent use.
func (s *Sequencer) Snapshot(ctx context.Context) (snapshot.Snapshot, error) {
	q := &event.SnapshotQuery{
		BaseEvent: event.BaseEvent{Ts: s.now()},
		Resp:      make(chan snapshot.Snapshot, 1),
	}
	select {
	case s.inbox <- q:
	case <-ctx.Done():
		return snapshot.Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-q.Resp:
		return snap, nil
	case <-ctx.Done():
		return snapshot.Snapshot{}, ctx.Err()
	}
}

// IsUnavailable reports whether err means the book is still waiting for a reference price.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrReferenceUnavailable)
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	b, err := json.MarshalIndent(s.buildSnapshot(), "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
