package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quotebook/internal/api"
	"quotebook/internal/domain"
	"quotebook/internal/engine"
	"quotebook/internal/event"
	"quotebook/internal/infra"
	"quotebook/internal/infra/feed"
	"quotebook/internal/infra/storage"
	"quotebook/internal/snapshot"
)

// DefaultConfigPath is where the process looks for its yaml settings.
const DefaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the application startup and shutdown sequence
type Bootstrap struct {
	Config    *infra.Config
	Journal   *storage.Journal
	Sequencer *engine.Sequencer
	Hub       *api.Hub
	Server    *api.Server
	Workers   []domain.FeedWorker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, sets up logging and opens the trade journal.
// A missing config file falls back to the built-in defaults.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if errors.Is(err, domain.ErrConfigNotFound) {
		cfg = infra.DefaultConfig()
		err = infra.Finalize(cfg)
	}
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping quote book",
		slog.String("pair", cfg.Pair.Base+"/"+cfg.Pair.Quote),
		slog.String("config", configPath),
	)

	if cfg.Storage.Path != "" {
		j, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Journal = j
		slog.Info("Trade journal ready", slog.String("path", cfg.Storage.Path))
	}

	event.Warmup()
	return nil
}

// Start wires the sequencer, feed workers and API, and launches them.
// The components run until Shutdown.
func (b *Bootstrap) Start(parent context.Context) error {
	if b.Config == nil {
		return fmt.Errorf("bootstrap not initialized")
	}
	cfg := b.Config
	ctx, cancel := context.WithCancel(parent)
	b.cancel = cancel

	b.Hub = api.NewHub()
	b.goRun(func() { b.Hub.Run(ctx) })

	if b.Journal != nil {
		b.Journal.Start(ctx)
	}

	hooks := engine.Hooks{
		OnSnapshot: func(s snapshot.Snapshot) { b.Hub.Broadcast(s) },
	}
	if b.Journal != nil {
		hooks.OnTrades = b.Journal.Enqueue
	}
	b.Sequencer = engine.NewSequencer(engine.Options{
		Book:             cfg.BookParams(),
		Smoothing:        cfg.Book.Smoothing,
		InitPollInterval: cfg.InitPollInterval(),
		DriftInterval:    cfg.DriftInterval(),
		TradeLogCapacity: cfg.Trades.LogCapacity,
		SnapshotTrades:   cfg.Trades.SnapshotCount,
		StartBase:        cfg.Inventory.StartBase,
		StartQuote:       cfg.Inventory.StartQuote,
	}, hooks)
	b.goRun(func() { b.Sequencer.Run(ctx) })
	slog.Info("Sequencer started")

	policy := infra.NewReconnectPolicy(cfg.ReconnectDelay())
	feeds := []struct {
		source domain.Source
		cfg    infra.FeedConfig
	}{
		{domain.SourceBase, cfg.Feeds.Base},
		{domain.SourceFX, cfg.Feeds.FX},
	}
	for _, f := range feeds {
		w, err := feed.NewWorker(f.source, f.cfg, b.Sequencer.Inbox(), policy, nil)
		if err != nil {
			return err
		}
		if err := w.Connect(ctx); err != nil {
			slog.Error("Failed to start feed", slog.String("source", string(f.source)), slog.Any("error", err))
			continue
		}
		b.Workers = append(b.Workers, w)
	}

	b.Server = api.NewServer(b.Sequencer, b.Hub, api.Options{
		Addr:           cfg.Server.Addr,
		StaticDir:      cfg.Server.StaticDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	b.goRun(func() {
		if err := b.Server.Start(); err != nil {
			slog.Error("API server failed", slog.Any("error", err))
			cancel()
		}
	})
	return nil
}

func (b *Bootstrap) goRun(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// Shutdown stops feeds first, then the API, the sequencer and finally the journal,
// so no trade batch is enqueued after the journal closes.
func (b *Bootstrap) Shutdown(timeout time.Duration) {
	for _, w := range b.Workers {
		w.Disconnect()
	}

	if b.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := b.Server.Shutdown(ctx); err != nil {
			slog.Warn("API shutdown incomplete", slog.Any("error", err))
		}
		cancel()
	}

	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()

	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Error("Failed to close trade journal", slog.Any("error", err))
		}
	}
	slog.Info("Shutdown complete")
}
