package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quotebook/internal/domain"
)

const sampleYAML = `
app:
  name: test-book
server:
  addr: ":8080"
feeds:
  base:
    url: "ws://127.0.0.1:9001/ws"
    format: binance_trade
  fx:
    url: "ws://127.0.0.1:9002/ws"
    format: trade_event
    subscribe: ["usdtidr@trade"]
  reconnect_delay_ms: 500
book:
  levels: 5
  spread_pct: "0.002"
  step_factor: 1.001
  min_qty: 10
  max_qty: 20
  smoothing: 0.5
timing:
  init_poll_ms: 50
  drift_interval_ms: 250
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.App.Name != "test-book" || cfg.Server.Addr != ":8080" {
		t.Errorf("Unexpected app/server section: %+v %+v", cfg.App, cfg.Server)
	}

	p := cfg.BookParams()
	if p.Levels != 5 || p.Spread != 0.002 || p.StepFactor != 1.001 {
		t.Errorf("Unexpected book params: %+v", p)
	}
	if p.Owner != domain.DefaultOwner {
		t.Errorf("Expected default owner to survive, got %q", p.Owner)
	}
	if cfg.DriftInterval() != 250*time.Millisecond || cfg.InitPollInterval() != 50*time.Millisecond {
		t.Errorf("Unexpected intervals: %v %v", cfg.DriftInterval(), cfg.InitPollInterval())
	}
	if cfg.ReconnectDelay() != 500*time.Millisecond {
		t.Errorf("Expected 500ms reconnect delay, got %v", cfg.ReconnectDelay())
	}

	// untouched sections keep their defaults
	if cfg.Trades.LogCapacity != 200 || cfg.Inventory.StartBase != 1000000 {
		t.Errorf("Defaults not applied: %+v %+v", cfg.Trades, cfg.Inventory)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("EXTERNAL_SYMBOL", "TRUMPUSDT")
	t.Setenv("BASE_COIN", "TRUMP")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Addr != ":4000" {
		t.Errorf("Expected :4000, got %s", cfg.Server.Addr)
	}
	if cfg.Feeds.Base.URL != "wss://stream.binance.com:9443/ws/trumpusdt@trade" {
		t.Errorf("Unexpected base feed url %s", cfg.Feeds.Base.URL)
	}
	if cfg.Pair.Base != "TRUMP" {
		t.Errorf("Expected TRUMP, got %s", cfg.Pair.Base)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		mutate func(*Config)
	}{
		{"bad feed url", "feeds.base.url", func(c *Config) { c.Feeds.Base.URL = "http://x" }},
		{"bad feed format", "feeds.fx.format", func(c *Config) { c.Feeds.FX.Format = "csv" }},
		{"zero levels", "book", func(c *Config) { c.Book.Levels = 0 }},
		{"step factor below one", "book", func(c *Config) { c.Book.StepFactor = 0.99 }},
		{"smoothing above one", "book.smoothing", func(c *Config) { c.Book.Smoothing = 1.5 }},
		{"zero drift interval", "timing", func(c *Config) { c.Timing.DriftIntervalMS = 0 }},
		{"zero reconnect delay", "feeds.reconnect_delay_ms", func(c *Config) { c.Feeds.ReconnectDelayMS = 0 }},
		{"zero log capacity", "trades.log_capacity", func(c *Config) { c.Trades.LogCapacity = 0 }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			var ce *domain.ConfigError
			if err := cfg.Validate(); !errors.As(err, &ce) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, ce.Field)
			}
		})
	}
}
