package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"quotebook/internal/book"
	"quotebook/internal/domain"
)

const (
	// DefaultUserAgent is a browser-like user agent string sent on feed handshakes
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	binanceTradeURL = "wss://stream.binance.com:9443/ws/%s@trade"
)

// Feed formats understood by the feed workers.
const (
	FormatBinanceTrade = "binance_trade" // {"p":"0.0123", ...}
	FormatTradeEvent   = "trade_event"   // {"e":"trade","p":"16250", ...}
)

// FeedConfig describes one external price stream.
type FeedConfig struct {
	URL       string   `yaml:"url"`
	Format    string   `yaml:"format"`
	Subscribe []string `yaml:"subscribe"` // streams sent in a SUBSCRIBE frame after connecting
}

// Config holds every setting of the quote book process.
// It is loaded once at startup; environment variables override sensitive or
// deployment-specific values.
type Config struct {
	App struct {
		Name string `yaml:"name"`
	} `yaml:"app"`

	Server struct {
		Addr           string   `yaml:"addr"`
		StaticDir      string   `yaml:"static_dir"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Pair struct {
		Base  string `yaml:"base"`
		Quote string `yaml:"quote"`
	} `yaml:"pair"`

	Feeds struct {
		Base             FeedConfig `yaml:"base"`
		FX               FeedConfig `yaml:"fx"`
		ReconnectDelayMS int        `yaml:"reconnect_delay_ms"`
	} `yaml:"feeds"`

	Book struct {
		Levels     int             `yaml:"levels"`
		SpreadPct  decimal.Decimal `yaml:"spread_pct"`
		StepFactor float64         `yaml:"step_factor"`
		MinQty     float64         `yaml:"min_qty"`
		MaxQty     float64         `yaml:"max_qty"`
		Smoothing  float64         `yaml:"smoothing"`
		Owner      string          `yaml:"owner"`
	} `yaml:"book"`

	Timing struct {
		InitPollMS      int `yaml:"init_poll_ms"`
		DriftIntervalMS int `yaml:"drift_interval_ms"`
	} `yaml:"timing"`

	Trades struct {
		LogCapacity   int `yaml:"log_capacity"`
		SnapshotCount int `yaml:"snapshot_count"`
	} `yaml:"trades"`

	Inventory struct {
		StartBase  float64 `yaml:"start_base"`
		StartQuote float64 `yaml:"start_quote"`
	} `yaml:"inventory"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`

	Storage struct {
		Path string `yaml:"path"` // empty disables the trade journal
	} `yaml:"storage"`
}

// DefaultConfig returns the settings the simulator runs with when nothing is configured.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "quotebook"

	cfg.Server.Addr = ":3000"
	cfg.Server.StaticDir = "public"
	cfg.Server.AllowedOrigins = []string{"*"}

	cfg.Pair.Base = "ANIME"
	cfg.Pair.Quote = "IDR"

	cfg.Feeds.Base = FeedConfig{URL: fmt.Sprintf(binanceTradeURL, "animeusdt"), Format: FormatBinanceTrade}
	cfg.Feeds.FX = FeedConfig{
		URL:       "wss://stream-toko.2meta.app/ws/usdtidr@trade",
		Format:    FormatTradeEvent,
		Subscribe: []string{"usdtidr@trade"},
	}
	cfg.Feeds.ReconnectDelayMS = 2000

	cfg.Book.Levels = 10
	cfg.Book.SpreadPct = decimal.RequireFromString("0.001")
	cfg.Book.StepFactor = 1.0008
	cfg.Book.MinQty = 20000
	cfg.Book.MaxQty = 400000
	cfg.Book.Smoothing = 0.2
	cfg.Book.Owner = domain.DefaultOwner

	cfg.Timing.InitPollMS = 200
	cfg.Timing.DriftIntervalMS = 1000

	cfg.Trades.LogCapacity = domain.DefaultTradeLogCapacity
	cfg.Trades.SnapshotCount = 50

	cfg.Inventory.StartBase = 1000000
	cfg.Inventory.StartQuote = 10000000

	cfg.Logging.Level = "info"
	cfg.Logging.File = "logs/app.log"
	return &cfg
}

// LoadConfig reads the yaml file on top of the defaults, applies .env and
// environment overrides, then validates the result.
// A missing file yields an error wrapping domain.ErrConfigNotFound.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize applies .env and environment overrides and validates cfg.
func Finalize(cfg *Config) error {
	// .env is optional
	_ = godotenv.Load()
	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Validate rejects settings that could produce non-positive or crossed prices.
func (c *Config) Validate() error {
	for name, f := range map[string]FeedConfig{"feeds.base": c.Feeds.Base, "feeds.fx": c.Feeds.FX} {
		if !strings.HasPrefix(f.URL, "ws://") && !strings.HasPrefix(f.URL, "wss://") {
			return &domain.ConfigError{Field: name + ".url", Err: fmt.Errorf("invalid websocket url %q", f.URL)}
		}
		if f.Format != FormatBinanceTrade && f.Format != FormatTradeEvent {
			return &domain.ConfigError{Field: name + ".format", Err: fmt.Errorf("unknown format %q", f.Format)}
		}
	}

	if err := c.BookParams().Validate(); err != nil {
		return &domain.ConfigError{Field: "book", Err: err}
	}
	if c.Book.Smoothing <= 0 || c.Book.Smoothing > 1 {
		return &domain.ConfigError{Field: "book.smoothing", Err: fmt.Errorf("must be in (0, 1], got %v", c.Book.Smoothing)}
	}
	if c.Timing.InitPollMS <= 0 || c.Timing.DriftIntervalMS <= 0 {
		return &domain.ConfigError{Field: "timing", Err: errors.New("intervals must be positive")}
	}
	if c.Feeds.ReconnectDelayMS <= 0 {
		return &domain.ConfigError{Field: "feeds.reconnect_delay_ms", Err: errors.New("must be positive")}
	}
	if c.Trades.LogCapacity <= 0 {
		return &domain.ConfigError{Field: "trades.log_capacity", Err: errors.New("must be positive")}
	}
	return nil
}

// BookParams converts the book section into synthesizer parameters.
func (c *Config) BookParams() book.Params {
	return book.Params{
		Levels:     c.Book.Levels,
		Spread:     c.Book.SpreadPct.InexactFloat64(),
		StepFactor: c.Book.StepFactor,
		MinQty:     c.Book.MinQty,
		MaxQty:     c.Book.MaxQty,
		Owner:      c.Book.Owner,
	}
}

// InitPollInterval returns the await-reference poll period.
func (c *Config) InitPollInterval() time.Duration {
	return time.Duration(c.Timing.InitPollMS) * time.Millisecond
}

// DriftInterval returns the drift tick period.
func (c *Config) DriftInterval() time.Duration {
	return time.Duration(c.Timing.DriftIntervalMS) * time.Millisecond
}

// ReconnectDelay returns the fixed feed reconnect delay.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Feeds.ReconnectDelayMS) * time.Millisecond
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if sym := os.Getenv("EXTERNAL_SYMBOL"); sym != "" {
		cfg.Feeds.Base.URL = fmt.Sprintf(binanceTradeURL, strings.ToLower(sym))
		cfg.Feeds.Base.Format = FormatBinanceTrade
	}
	if url := os.Getenv("MM_BASE_FEED_URL"); url != "" {
		cfg.Feeds.Base.URL = url
	}
	if url := os.Getenv("MM_FX_FEED_URL"); url != "" {
		cfg.Feeds.FX.URL = url
	}
	if coin := os.Getenv("BASE_COIN"); coin != "" {
		cfg.Pair.Base = coin
	}
	if level := os.Getenv("MM_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if path := os.Getenv("MM_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
}
