package app

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quotebook/internal/domain"
	"quotebook/internal/infra/storage"
	"quotebook/internal/snapshot"
)

// tradeFeed serves the same trade frame every few milliseconds.
func tradeFeed(t *testing.T, frame string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBootstrap_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: "127.0.0.1:0"
  static_dir: ""
feeds:
  base:
    url: "` + tradeFeed(t, `{"e":"trade","p":"5"}`) + `"
    format: binance_trade
  fx:
    url: "` + tradeFeed(t, `{"e":"trade","p":"15000"}`) + `"
    format: trade_event
  reconnect_delay_ms: 50
timing:
  init_poll_ms: 10
  drift_interval_ms: 20
logging:
  level: error
  file: ""
storage:
  path: "` + filepath.Join(dir, "trades.db") + `"
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	b := NewBootstrap()
	if err := b.Initialize(cfgPath); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	var snap snapshot.Snapshot
	for {
		var err error
		snap, err = b.Sequencer.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Phase == snapshot.PhaseInitialized {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Book never initialized from the feeds")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(snap.OrderBook.Bids) != 10 || math.Abs(snap.ReferencePrice-75000) > 1e-6 {
		t.Errorf("Unexpected initialized state: ref=%v bids=%d", snap.ReferencePrice, len(snap.OrderBook.Bids))
	}

	res, err := b.Sequencer.Submit(ctx, domain.TradeRequest{Side: domain.SideBuy, Quantity: 5})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Filled != 5 {
		t.Errorf("Expected fill of 5, got %v", res.Filled)
	}

	b.Shutdown(time.Second)

	j, err := storage.Open(filepath.Join(dir, "trades.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if n, err := j.Count(); err != nil || n < 1 {
		t.Errorf("Expected journaled trades after shutdown, got %d (%v)", n, err)
	}
}

func TestBootstrap_MissingConfigUsesDefaults(t *testing.T) {
	t.Setenv("MM_LOG_LEVEL", "error")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	b := NewBootstrap()
	if err := b.Initialize(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if b.Config.Book.Levels != 10 || b.Config.Pair.Quote != "IDR" {
		t.Errorf("Expected defaults, got %+v", b.Config.Book)
	}
	if b.Journal != nil {
		t.Error("Default config must not open a journal")
	}
}
