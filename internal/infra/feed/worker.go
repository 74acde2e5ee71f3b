package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quotebook/internal/domain"
	"quotebook/internal/event"
	"quotebook/internal/infra"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
)

// subscribeRequest is the SUBSCRIBE frame some venues require after connecting.
type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// Worker streams one external price feed into the sequencer inbox.
// It reconnects forever with a fixed delay.
type Worker struct {
	name    string
	source  domain.Source
	cfg     infra.FeedConfig
	parser  Parser
	inbox   chan<- event.Event
	policy  infra.ReconnectPolicy
	metrics *infra.Metrics

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a feed worker for source.
func NewWorker(source domain.Source, cfg infra.FeedConfig, inbox chan<- event.Event, policy infra.ReconnectPolicy, metrics *infra.Metrics) (*Worker, error) {
	parser, err := ParserFor(cfg.Format)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Worker{
		name:    string(source),
		source:  source,
		cfg:     cfg,
		parser:  parser,
		inbox:   inbox,
		policy:  policy,
		metrics: metrics,
	}, nil
}

// Connect starts the connection loop in the background.
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			attempt++
			slog.Warn("Feed connection failed",
				slog.String("feed", w.name),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", w.policy.Next(attempt)),
			)
		} else {
			attempt = 0
			w.readLoop(ctx)
			if ctx.Err() != nil {
				return
			}
			slog.Info("Feed closed, reconnecting",
				slog.String("feed", w.name),
				slog.Duration("retry_in", w.policy.Next(attempt)),
			)
		}

		if !w.policy.Wait(ctx, attempt) {
			return
		}
		w.metrics.RecordReconnect()
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := make(http.Header)
	header.Set("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, w.cfg.URL, header)
	if err != nil {
		return domain.NewNetworkError("dial", fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err))
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()
	w.metrics.IncrementConnections()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return domain.NewNetworkError("subscribe", err)
	}

	slog.Info("Feed connected", slog.String("feed", w.name), slog.String("url", w.cfg.URL))
	return nil
}

func (w *Worker) subscribe() error {
	if len(w.cfg.Subscribe) == 0 {
		return nil
	}
	b, err := json.Marshal(subscribeRequest{Method: "SUBSCRIBE", Params: w.cfg.Subscribe, ID: 1})
	if err != nil {
		return err
	}
	return w.threadSafeWrite(websocket.TextMessage, b)
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, w.closeConnection)
	defer stop()

	for {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("Feed read failed", slog.String("feed", w.name), slog.Any("error", err))
			}
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

func (w *Worker) handleMessage(msg []byte) {
	price, ok := w.parser.Parse(msg)
	if !ok {
		w.metrics.RecordMalformed()
		slog.Debug("Feed message ignored", slog.String("feed", w.name), slog.Int("bytes", len(msg)))
		return
	}

	ev := event.AcquireQuoteEvent()
	ev.Ts = time.Now()
	ev.Source = w.source
	ev.Value = price
	ev.Feed = w.name

	select {
	case w.inbox <- ev:
	default:
		event.ReleaseQuoteEvent(ev) // Release if dropped
		w.metrics.RecordDropped()
	}
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
		w.metrics.DecrementConnections()
	}
	w.connected = false
}

// IsConnected reports whether the websocket is currently open.
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Disconnect stops the worker and waits for its goroutine to exit.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
