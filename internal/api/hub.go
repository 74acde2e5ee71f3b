package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	idleTimeout   = 60 * time.Second
	keepalive     = idleTimeout * 9 / 10
	observerQueue = 64
	frameQueue    = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin checks happen in the cors wrapper
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans state frames out to every connected observer.
// Only Run touches the observer set.
type Hub struct {
	observers map[*Observer]struct{}
	frames    chan []byte
	join      chan *Observer
	leave     chan *Observer
	stopped   chan struct{}
}

// NewHub creates an idle hub; start it with Run.
func NewHub() *Hub {
	return &Hub{
		observers: make(map[*Observer]struct{}),
		frames:    make(chan []byte, frameQueue),
		join:      make(chan *Observer),
		leave:     make(chan *Observer),
		stopped:   make(chan struct{}),
	}
}

// Run owns the observer set until ctx ends, then closes every observer.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for o := range h.observers {
				h.evict(o)
			}
			return
		case o := <-h.join:
			h.observers[o] = struct{}{}
			slog.Debug("Observer joined", slog.String("observer", o.id), slog.Int("observers", len(h.observers)))
		case o := <-h.leave:
			if _, ok := h.observers[o]; ok {
				h.evict(o)
				slog.Debug("Observer left", slog.String("observer", o.id), slog.Int("observers", len(h.observers)))
			}
		case frame := <-h.frames:
			for o := range h.observers {
				if !o.queue(frame) {
					slog.Warn("Observer too slow, dropping it", slog.String("observer", o.id))
					h.evict(o)
				}
			}
		}
	}
}

func (h *Hub) evict(o *Observer) {
	delete(h.observers, o)
	close(o.out)
}

// Broadcast encodes v once and hands it to Run. A full frame queue drops v
// so the sequencer never waits on slow observers.
func (h *Hub) Broadcast(v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		slog.Error("Encoding observer frame failed", slog.Any("error", err))
		return
	}
	select {
	case h.frames <- frame:
	default:
		slog.Warn("Observer frame queue full, dropping frame")
	}
}

// attach registers o unless the hub has stopped.
func (h *Hub) attach(o *Observer) bool {
	select {
	case h.join <- o:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) detach(o *Observer) {
	select {
	case h.leave <- o:
	case <-h.stopped:
	}
}

// Observer is one websocket connection receiving state frames.
type Observer struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte
	id   string
}

func newObserver(h *Hub, conn *websocket.Conn) *Observer {
	return &Observer{
		hub:  h,
		conn: conn,
		out:  make(chan []byte, observerQueue),
		id:   conn.RemoteAddr().String(),
	}
}

// queue reports false when the observer's buffer is full.
func (o *Observer) queue(frame []byte) bool {
	select {
	case o.out <- frame:
		return true
	default:
		return false
	}
}

// start launches the reader and writer goroutines.
func (o *Observer) start() {
	go o.forward()
	go o.watch()
}

// watch discards inbound frames and detaches the observer once the peer goes away.
func (o *Observer) watch() {
	defer func() {
		o.hub.detach(o)
		o.conn.Close()
	}()

	extend := func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	}
	extend("")
	o.conn.SetPongHandler(extend)

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("Observer read failed", slog.String("observer", o.id), slog.Any("error", err))
			}
			return
		}
	}
}

// forward writes queued frames and keepalive pings until out is closed.
func (o *Observer) forward() {
	ping := time.NewTicker(keepalive)
	defer func() {
		ping.Stop()
		o.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-o.out:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				o.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := o.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
