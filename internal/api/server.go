package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"quotebook/internal/domain"
	"quotebook/internal/engine"
	"quotebook/internal/infra"
	"quotebook/internal/matching"
	"quotebook/internal/snapshot"
)

const requestTimeout = 3 * time.Second

// Book is the part of the sequencer the API talks to.
type Book interface {
	Submit(ctx context.Context, req domain.TradeRequest) (matching.Result, error)
	Snapshot(ctx context.Context) (snapshot.Snapshot, error)
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	StaticDir      string
	AllowedOrigins []string
	Metrics        *infra.Metrics
}

// Server handles REST API and WebSocket connections
type Server struct {
	book    Book
	hub     *Hub
	router  *mux.Router
	opts    Options
	metrics *infra.Metrics
	http    *http.Server
}

// NewServer creates a new API server
func NewServer(book Book, hub *Hub, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = infra.GlobalMetrics
	}
	s := &Server{
		book:    book,
		hub:     hub,
		router:  mux.NewRouter(),
		opts:    opts,
		metrics: opts.Metrics,
	}
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/market", s.handleMarketOrder).Methods("POST")
	api.HandleFunc("/metrics", s.handleGetMetrics).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.opts.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir)))
	}
}

// Handler returns the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("API server starting", slog.String("addr", s.opts.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

type marketOrderRequest struct {
	Side     string           `json:"side"`
	Qty      *decimal.Decimal `json:"qty"`
	Quantity *decimal.Decimal `json:"quantity"`
}

func (r marketOrderRequest) toTradeRequest() domain.TradeRequest {
	qty := r.Qty
	if qty == nil {
		qty = r.Quantity
	}
	req := domain.TradeRequest{Side: domain.Side(r.Side)}
	if qty != nil {
		req.Quantity = qty.InexactFloat64()
	}
	return req
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap, err := s.book.Snapshot(ctx)
	if err != nil {
		respondError(w, http.StatusGatewayTimeout, "timeout", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMarketOrder(w http.ResponseWriter, r *http.Request) {
	var body marketOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := s.book.Submit(ctx, body.toTradeRequest())
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, res)
	case errors.Is(err, domain.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "invalid", err.Error())
	case engine.IsUnavailable(err):
		respondError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebSocket greets the observer with the current state, then streams every broadcast.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	o := newObserver(s.hub, conn)
	o.queue([]byte(`{"type":"hello"}`))
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	snap, err := s.book.Snapshot(ctx)
	cancel()
	if err == nil {
		if frame, err := json.Marshal(snap); err == nil {
			o.queue(frame)
		}
	}

	if !s.hub.attach(o) {
		conn.Close()
		return
	}
	o.start()
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, code int, msg, detail string) {
	respondJSON(w, code, errorResponse{Error: msg, Detail: detail})
}
