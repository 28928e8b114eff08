// Package server exposes the read-model API and the signed instruction
// endpoint over HTTP, plus a WebSocket feed of engine events.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/server/handler"
	"github.com/openpredict/settler/internal/server/middleware"
	"github.com/openpredict/settler/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimitPerMin int    // if zero, rate limiting is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health       *handler.HealthHandler
	Status       *handler.StatusHandler
	Instructions *handler.InstructionHandler
	Markets      *handler.MarketHandler
	Orders       *handler.OrderHandler
	Trades       *handler.TradeHandler
	Positions    *handler.PositionHandler
	Oracle       *handler.OracleHandler
	Events       *handler.EventHandler
}

// Server is the HTTP + WebSocket API server for the settlement engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Signed instruction submission.
	mux.HandleFunc("POST /api/instructions", handlers.Instructions.SubmitInstruction)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/orders", handlers.Orders.ListMarketOrders)
	mux.HandleFunc("GET /api/markets/{id}/orders/{orderID}", handlers.Orders.GetOrder)
	mux.HandleFunc("GET /api/markets/{id}/trades", handlers.Trades.ListMarketTrades)
	mux.HandleFunc("GET /api/markets/{id}/positions", handlers.Positions.ListMarketPositions)
	mux.HandleFunc("GET /api/markets/{id}/proposal", handlers.Oracle.GetProposal)
	mux.HandleFunc("GET /api/markets/{id}/events", handlers.Events.ListMarketEvents)

	// Owner-scoped endpoints.
	mux.HandleFunc("GET /api/orders", handlers.Orders.ListOrders)
	mux.HandleFunc("GET /api/trades", handlers.Trades.ListTrades)
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)

	// Oracle endpoints.
	mux.HandleFunc("GET /api/proposals", handlers.Oracle.ListProposals)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when a limiter is configured.
	if limiter != nil && cfg.RateLimitPerMin > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMin, time.Minute)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
