// Package server assembles the HTTP API: routes, middleware chain, and the
// WebSocket hub attachment.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"stockfolio/internal/domain"
	"stockfolio/internal/server/handler"
	"stockfolio/internal/server/middleware"
	"stockfolio/internal/server/ws"
)

// apiRateLimit bounds requests per client IP per window. Generous enough for
// a polling dashboard, tight enough to shed abuse.
const (
	apiRateLimit  = 120
	apiRateWindow = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Stocks    *handler.StockHandler
	Portfolio *handler.PortfolioHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. limiter may be nil
// to disable API rate limiting (used in tests).
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Tracked stocks.
	mux.HandleFunc("GET /api/stocks", handlers.Stocks.ListStocks)
	mux.HandleFunc("GET /api/stocks/{symbol}", handlers.Stocks.GetStock)
	mux.HandleFunc("POST /api/stocks/{symbol}/refresh", handlers.Stocks.RefreshStock)
	mux.HandleFunc("DELETE /api/stocks/{symbol}", handlers.Stocks.DeleteStock)

	// Portfolio.
	mux.HandleFunc("GET /api/portfolio", handlers.Portfolio.ListPositions)
	mux.HandleFunc("POST /api/portfolio", handlers.Portfolio.Buy)
	mux.HandleFunc("POST /api/portfolio/{id}/sell", handlers.Portfolio.Sell)
	mux.HandleFunc("GET /api/portfolio/summary", handlers.Portfolio.Summary)

	// WebSocket quote feed.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	if limiter != nil {
		h = middleware.RateLimit(limiter, apiRateLimit, apiRateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
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
