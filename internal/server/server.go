// Package server exposes the dashboard API over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
	"github.com/alanyoungcy/marketlens/internal/server/handler"
	"github.com/alanyoungcy/marketlens/internal/server/middleware"
	"github.com/alanyoungcy/marketlens/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	AdminKey    string // if empty, the admin endpoints are open
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Catalog  *handler.CatalogHandler
	Screener *handler.ScreenerHandler
	Books    *handler.BookHandler
	Holders  *handler.HolderHandler
	History  *handler.HistoryHandler
	Wallets  *handler.WalletHandler
}

// Server is the HTTP + WebSocket API server for the dashboard.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (request IDs, logging, rate limiting, CORS) and
// attaches the WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Catalog endpoints.
	mux.HandleFunc("GET /api/events", handlers.Catalog.ListEvents)
	mux.HandleFunc("GET /api/markets", handlers.Catalog.ListMarkets)
	mux.HandleFunc("GET /api/categories", handlers.Catalog.ListCategories)
	mux.HandleFunc("GET /api/catalog/runs", handlers.Catalog.ListRuns)

	// Admin endpoints, gated by the admin key when one is configured.
	admin := middleware.RequireAdminKey(cfg.AdminKey)
	mux.Handle("POST /api/catalog/refresh", admin(http.HandlerFunc(handlers.Catalog.TriggerRefresh)))
	mux.Handle("POST /api/catalog/invalidate", admin(http.HandlerFunc(handlers.Catalog.Invalidate)))

	// Screener endpoint.
	mux.HandleFunc("GET /api/screener", handlers.Screener.Screen)

	// Per-token market data.
	mux.HandleFunc("GET /api/orderbook", handlers.Books.GetBook)
	mux.HandleFunc("GET /api/price-history", handlers.History.GetHistory)

	// Per-market holder leaderboards.
	mux.HandleFunc("GET /api/holders", handlers.Holders.GetHolders)

	// Wallet portfolio endpoints.
	mux.HandleFunc("GET /api/pnl", handlers.Wallets.GetPnL)
	mux.HandleFunc("GET /api/positions", handlers.Wallets.GetPositions)
	mux.HandleFunc("GET /api/value", handlers.Wallets.GetValue)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	if limiter != nil {
		h = middleware.RateLimit(limiter)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID()(h)
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
