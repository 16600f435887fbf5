// Package server assembles the HTTP API: routing, middleware and lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonstake/pollhouse/internal/auth"
	"github.com/tonstake/pollhouse/internal/server/handler"
	"github.com/tonstake/pollhouse/internal/server/middleware"
	"github.com/tonstake/pollhouse/internal/server/ws"
)

// Config holds the HTTP server settings.
type Config struct {
	Port         int
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Market *handler.MarketHandler
	Stake  *handler.StakeHandler
	Tip    *handler.TipHandler
	Health *handler.HealthHandler
	Hub    *ws.Hub // optional
}

// Server wraps http.Server with route registration and graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the router and returns a Server ready to start.
func New(cfg Config, tokens *auth.TokenIssuer, h Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	authed := middleware.Auth(tokens, true)
	maybeAuthed := middleware.Auth(tokens, false)

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)

	mux.HandleFunc("POST /api/auth/telegram", h.Auth.Login)

	mux.Handle("GET /api/users/me", authed(http.HandlerFunc(h.User.Me)))
	mux.Handle("PUT /api/users/me/wallet", authed(http.HandlerFunc(h.User.UpdateWallet)))

	mux.HandleFunc("GET /api/markets", h.Market.List)
	mux.Handle("POST /api/markets", authed(http.HandlerFunc(h.Market.Create)))
	mux.Handle("GET /api/markets/{id}", maybeAuthed(http.HandlerFunc(h.Market.Get)))
	mux.Handle("POST /api/markets/{id}/close", authed(http.HandlerFunc(h.Market.Close)))
	mux.Handle("POST /api/markets/{id}/settle", authed(http.HandlerFunc(h.Market.Settle)))
	mux.HandleFunc("GET /api/stats", h.Market.Stats)

	mux.Handle("POST /api/markets/{id}/stakes", authed(http.HandlerFunc(h.Stake.Submit)))
	mux.HandleFunc("GET /api/markets/{id}/stakes", h.Stake.ListByMarket)
	mux.Handle("GET /api/stakes/me", authed(http.HandlerFunc(h.Stake.ListMine)))

	mux.Handle("POST /api/tips", authed(http.HandlerFunc(h.Tip.Record)))
	mux.HandleFunc("GET /api/tips/recent", h.Tip.Recent)
	mux.HandleFunc("GET /api/tips/leaderboard", h.Tip.Leaderboard)
	mux.HandleFunc("GET /api/tips/stats", h.Tip.Stats)

	if h.Hub != nil {
		mux.Handle("GET /ws", h.Hub)
	}

	var root http.Handler = mux
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      root,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server: listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
