// Package app wires configuration, stores, services and the HTTP server into
// a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tonstake/pollhouse/internal/auth"
	"github.com/tonstake/pollhouse/internal/config"
	"github.com/tonstake/pollhouse/internal/server"
	"github.com/tonstake/pollhouse/internal/server/handler"
	"github.com/tonstake/pollhouse/internal/server/ws"
	"github.com/tonstake/pollhouse/internal/service"
)

// Run builds the application from cfg and serves until SIGINT/SIGTERM.
func Run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration)

	authSvc := service.NewAuthService(d.users, tokens, cfg.Telegram.BotToken, cfg.Telegram.InitDataMaxAge.Duration, logger)
	marketSvc := service.NewMarketService(d.users, d.markets, d.stakes, d.cache, d.bus, logger)
	stakeSvc := service.NewStakeService(d.users, d.markets, d.stakes, d.locks, d.cache, d.bus, logger)
	tipSvc := service.NewTipService(d.users, d.tips, logger)

	hub := ws.NewHub(d.bus, []string{service.ChannelMarkets, service.ChannelStakes}, logger)

	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}, tokens, server.Handlers{
		Auth:   handler.NewAuthHandler(authSvc, logger),
		User:   handler.NewUserHandler(authSvc, logger),
		Market: handler.NewMarketHandler(marketSvc, logger),
		Stake:  handler.NewStakeHandler(stakeSvc, logger),
		Tip:    handler.NewTipHandler(tipSvc, logger),
		Health: handler.NewHealthHandler(logger),
		Hub:    hub,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("app: %w", err)
	}
	logger.Info("app: shut down cleanly")
	return nil
}
