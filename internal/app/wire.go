package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonstake/pollhouse/internal/cache/redis"
	"github.com/tonstake/pollhouse/internal/config"
	"github.com/tonstake/pollhouse/internal/domain"
	"github.com/tonstake/pollhouse/internal/store/memory"
	"github.com/tonstake/pollhouse/internal/store/postgres"
)

// deps holds the wired infrastructure the application runs on.
type deps struct {
	users   domain.UserStore
	markets domain.MarketStore
	stakes  domain.StakeStore
	tips    domain.TipStore

	cache domain.MarketCache // nil without Redis
	locks domain.LockManager // nil without Redis
	bus   domain.SignalBus

	closers []func()
}

// close releases the wired resources in reverse order.
func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDeps connects PostgreSQL and, when enabled, Redis. Without Redis the
// event bus falls back to an in-process fan-out and the cache and lock
// manager stay nil, which is correct for a single replica.
func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*deps, error) {
	d := &deps{}

	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("app: postgres: %w", err)
	}
	d.closers = append(d.closers, pg.Close)

	if cfg.Database.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			d.close()
			return nil, fmt.Errorf("app: migrations: %w", err)
		}
		logger.Info("app: migrations applied")
	}

	d.users = postgres.NewUserStore(pg)
	d.markets = postgres.NewMarketStore(pg)
	d.stakes = postgres.NewStakeStore(pg)
	d.tips = postgres.NewTipStore(pg)

	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			d.close()
			return nil, fmt.Errorf("app: redis: %w", err)
		}
		d.closers = append(d.closers, func() { _ = rc.Close() })

		d.cache = redis.NewMarketCache(rc, cfg.Redis.CacheTTL.Duration)
		d.locks = redis.NewLockManager(rc)
		d.bus = redis.NewSignalBus(rc)
		logger.Info("app: redis connected", slog.String("addr", cfg.Redis.Addr))
	} else {
		d.bus = memory.NewSignalBus()
	}

	return d, nil
}
