package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tonstake/pollhouse/internal/domain"
)

// MarketCache implements domain.MarketCache on Redis with JSON values and a
// fixed TTL. A cache miss surfaces as domain.ErrNotFound so callers fall
// through to the store.
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache. A non-positive ttl defaults to one
// minute.
func NewMarketCache(client *Client, ttl time.Duration) *MarketCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MarketCache{rdb: client.Raw(), ttl: ttl}
}

func marketKey(id string) string {
	return "market:" + id
}

// Get implements domain.MarketCache.
func (c *MarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	data, err := c.rdb.Get(ctx, marketKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("redis: get market: %w", err)
	}

	var m domain.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Market{}, fmt.Errorf("redis: decode market: %w", err)
	}
	return m, nil
}

// Set implements domain.MarketCache.
func (c *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: encode market: %w", err)
	}
	if err := c.rdb.Set(ctx, marketKey(market.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set market: %w", err)
	}
	return nil
}

// Invalidate implements domain.MarketCache.
func (c *MarketCache) Invalidate(ctx context.Context, id string) error {
	if err := c.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
