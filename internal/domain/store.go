package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// UserStore persists user accounts.
type UserStore interface {
	// UpsertByTelegramID creates the user on first login or refreshes the
	// profile fields and lastLoginAt on subsequent ones. It returns the
	// stored user, with the server-assigned ID on first creation.
	UpsertByTelegramID(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (User, error)
	UpdateWallet(ctx context.Context, id, walletAddress string) (User, error)
}

// MarketStore persists markets and owns their guarded lifecycle transitions.
type MarketStore interface {
	Create(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	// List returns markets newest-first, optionally filtered by status
	// (empty status means all).
	List(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
	// Close transitions Active -> Closed. It returns ErrInvalidState when
	// the market is not active, so at most one concurrent close succeeds.
	Close(ctx context.Context, id string) (Market, error)
	// ApplySettlement transitions Closed -> Settled, records the result and
	// writes the per-stake payouts as one atomic unit. The status guard is
	// part of the transition, so settlement is single-shot under
	// concurrency: the loser observes ErrInvalidState.
	ApplySettlement(ctx context.Context, id string, result Choice, payouts map[string]string) (Market, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status MarketStatus) (int64, error)
	// SumPools returns the exact integer sum of yesPool+noPool across all
	// markets as a decimal string.
	SumPools(ctx context.Context) (string, error)
}

// StakeStore persists stakes. Admission is the concurrency-critical write
// path: implementations must make the duplicate checks, the stake insert and
// the pool increment one causally ordered unit per market.
type StakeStore interface {
	// Admit inserts the stake and adds its amount to the owning market's
	// chosen pool atomically. It returns ErrConflict on a duplicate txHash
	// or a second stake for the same (market, user) pair, and
	// ErrInvalidState when the market is no longer active.
	Admit(ctx context.Context, stake Stake) (Market, error)
	FindByTxHash(ctx context.Context, txHash string) (Stake, error)
	FindByMarketUser(ctx context.Context, marketID, userID string) (Stake, error)
	// ListByMarket returns stakes ordered by amount desc, then newest-first.
	ListByMarket(ctx context.Context, marketID string) ([]Stake, error)
	// ListByMarketChoice returns the stakes backing one side of a market.
	ListByMarketChoice(ctx context.Context, marketID string, choice Choice) ([]Stake, error)
	// ListByUser returns the user's stakes newest-first with denormalized
	// market fields.
	ListByUser(ctx context.Context, userID string) ([]StakeWithMarket, error)
}

// TipStore persists tips and serves the leaderboard aggregations.
type TipStore interface {
	// Create inserts a tip. ErrConflict on a duplicate txHash.
	Create(ctx context.Context, tip Tip) error
	ListRecent(ctx context.Context, limit int) ([]Tip, error)
	// Leaderboard groups tips by sender with exact integer totals, sorted
	// by total amount descending.
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	Stats(ctx context.Context) (TipStats, error)
}

// MarketCache is a read-through cache for single markets.
type MarketCache interface {
	Get(ctx context.Context, id string) (Market, error)
	Set(ctx context.Context, market Market) error
	Invalidate(ctx context.Context, id string) error
}

// LockManager provides per-key mutual exclusion across process boundaries.
type LockManager interface {
	// Acquire obtains the lock for key or returns ErrLockHeld. The returned
	// function releases the lock and is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SignalBus is a lightweight publish/subscribe fan-out for market events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of raw payloads that is closed when ctx
	// is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
