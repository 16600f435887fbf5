package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tonstake/pollhouse/internal/domain"
)

// admitLockTTL bounds how long a per-market admission lock may be held if the
// holder dies mid-sequence.
const admitLockTTL = 10 * time.Second

// admitLockWait is how long Submit waits for a contended admission lock
// before giving up.
const admitLockWait = 2 * time.Second

// StakeService is the admission controller: it validates a stake against its
// market, records it and updates the pool totals under per-market
// serialization.
type StakeService struct {
	users   domain.UserStore
	markets domain.MarketStore
	stakes  domain.StakeStore
	locks   domain.LockManager // optional, for multi-replica deployments
	cache   domain.MarketCache // optional
	bus     domain.SignalBus   // optional
	logger  *slog.Logger
}

// NewStakeService creates a StakeService. locks, cache and bus may be nil;
// the store's own atomicity guarantees still hold without them.
func NewStakeService(
	users domain.UserStore,
	markets domain.MarketStore,
	stakes domain.StakeStore,
	locks domain.LockManager,
	cache domain.MarketCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *StakeService {
	return &StakeService{
		users:   users,
		markets: markets,
		stakes:  stakes,
		locks:   locks,
		cache:   cache,
		bus:     bus,
		logger:  logger,
	}
}

// Submit admits a stake. Preconditions are checked in order, each a distinct
// failure: user present, market present, market active, deadline not passed,
// txHash unused, user has not staked on this market. The insert and the pool
// increment are one atomic unit in the store; the duplicate read-checks exist
// for precise errors while the store's uniqueness guard is what makes
// concurrent double-admission impossible.
func (s *StakeService) Submit(ctx context.Context, userID, marketID string, choice domain.Choice, amount, txHash string) (domain.Stake, error) {
	if !choice.Valid() {
		return domain.Stake{}, fmt.Errorf("choice must be yes or no: %w", domain.ErrValidation)
	}
	if _, err := domain.ParseAmount(amount); err != nil {
		return domain.Stake{}, err
	}
	if txHash == "" {
		return domain.Stake{}, fmt.Errorf("txHash is required: %w", domain.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("stake_service: user %s: %w", userID, err)
	}

	unlock, err := s.acquireAdmitLock(ctx, marketID)
	if err != nil {
		return domain.Stake{}, err
	}
	defer unlock()

	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("stake_service: market %s: %w", marketID, err)
	}
	if market.Status != domain.MarketStatusActive {
		return domain.Stake{}, fmt.Errorf("poll is not active: %w", domain.ErrInvalidState)
	}
	if time.Now().After(market.Deadline) {
		return domain.Stake{}, fmt.Errorf("poll has expired: %w", domain.ErrExpired)
	}

	if _, err := s.stakes.FindByTxHash(ctx, txHash); err == nil {
		return domain.Stake{}, fmt.Errorf("transaction already recorded: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Stake{}, fmt.Errorf("stake_service: tx lookup: %w", err)
	}
	if _, err := s.stakes.FindByMarketUser(ctx, marketID, userID); err == nil {
		return domain.Stake{}, fmt.Errorf("you have already voted on this poll: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Stake{}, fmt.Errorf("stake_service: vote lookup: %w", err)
	}

	stake := domain.Stake{
		ID:            uuid.NewString(),
		MarketID:      marketID,
		UserID:        user.ID,
		UserUsername:  user.Username,
		UserFirstName: user.FirstName,
		Choice:        choice,
		Amount:        amount,
		TxHash:        txHash,
		CreatedAt:     time.Now().UTC(),
	}

	if _, err := s.stakes.Admit(ctx, stake); err != nil {
		return domain.Stake{}, fmt.Errorf("stake_service: admit: %w", err)
	}

	s.invalidate(ctx, marketID)
	s.logger.InfoContext(ctx, "stake_service: stake admitted",
		slog.String("stake_id", stake.ID),
		slog.String("market_id", marketID),
		slog.String("choice", string(choice)),
		slog.String("amount", amount),
	)
	publishEvent(ctx, s.bus, s.logger, ChannelStakes, Event{Type: EventStakeAdmitted, Stake: &stake})

	return stake, nil
}

// ListByMarket returns a market's stakes ordered by amount desc, newest-first.
func (s *StakeService) ListByMarket(ctx context.Context, marketID string) ([]domain.Stake, error) {
	stakes, err := s.stakes.ListByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("stake_service: list by market %s: %w", marketID, err)
	}
	return stakes, nil
}

// ListByUser returns the caller's stakes with denormalized market fields.
func (s *StakeService) ListByUser(ctx context.Context, userID string) ([]domain.StakeWithMarket, error) {
	stakes, err := s.stakes.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stake_service: list by user %s: %w", userID, err)
	}
	return stakes, nil
}

// acquireAdmitLock serializes admissions per market across replicas when a
// lock manager is configured. It polls briefly on contention; the returned
// function releases the lock and is always safe to call.
func (s *StakeService) acquireAdmitLock(ctx context.Context, marketID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}

	key := "admit:" + marketID
	deadline := time.Now().Add(admitLockWait)
	for {
		unlock, err := s.locks.Acquire(ctx, key, admitLockTTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("stake_service: admission lock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("stake_service: admission lock for %s: %w", marketID, domain.ErrLockHeld)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (s *StakeService) invalidate(ctx context.Context, marketID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "stake_service: cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}
