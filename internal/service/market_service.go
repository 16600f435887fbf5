package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tonstake/pollhouse/internal/domain"
)

// MarketService owns the market lifecycle: creation, the Active -> Closed ->
// Settled state machine, reads and the stats aggregation.
type MarketService struct {
	users   domain.UserStore
	markets domain.MarketStore
	stakes  domain.StakeStore
	cache   domain.MarketCache // optional
	bus     domain.SignalBus   // optional
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. cache and bus may be nil.
func NewMarketService(
	users domain.UserStore,
	markets domain.MarketStore,
	stakes domain.StakeStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		users:   users,
		markets: markets,
		stakes:  stakes,
		cache:   cache,
		bus:     bus,
		logger:  logger,
	}
}

// Create validates and persists a new active market with zero pools.
func (s *MarketService) Create(ctx context.Context, userID, question string, deadlineHours int) (domain.Market, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: creator %s: %w", userID, err)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Market{}, fmt.Errorf("question is required: %w", domain.ErrValidation)
	}
	if len([]rune(question)) > domain.MaxQuestionLen {
		return domain.Market{}, fmt.Errorf("question must be %d characters or less: %w", domain.MaxQuestionLen, domain.ErrValidation)
	}
	if deadlineHours < domain.MinDeadlineHours || deadlineHours > domain.MaxDeadlineHours {
		return domain.Market{}, fmt.Errorf("deadline must be between 1 hour and 7 days: %w", domain.ErrValidation)
	}

	now := time.Now().UTC()
	market := domain.Market{
		ID:                 uuid.NewString(),
		Question:           question,
		CreatedBy:          user.ID,
		CreatedByUsername:  user.Username,
		CreatedByFirstName: user.FirstName,
		Deadline:           now.Add(time.Duration(deadlineHours) * time.Hour),
		Status:             domain.MarketStatusActive,
		YesPool:            "0",
		NoPool:             "0",
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.markets.Create(ctx, market); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", market.ID),
		slog.String("created_by", user.ID),
	)
	publishEvent(ctx, s.bus, s.logger, ChannelMarkets, Event{Type: EventMarketCreated, Market: &market})

	return market, nil
}

// List returns markets newest-first. statusFilter may be empty or "all" for
// no filtering. limit defaults to 20 and is capped at 100.
func (s *MarketService) List(ctx context.Context, statusFilter string, limit int) ([]domain.Market, error) {
	var status domain.MarketStatus
	switch statusFilter {
	case "", "all":
	default:
		status = domain.MarketStatus(statusFilter)
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q: %w", statusFilter, domain.ErrValidation)
		}
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	markets, err := s.markets.List(ctx, status, domain.ListOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// Get returns a market with its stakes. callerID may be empty; when set, the
// caller's own stake is surfaced separately.
func (s *MarketService) Get(ctx context.Context, marketID, callerID string) (domain.MarketDetail, error) {
	market, err := s.getMarket(ctx, marketID)
	if err != nil {
		return domain.MarketDetail{}, err
	}

	stakes, err := s.stakes.ListByMarket(ctx, marketID)
	if err != nil {
		return domain.MarketDetail{}, fmt.Errorf("market_service: stakes for %s: %w", marketID, err)
	}

	detail := domain.MarketDetail{Market: market, Stakes: stakes}
	if callerID != "" {
		for i := range stakes {
			if stakes[i].UserID == callerID {
				detail.CallerStake = &stakes[i]
				break
			}
		}
	}
	return detail, nil
}

// Close transitions a market Active -> Closed. The creator may close at any
// time; anyone else only once the deadline has passed.
func (s *MarketService) Close(ctx context.Context, userID, marketID string) (domain.Market, error) {
	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: close %s: %w", marketID, err)
	}

	if market.Status != domain.MarketStatusActive {
		return domain.Market{}, fmt.Errorf("poll is not active: %w", domain.ErrInvalidState)
	}
	if market.CreatedBy != userID && time.Now().Before(market.Deadline) {
		return domain.Market{}, fmt.Errorf("only the poll creator can close before the deadline: %w", domain.ErrForbidden)
	}

	closed, err := s.markets.Close(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: close %s: %w", marketID, err)
	}

	s.invalidate(ctx, marketID)
	s.logger.InfoContext(ctx, "market_service: market closed",
		slog.String("market_id", marketID),
		slog.String("closed_by", userID),
	)
	publishEvent(ctx, s.bus, s.logger, ChannelMarkets, Event{Type: EventMarketClosed, Market: &closed})

	return closed, nil
}

// Settle computes the pari-mutuel payouts for the winning side and applies
// the Closed -> Settled transition atomically with the payout writes.
// Settlement is creator-only and single-shot.
func (s *MarketService) Settle(ctx context.Context, userID, marketID string, result domain.Choice) (domain.Market, error) {
	if !result.Valid() {
		return domain.Market{}, fmt.Errorf("result must be yes or no: %w", domain.ErrValidation)
	}

	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: settle %s: %w", marketID, err)
	}

	if market.CreatedBy != userID {
		return domain.Market{}, fmt.Errorf("only the poll creator can settle: %w", domain.ErrForbidden)
	}
	// A single check covers both "still active" and "already settled":
	// settlement only ever departs from Closed.
	if market.Status != domain.MarketStatusClosed {
		return domain.Market{}, fmt.Errorf("poll must be closed before settling: %w", domain.ErrInvalidState)
	}

	winners, err := s.stakes.ListByMarketChoice(ctx, marketID, result)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: winning stakes for %s: %w", marketID, err)
	}

	payouts, err := ComputePayouts(market, result, winners)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptData) {
			s.logger.ErrorContext(ctx, "market_service: corrupt ledger data during settlement",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
		return domain.Market{}, err
	}

	settled, err := s.markets.ApplySettlement(ctx, marketID, result, payouts)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: settle %s: %w", marketID, err)
	}

	s.invalidate(ctx, marketID)
	s.logger.InfoContext(ctx, "market_service: market settled",
		slog.String("market_id", marketID),
		slog.String("result", string(result)),
		slog.Int("winning_stakes", len(payouts)),
	)
	publishEvent(ctx, s.bus, s.logger, ChannelMarkets, Event{Type: EventMarketSettled, Market: &settled})

	return settled, nil
}

// Stats aggregates market counts and the exact total staked across all pools.
// The three reads fan out concurrently; the result is advisory display data.
func (s *MarketService) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.markets.Count(ctx)
		stats.TotalMarkets = total
		return err
	})
	g.Go(func() error {
		active, err := s.markets.CountByStatus(ctx, domain.MarketStatusActive)
		stats.ActiveMarkets = active
		return err
	})
	g.Go(func() error {
		sum, err := s.markets.SumPools(ctx)
		stats.TotalStaked = sum
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, fmt.Errorf("market_service: stats: %w", err)
	}
	return stats, nil
}

// getMarket reads through the cache when one is configured.
func (s *MarketService) getMarket(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}

	market, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %s: %w", id, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, market); cacheErr != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.String("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return market, nil
}

// invalidate drops the cached copy of a market after a mutation.
func (s *MarketService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}
