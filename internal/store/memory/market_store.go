package memory

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/tonstake/pollhouse/internal/domain"
)

// MarketStore implements domain.MarketStore over the shared ledger state.
type MarketStore struct {
	st *state
}

// Create implements domain.MarketStore.
func (s *MarketStore) Create(_ context.Context, market domain.Market) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.markets[market.ID]; ok {
		return fmt.Errorf("market %s: %w", market.ID, domain.ErrConflict)
	}
	s.st.markets[market.ID] = market
	s.st.marketOrder = append(s.st.marketOrder, market.ID)
	return nil
}

// GetByID implements domain.MarketStore.
func (s *MarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	market, ok := s.st.markets[id]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	return market, nil
}

// List implements domain.MarketStore. Markets are returned newest-first.
func (s *MarketStore) List(_ context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var markets []domain.Market
	for i := len(s.st.marketOrder) - 1; i >= 0; i-- {
		m := s.st.markets[s.st.marketOrder[i]]
		if status != "" && m.Status != status {
			continue
		}
		markets = append(markets, m)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(markets) {
			return nil, nil
		}
		markets = markets[opts.Offset:]
	}
	if opts.Limit > 0 && len(markets) > opts.Limit {
		markets = markets[:opts.Limit]
	}
	return markets, nil
}

// Close implements domain.MarketStore. The status guard makes the transition
// single-shot under concurrency.
func (s *MarketStore) Close(_ context.Context, id string) (domain.Market, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	market, ok := s.st.markets[id]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	if market.Status != domain.MarketStatusActive {
		return domain.Market{}, fmt.Errorf("market %s is %s: %w", id, market.Status, domain.ErrInvalidState)
	}

	market.Status = domain.MarketStatusClosed
	market.UpdatedAt = time.Now().UTC()
	s.st.markets[id] = market
	return market, nil
}

// ApplySettlement implements domain.MarketStore. The transition and the
// payout writes happen under one lock hold, so a concurrent settlement
// attempt observes either nothing or the completed settlement.
func (s *MarketStore) ApplySettlement(_ context.Context, id string, result domain.Choice, payouts map[string]string) (domain.Market, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	market, ok := s.st.markets[id]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	if market.Status != domain.MarketStatusClosed {
		return domain.Market{}, fmt.Errorf("market %s is %s: %w", id, market.Status, domain.ErrInvalidState)
	}

	for stakeID, payout := range payouts {
		stake, ok := s.st.stakes[stakeID]
		if !ok {
			return domain.Market{}, fmt.Errorf("stake %s: %w", stakeID, domain.ErrNotFound)
		}
		stake.Payout = payout
		s.st.stakes[stakeID] = stake
	}

	market.Status = domain.MarketStatusSettled
	market.Result = result
	market.UpdatedAt = time.Now().UTC()
	s.st.markets[id] = market
	return market, nil
}

// Count implements domain.MarketStore.
func (s *MarketStore) Count(_ context.Context) (int64, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	return int64(len(s.st.markets)), nil
}

// CountByStatus implements domain.MarketStore.
func (s *MarketStore) CountByStatus(_ context.Context, status domain.MarketStatus) (int64, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var n int64
	for _, m := range s.st.markets {
		if m.Status == status {
			n++
		}
	}
	return n, nil
}

// SumPools implements domain.MarketStore with exact big-integer accumulation.
func (s *MarketStore) SumPools(_ context.Context) (string, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	total := new(big.Int)
	for _, m := range s.st.markets {
		yes, err := domain.ParseStoredAmount(m.YesPool)
		if err != nil {
			return "", err
		}
		no, err := domain.ParseStoredAmount(m.NoPool)
		if err != nil {
			return "", err
		}
		total.Add(total, yes)
		total.Add(total, no)
	}
	return total.String(), nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
