package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tonstake/pollhouse/internal/domain"
)

// StakeStore implements domain.StakeStore over the shared ledger state.
type StakeStore struct {
	st *state
}

// Admit implements domain.StakeStore. Duplicate checks, the stake insert and
// the pool increment happen under a single lock hold, mirroring the unique
// constraints plus guarded update the Postgres implementation relies on.
func (s *StakeStore) Admit(_ context.Context, stake domain.Stake) (domain.Market, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	market, ok := s.st.markets[stake.MarketID]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: %w", stake.MarketID, domain.ErrNotFound)
	}
	if market.Status != domain.MarketStatusActive {
		return domain.Market{}, fmt.Errorf("market %s is %s: %w", stake.MarketID, market.Status, domain.ErrInvalidState)
	}
	if _, ok := s.st.stakeByTx[stake.TxHash]; ok {
		return domain.Market{}, fmt.Errorf("transaction %s: %w", stake.TxHash, domain.ErrConflict)
	}
	mu := stakeKey(stake.MarketID, stake.UserID)
	if _, ok := s.st.stakeByMU[mu]; ok {
		return domain.Market{}, fmt.Errorf("stake for %s: %w", mu, domain.ErrConflict)
	}

	amount, err := domain.ParseStoredAmount(stake.Amount)
	if err != nil {
		return domain.Market{}, err
	}
	pool, err := domain.ParseStoredAmount(market.Pool(stake.Choice))
	if err != nil {
		return domain.Market{}, err
	}
	pool.Add(pool, amount)
	if stake.Choice == domain.ChoiceYes {
		market.YesPool = pool.String()
	} else {
		market.NoPool = pool.String()
	}
	market.UpdatedAt = time.Now().UTC()

	s.st.markets[market.ID] = market
	s.st.stakes[stake.ID] = stake
	s.st.stakeByTx[stake.TxHash] = stake.ID
	s.st.stakeByMU[mu] = stake.ID
	s.st.stakeOrder = append(s.st.stakeOrder, stake.ID)
	return market, nil
}

// FindByTxHash implements domain.StakeStore.
func (s *StakeStore) FindByTxHash(_ context.Context, txHash string) (domain.Stake, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	id, ok := s.st.stakeByTx[txHash]
	if !ok {
		return domain.Stake{}, fmt.Errorf("stake by tx %s: %w", txHash, domain.ErrNotFound)
	}
	return s.st.stakes[id], nil
}

// FindByMarketUser implements domain.StakeStore.
func (s *StakeStore) FindByMarketUser(_ context.Context, marketID, userID string) (domain.Stake, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	id, ok := s.st.stakeByMU[stakeKey(marketID, userID)]
	if !ok {
		return domain.Stake{}, fmt.Errorf("stake for %s/%s: %w", marketID, userID, domain.ErrNotFound)
	}
	return s.st.stakes[id], nil
}

// ListByMarket implements domain.StakeStore: amount desc, then newest-first.
func (s *StakeStore) ListByMarket(_ context.Context, marketID string) ([]domain.Stake, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var stakes []domain.Stake
	for i := len(s.st.stakeOrder) - 1; i >= 0; i-- {
		st := s.st.stakes[s.st.stakeOrder[i]]
		if st.MarketID == marketID {
			stakes = append(stakes, st)
		}
	}
	sort.SliceStable(stakes, func(i, j int) bool {
		return compareAmounts(stakes[i].Amount, stakes[j].Amount) > 0
	})
	return stakes, nil
}

// ListByMarketChoice implements domain.StakeStore.
func (s *StakeStore) ListByMarketChoice(_ context.Context, marketID string, choice domain.Choice) ([]domain.Stake, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var stakes []domain.Stake
	for _, id := range s.st.stakeOrder {
		st := s.st.stakes[id]
		if st.MarketID == marketID && st.Choice == choice {
			stakes = append(stakes, st)
		}
	}
	return stakes, nil
}

// ListByUser implements domain.StakeStore, newest-first with market fields.
func (s *StakeStore) ListByUser(_ context.Context, userID string) ([]domain.StakeWithMarket, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var stakes []domain.StakeWithMarket
	for i := len(s.st.stakeOrder) - 1; i >= 0; i-- {
		st := s.st.stakes[s.st.stakeOrder[i]]
		if st.UserID != userID {
			continue
		}
		market := s.st.markets[st.MarketID]
		stakes = append(stakes, domain.StakeWithMarket{
			Stake:          st,
			MarketQuestion: market.Question,
			MarketStatus:   market.Status,
			MarketResult:   market.Result,
			MarketDeadline: market.Deadline,
		})
	}
	return stakes, nil
}

// compareAmounts compares two stored decimal amounts numerically. Malformed
// values sort last; list ordering is display-only so no error surfaces here.
func compareAmounts(a, b string) int {
	ai, errA := domain.ParseStoredAmount(a)
	bi, errB := domain.ParseStoredAmount(b)
	if errA != nil || errB != nil {
		if errA == nil {
			return 1
		}
		if errB == nil {
			return -1
		}
		return 0
	}
	return ai.Cmp(bi)
}

// Compile-time interface check.
var _ domain.StakeStore = (*StakeStore)(nil)
