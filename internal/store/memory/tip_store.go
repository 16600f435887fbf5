package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/tonstake/pollhouse/internal/domain"
)

// TipStore implements domain.TipStore over the shared ledger state.
type TipStore struct {
	st *state
}

// Create implements domain.TipStore.
func (s *TipStore) Create(_ context.Context, tip domain.Tip) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.tipByTx[tip.TxHash]; ok {
		return fmt.Errorf("transaction %s: %w", tip.TxHash, domain.ErrConflict)
	}
	s.st.tips[tip.ID] = tip
	s.st.tipByTx[tip.TxHash] = tip.ID
	s.st.tipOrder = append(s.st.tipOrder, tip.ID)
	return nil
}

// ListRecent implements domain.TipStore, newest-first.
func (s *TipStore) ListRecent(_ context.Context, limit int) ([]domain.Tip, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var tips []domain.Tip
	for i := len(s.st.tipOrder) - 1; i >= 0 && len(tips) < limit; i-- {
		tips = append(tips, s.st.tips[s.st.tipOrder[i]])
	}
	return tips, nil
}

// Leaderboard implements domain.TipStore with exact big-integer totals.
func (s *TipStore) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	totals := make(map[string]*big.Int)
	counts := make(map[string]int64)
	first := make(map[string]domain.Tip)
	for _, id := range s.st.tipOrder {
		tip := s.st.tips[id]
		amount, err := domain.ParseStoredAmount(tip.Amount)
		if err != nil {
			return nil, err
		}
		if totals[tip.FromUserID] == nil {
			totals[tip.FromUserID] = new(big.Int)
			first[tip.FromUserID] = tip
		}
		totals[tip.FromUserID].Add(totals[tip.FromUserID], amount)
		counts[tip.FromUserID]++
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for userID, total := range totals {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      userID,
			Username:    first[userID].FromUsername,
			FirstName:   first[userID].FromFirstName,
			TotalAmount: total.String(),
			TipCount:    counts[userID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return compareAmounts(entries[i].TotalAmount, entries[j].TotalAmount) > 0
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Stats implements domain.TipStore.
func (s *TipStore) Stats(_ context.Context) (domain.TipStats, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	total := new(big.Int)
	for _, tip := range s.st.tips {
		amount, err := domain.ParseStoredAmount(tip.Amount)
		if err != nil {
			return domain.TipStats{}, err
		}
		total.Add(total, amount)
	}
	return domain.TipStats{
		TotalTips:   int64(len(s.st.tips)),
		TotalAmount: total.String(),
	}, nil
}

// Compile-time interface check.
var _ domain.TipStore = (*TipStore)(nil)
