package service

import (
	"fmt"
	"math/big"

	"github.com/tonstake/pollhouse/internal/domain"
)

// ComputePayouts performs the pari-mutuel split for a settled market: each
// winning stake recovers its amount plus floor(amount * losingPool /
// winningPool). Division truncates, so the total distributed never exceeds
// the combined pool; the remainder (at most winningPool-1 subunits) is
// forfeit and not tracked. Losing stakes get no entry.
//
// It is a pure computation over the market's pools and the stakes backing the
// winning side, returning payout amounts keyed by stake ID. Malformed stored
// numerics fail with domain.ErrCorruptData.
func ComputePayouts(market domain.Market, result domain.Choice, winners []domain.Stake) (map[string]string, error) {
	winningPool, err := domain.ParseStoredAmount(market.Pool(result))
	if err != nil {
		return nil, fmt.Errorf("settlement: market %s winning pool: %w", market.ID, err)
	}

	losing := domain.ChoiceYes
	if result == domain.ChoiceYes {
		losing = domain.ChoiceNo
	}
	losingPool, err := domain.ParseStoredAmount(market.Pool(losing))
	if err != nil {
		return nil, fmt.Errorf("settlement: market %s losing pool: %w", market.ID, err)
	}

	payouts := make(map[string]string, len(winners))
	for _, stake := range winners {
		// A winning stake implies a positive winning pool, since admission
		// adds every stake's amount to its chosen side. Guard anyway so a
		// zero pool can never divide.
		if winningPool.Sign() == 0 {
			continue
		}

		amount, err := domain.ParseStoredAmount(stake.Amount)
		if err != nil {
			return nil, fmt.Errorf("settlement: stake %s amount: %w", stake.ID, err)
		}

		share := new(big.Int).Mul(amount, losingPool)
		share.Quo(share, winningPool)
		payouts[stake.ID] = new(big.Int).Add(amount, share).String()
	}
	return payouts, nil
}
