package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonstake/pollhouse/internal/domain"
)

func mkMarket(yesPool, noPool string) domain.Market {
	return domain.Market{
		ID:      "m1",
		YesPool: yesPool,
		NoPool:  noPool,
		Status:  domain.MarketStatusClosed,
	}
}

func mkStake(id, amount string, choice domain.Choice) domain.Stake {
	return domain.Stake{ID: id, MarketID: "m1", Choice: choice, Amount: amount}
}

func TestComputePayouts(t *testing.T) {
	tests := []struct {
		name    string
		market  domain.Market
		result  domain.Choice
		winners []domain.Stake
		want    map[string]string
	}{
		{
			name:   "everyone right refunds exactly",
			market: mkMarket("50000000000", "0"),
			result: domain.ChoiceYes,
			winners: []domain.Stake{
				mkStake("a", "50000000000", domain.ChoiceYes),
			},
			want: map[string]string{"a": "50000000000"},
		},
		{
			name:   "proportional split",
			market: mkMarket("100", "30"),
			result: domain.ChoiceYes,
			winners: []domain.Stake{
				mkStake("a", "20", domain.ChoiceYes),
				mkStake("b", "80", domain.ChoiceYes),
			},
			want: map[string]string{"a": "26", "b": "104"},
		},
		{
			name:   "equal stakes double their money",
			market: mkMarket("10", "10"),
			result: domain.ChoiceYes,
			winners: []domain.Stake{
				mkStake("a", "2", domain.ChoiceYes),
				mkStake("b", "2", domain.ChoiceYes),
				mkStake("c", "2", domain.ChoiceYes),
				mkStake("d", "2", domain.ChoiceYes),
				mkStake("e", "2", domain.ChoiceYes),
			},
			want: map[string]string{"a": "4", "b": "4", "c": "4", "d": "4", "e": "4"},
		},
		{
			name:   "share truncates toward zero",
			market: mkMarket("1000", "1"),
			result: domain.ChoiceYes,
			winners: []domain.Stake{
				mkStake("a", "2", domain.ChoiceYes),
			},
			// floor(2 * 1 / 1000) = 0, so the stake only gets its amount back
			want: map[string]string{"a": "2"},
		},
		{
			name:   "no side wins",
			market: mkMarket("30", "100"),
			result: domain.ChoiceNo,
			winners: []domain.Stake{
				mkStake("a", "100", domain.ChoiceNo),
			},
			want: map[string]string{"a": "130"},
		},
		{
			name:    "no winners yields no payouts",
			market:  mkMarket("0", "100"),
			result:  domain.ChoiceYes,
			winners: nil,
			want:    map[string]string{},
		},
		{
			name:   "zero winning pool never divides",
			market: mkMarket("0", "100"),
			result: domain.ChoiceYes,
			winners: []domain.Stake{
				mkStake("phantom", "5", domain.ChoiceYes),
			},
			want: map[string]string{},
		},
		{
			name:   "values past int64",
			market: mkMarket("200000000000000000000", "100000000000000000000"),
			result: domain.ChoiceYes,
			winners: []domain.Stake{
				mkStake("a", "200000000000000000000", domain.ChoiceYes),
			},
			want: map[string]string{"a": "300000000000000000000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputePayouts(tt.market, tt.result, tt.winners)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputePayoutsCorruptData(t *testing.T) {
	t.Run("corrupt pool", func(t *testing.T) {
		_, err := ComputePayouts(mkMarket("not-a-number", "0"), domain.ChoiceYes, nil)
		assert.ErrorIs(t, err, domain.ErrCorruptData)
	})

	t.Run("corrupt stake amount", func(t *testing.T) {
		_, err := ComputePayouts(mkMarket("10", "10"), domain.ChoiceYes, []domain.Stake{
			mkStake("a", "1.5", domain.ChoiceYes),
		})
		assert.ErrorIs(t, err, domain.ErrCorruptData)
	})
}

// The split must conserve the pool: the distributed total never exceeds
// yesPool+noPool, and the shortfall stays below one subunit per winner.
func TestComputePayoutsConservation(t *testing.T) {
	market := mkMarket("1000003", "999983")
	winners := []domain.Stake{
		mkStake("a", "333331", domain.ChoiceYes),
		mkStake("b", "333341", domain.ChoiceYes),
		mkStake("c", "333331", domain.ChoiceYes),
	}

	payouts, err := ComputePayouts(market, domain.ChoiceYes, winners)
	require.NoError(t, err)
	require.Len(t, payouts, 3)

	var total int64
	for _, p := range payouts {
		n, err := domain.ParseStoredAmount(p)
		require.NoError(t, err)
		total += n.Int64()
	}
	assert.LessOrEqual(t, total, int64(1000003+999983))
	assert.Greater(t, total, int64(1000003+999983)-int64(len(winners)))
}
