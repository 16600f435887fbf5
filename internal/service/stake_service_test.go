package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonstake/pollhouse/internal/domain"
)

func TestStakeServiceSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")
	voter := env.addUser(t, 1002, "bob")

	market, err := env.markets.Create(ctx, creator, "q", 24)
	require.NoError(t, err)

	tests := []struct {
		name    string
		choice  domain.Choice
		amount  string
		txHash  string
		wantErr error
	}{
		{name: "invalid choice", choice: "maybe", amount: "10", txHash: "tx1", wantErr: domain.ErrValidation},
		{name: "empty amount", choice: domain.ChoiceYes, amount: "", txHash: "tx1", wantErr: domain.ErrValidation},
		{name: "negative amount", choice: domain.ChoiceYes, amount: "-1", txHash: "tx1", wantErr: domain.ErrValidation},
		{name: "fractional amount", choice: domain.ChoiceYes, amount: "1.5", txHash: "tx1", wantErr: domain.ErrValidation},
		{name: "missing txHash", choice: domain.ChoiceYes, amount: "10", txHash: "", wantErr: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.stakes.Submit(ctx, voter, market.ID, tt.choice, tt.amount, tt.txHash)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.stakes.Submit(ctx, "ghost", market.ID, domain.ChoiceYes, "10", "tx1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown market", func(t *testing.T) {
		_, err := env.stakes.Submit(ctx, voter, "missing", domain.ChoiceYes, "10", "tx1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("zero amount is admitted", func(t *testing.T) {
		stake, err := env.stakes.Submit(ctx, voter, market.ID, domain.ChoiceYes, "0", "tx-zero")
		require.NoError(t, err)
		assert.Equal(t, "0", stake.Amount)
	})
}

func TestStakeServiceSubmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")
	bob := env.addUser(t, 1002, "bob")
	carol := env.addUser(t, 1003, "carol")

	market, err := env.markets.Create(ctx, creator, "q", 24)
	require.NoError(t, err)

	stake, err := env.stakes.Submit(ctx, bob, market.ID, domain.ChoiceYes, "70", "tx-bob")
	require.NoError(t, err)
	assert.Equal(t, domain.ChoiceYes, stake.Choice)
	assert.Equal(t, "bob", stake.UserUsername)
	assert.Empty(t, stake.Payout)

	_, err = env.stakes.Submit(ctx, carol, market.ID, domain.ChoiceNo, "30", "tx-carol")
	require.NoError(t, err)

	got, err := env.ledger.Markets.GetByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, "70", got.YesPool)
	assert.Equal(t, "30", got.NoPool)

	t.Run("duplicate txHash", func(t *testing.T) {
		dave := env.addUser(t, 1004, "dave")
		_, err := env.stakes.Submit(ctx, dave, market.ID, domain.ChoiceNo, "5", "tx-bob")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("one stake per user per market", func(t *testing.T) {
		_, err := env.stakes.Submit(ctx, bob, market.ID, domain.ChoiceNo, "5", "tx-bob-2")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	// Rejected submissions must leave the pools untouched.
	got, err = env.ledger.Markets.GetByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, "70", got.YesPool)
	assert.Equal(t, "30", got.NoPool)
}

func TestStakeServiceSubmitMarketState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")
	voter := env.addUser(t, 1002, "bob")

	t.Run("closed market", func(t *testing.T) {
		market, err := env.markets.Create(ctx, creator, "q", 24)
		require.NoError(t, err)
		_, err = env.markets.Close(ctx, creator, market.ID)
		require.NoError(t, err)

		_, err = env.stakes.Submit(ctx, voter, market.ID, domain.ChoiceYes, "10", "tx1")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("expired market", func(t *testing.T) {
		market := env.addMarket(t, domain.Market{
			Question:  "stale",
			CreatedBy: creator,
			Deadline:  time.Now().Add(-time.Minute),
		})

		_, err := env.stakes.Submit(ctx, voter, market.ID, domain.ChoiceYes, "10", "tx2")
		assert.ErrorIs(t, err, domain.ErrExpired)
	})
}

func TestStakeServiceListByUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")
	voter := env.addUser(t, 1002, "bob")

	m1, err := env.markets.Create(ctx, creator, "first", 24)
	require.NoError(t, err)
	m2, err := env.markets.Create(ctx, creator, "second", 24)
	require.NoError(t, err)

	_, err = env.stakes.Submit(ctx, voter, m1.ID, domain.ChoiceYes, "10", "tx1")
	require.NoError(t, err)
	_, err = env.stakes.Submit(ctx, voter, m2.ID, domain.ChoiceNo, "20", "tx2")
	require.NoError(t, err)

	history, err := env.stakes.ListByUser(ctx, voter)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, m2.ID, history[0].MarketID)
	assert.Equal(t, "second", history[0].MarketQuestion)
	assert.Equal(t, m1.ID, history[1].MarketID)
}

// Concurrent admissions from distinct users must all land and the pool must
// equal the exact sum of the admitted amounts.
func TestStakeServiceConcurrentSubmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")

	market, err := env.markets.Create(ctx, creator, "busy poll", 24)
	require.NoError(t, err)

	const n = 50
	voters := make([]string, n)
	for i := range voters {
		voters[i] = env.addUser(t, int64(2000+i), fmt.Sprintf("voter%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.stakes.Submit(ctx, voters[i], market.ID, domain.ChoiceYes, "3", fmt.Sprintf("tx-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "voter %d", i)
	}

	got, err := env.ledger.Markets.GetByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", 3*n), got.YesPool)

	stakes, err := env.stakes.ListByMarket(ctx, market.ID)
	require.NoError(t, err)
	assert.Len(t, stakes, n)
}

// Concurrent submissions reusing one txHash admit exactly once.
func TestStakeServiceConcurrentDuplicateTx(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")

	market, err := env.markets.Create(ctx, creator, "q", 24)
	require.NoError(t, err)

	const n = 16
	voters := make([]string, n)
	for i := range voters {
		voters[i] = env.addUser(t, int64(3000+i), fmt.Sprintf("racer%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.stakes.Submit(ctx, voters[i], market.ID, domain.ChoiceYes, "5", "tx-shared")
		}(i)
	}
	wg.Wait()

	var admitted int
	for _, err := range errs {
		if err == nil {
			admitted++
		} else {
			require.ErrorIs(t, err, domain.ErrConflict)
		}
	}
	assert.Equal(t, 1, admitted)

	got, err := env.ledger.Markets.GetByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", got.YesPool)
}
