package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonstake/pollhouse/internal/domain"
	"github.com/tonstake/pollhouse/internal/store/memory"
)

// testEnv bundles the services under test over a shared in-memory ledger.
type testEnv struct {
	ledger  *memory.Ledger
	markets *MarketService
	stakes  *StakeService
	tips    *TipService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ledger := memory.NewLedger()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		ledger:  ledger,
		markets: NewMarketService(ledger.Users, ledger.Markets, ledger.Stakes, nil, nil, logger),
		stakes:  NewStakeService(ledger.Users, ledger.Markets, ledger.Stakes, nil, nil, nil, logger),
		tips:    NewTipService(ledger.Users, ledger.Tips, logger),
	}
}

// addUser seeds a user and returns its id.
func (e *testEnv) addUser(t *testing.T, telegramID int64, username string) string {
	t.Helper()
	user, err := e.ledger.Users.UpsertByTelegramID(context.Background(), domain.User{
		TelegramID:  telegramID,
		Username:    username,
		FirstName:   username,
		LastLoginAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return user.ID
}

// addMarket seeds a market directly, bypassing service validation, so tests
// can construct past deadlines and arbitrary pools.
func (e *testEnv) addMarket(t *testing.T, m domain.Market) domain.Market {
	t.Helper()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MarketStatusActive
	}
	if m.YesPool == "" {
		m.YesPool = "0"
	}
	if m.NoPool == "" {
		m.NoPool = "0"
	}
	require.NoError(t, e.ledger.Markets.Create(context.Background(), m))
	return m
}

func TestMarketServiceCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")

	t.Run("valid", func(t *testing.T) {
		market, err := env.markets.Create(ctx, creator, "  Will it rain tomorrow?  ", 24)
		require.NoError(t, err)
		assert.Equal(t, "Will it rain tomorrow?", market.Question)
		assert.Equal(t, domain.MarketStatusActive, market.Status)
		assert.Equal(t, "0", market.YesPool)
		assert.Equal(t, "0", market.NoPool)
		assert.Equal(t, creator, market.CreatedBy)
		assert.Equal(t, "alice", market.CreatedByUsername)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), market.Deadline, time.Minute)
	})

	t.Run("deadline bounds inclusive", func(t *testing.T) {
		_, err := env.markets.Create(ctx, creator, "One hour poll", 1)
		assert.NoError(t, err)
		_, err = env.markets.Create(ctx, creator, "One week poll", 168)
		assert.NoError(t, err)
	})

	tests := []struct {
		name     string
		question string
		hours    int
		wantErr  error
	}{
		{name: "empty question", question: "   ", hours: 24, wantErr: domain.ErrValidation},
		{name: "question too long", question: strings.Repeat("x", 281), hours: 24, wantErr: domain.ErrValidation},
		{name: "deadline too short", question: "q", hours: 0, wantErr: domain.ErrValidation},
		{name: "deadline too long", question: "q", hours: 169, wantErr: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.markets.Create(ctx, creator, tt.question, tt.hours)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("question of exactly 280 runes", func(t *testing.T) {
		_, err := env.markets.Create(ctx, creator, strings.Repeat("й", 280), 24)
		assert.NoError(t, err)
	})

	t.Run("unknown creator", func(t *testing.T) {
		_, err := env.markets.Create(ctx, "no-such-user", "q", 24)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMarketServiceList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")

	first, err := env.markets.Create(ctx, creator, "first", 24)
	require.NoError(t, err)
	second, err := env.markets.Create(ctx, creator, "second", 24)
	require.NoError(t, err)
	_, err = env.markets.Close(ctx, creator, first.ID)
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		all, err := env.markets.List(ctx, "all", 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[1].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		active, err := env.markets.List(ctx, "active", 0)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, second.ID, active[0].ID)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := env.markets.List(ctx, "paused", 0)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestMarketServiceGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")
	voter := env.addUser(t, 1002, "bob")
	other := env.addUser(t, 1003, "carol")

	market, err := env.markets.Create(ctx, creator, "q", 24)
	require.NoError(t, err)
	mine, err := env.stakes.Submit(ctx, voter, market.ID, domain.ChoiceYes, "70", "tx-1")
	require.NoError(t, err)
	_, err = env.stakes.Submit(ctx, other, market.ID, domain.ChoiceNo, "30", "tx-2")
	require.NoError(t, err)

	t.Run("caller with a stake", func(t *testing.T) {
		detail, err := env.markets.Get(ctx, market.ID, voter)
		require.NoError(t, err)
		assert.Equal(t, market.ID, detail.ID)
		assert.Equal(t, "70", detail.YesPool)
		assert.Equal(t, "30", detail.NoPool)
		assert.Len(t, detail.Stakes, 2)
		require.NotNil(t, detail.CallerStake)
		assert.Equal(t, mine.ID, detail.CallerStake.ID)
		assert.Equal(t, voter, detail.CallerStake.UserID)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		detail, err := env.markets.Get(ctx, market.ID, "")
		require.NoError(t, err)
		assert.Len(t, detail.Stakes, 2)
		assert.Nil(t, detail.CallerStake)
	})

	t.Run("caller without a stake", func(t *testing.T) {
		detail, err := env.markets.Get(ctx, market.ID, creator)
		require.NoError(t, err)
		assert.Nil(t, detail.CallerStake)
	})

	t.Run("unknown market", func(t *testing.T) {
		_, err := env.markets.Get(ctx, "missing", voter)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMarketServiceClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")
	other := env.addUser(t, 1002, "bob")

	t.Run("creator closes before deadline", func(t *testing.T) {
		market, err := env.markets.Create(ctx, creator, "q", 24)
		require.NoError(t, err)

		closed, err := env.markets.Close(ctx, creator, market.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MarketStatusClosed, closed.Status)
	})

	t.Run("non-creator cannot close before deadline", func(t *testing.T) {
		market, err := env.markets.Create(ctx, creator, "q", 24)
		require.NoError(t, err)

		_, err = env.markets.Close(ctx, other, market.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("anyone closes after deadline", func(t *testing.T) {
		market := env.addMarket(t, domain.Market{
			Question:  "stale",
			CreatedBy: creator,
			Deadline:  time.Now().Add(-time.Hour),
		})

		closed, err := env.markets.Close(ctx, other, market.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MarketStatusClosed, closed.Status)
	})

	t.Run("close is single-shot", func(t *testing.T) {
		market, err := env.markets.Create(ctx, creator, "q", 24)
		require.NoError(t, err)
		_, err = env.markets.Close(ctx, creator, market.ID)
		require.NoError(t, err)

		_, err = env.markets.Close(ctx, creator, market.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("unknown market", func(t *testing.T) {
		_, err := env.markets.Close(ctx, creator, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMarketServiceSettle(t *testing.T) {
	ctx := context.Background()

	// Seeds a closed market with a yes stake of 60 by winner and a no stake
	// of 40 by loser.
	setup := func(t *testing.T) (*testEnv, string, domain.Market, domain.Stake, domain.Stake) {
		env := newTestEnv(t)
		creator := env.addUser(t, 1001, "alice")
		winner := env.addUser(t, 1002, "bob")
		loser := env.addUser(t, 1003, "carol")

		market, err := env.markets.Create(ctx, creator, "q", 24)
		require.NoError(t, err)

		yes, err := env.stakes.Submit(ctx, winner, market.ID, domain.ChoiceYes, "60", "tx-yes")
		require.NoError(t, err)
		no, err := env.stakes.Submit(ctx, loser, market.ID, domain.ChoiceNo, "40", "tx-no")
		require.NoError(t, err)

		_, err = env.markets.Close(ctx, creator, market.ID)
		require.NoError(t, err)
		return env, creator, market, yes, no
	}

	t.Run("pays the winning side", func(t *testing.T) {
		env, creator, market, yes, no := setup(t)

		settled, err := env.markets.Settle(ctx, creator, market.ID, domain.ChoiceYes)
		require.NoError(t, err)
		assert.Equal(t, domain.MarketStatusSettled, settled.Status)
		assert.Equal(t, domain.ChoiceYes, settled.Result)

		stakes, err := env.stakes.ListByMarket(ctx, market.ID)
		require.NoError(t, err)
		byID := map[string]domain.Stake{}
		for _, s := range stakes {
			byID[s.ID] = s
		}
		// 60 + floor(60*40/60) = 100; the loser gets nothing
		assert.Equal(t, "100", byID[yes.ID].Payout)
		assert.Equal(t, "", byID[no.ID].Payout)
	})

	t.Run("creator only", func(t *testing.T) {
		env, _, market, _, _ := setup(t)
		stranger := env.addUser(t, 2000, "mallory")

		_, err := env.markets.Settle(ctx, stranger, market.ID, domain.ChoiceYes)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("invalid result", func(t *testing.T) {
		env, creator, market, _, _ := setup(t)
		_, err := env.markets.Settle(ctx, creator, market.ID, domain.Choice("maybe"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("active market cannot settle", func(t *testing.T) {
		env := newTestEnv(t)
		creator := env.addUser(t, 1001, "alice")
		market, err := env.markets.Create(ctx, creator, "q", 24)
		require.NoError(t, err)

		_, err = env.markets.Settle(ctx, creator, market.ID, domain.ChoiceYes)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("settle is single-shot", func(t *testing.T) {
		env, creator, market, _, _ := setup(t)
		_, err := env.markets.Settle(ctx, creator, market.ID, domain.ChoiceYes)
		require.NoError(t, err)

		_, err = env.markets.Settle(ctx, creator, market.ID, domain.ChoiceNo)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestMarketServiceStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.addUser(t, 1001, "alice")

	// One active market through the service plus one settled-shape market
	// seeded with pools past 2^53, where float64 arithmetic would drift.
	_, err := env.markets.Create(ctx, creator, "active one", 24)
	require.NoError(t, err)
	env.addMarket(t, domain.Market{
		Question:  "whale poll",
		CreatedBy: creator,
		Deadline:  time.Now().Add(time.Hour),
		Status:    domain.MarketStatusClosed,
		YesPool:   "9007199254740993",
		NoPool:    "9007199254740993",
	})

	stats, err := env.markets.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalMarkets)
	assert.Equal(t, int64(1), stats.ActiveMarkets)
	assert.Equal(t, "18014398509481986", stats.TotalStaked)
}
