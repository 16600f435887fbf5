package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonstake/pollhouse/internal/domain"
)

func TestTipServiceRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addUser(t, 1001, "alice")

	t.Run("valid", func(t *testing.T) {
		tip, err := env.tips.Record(ctx, alice, "1000000000", "keep it up", "tip-tx-1")
		require.NoError(t, err)
		assert.Equal(t, alice, tip.FromUserID)
		assert.Equal(t, "alice", tip.FromUsername)
		assert.Equal(t, "1000000000", tip.Amount)
	})

	tests := []struct {
		name    string
		amount  string
		message string
		txHash  string
		wantErr error
	}{
		{name: "malformed amount", amount: "12.5", message: "", txHash: "t1", wantErr: domain.ErrValidation},
		{name: "message too long", amount: "1", message: strings.Repeat("x", 281), txHash: "t1", wantErr: domain.ErrValidation},
		{name: "missing txHash", amount: "1", message: "", txHash: "", wantErr: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tips.Record(ctx, alice, tt.amount, tt.message, tt.txHash)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("duplicate txHash", func(t *testing.T) {
		_, err := env.tips.Record(ctx, alice, "5", "", "tip-tx-1")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.tips.Record(ctx, "ghost", "5", "", "tip-tx-2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTipServiceLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addUser(t, 1001, "alice")
	bob := env.addUser(t, 1002, "bob")
	carol := env.addUser(t, 1003, "carol")

	// alice: 30 total over two tips, bob: 100, carol: 5
	_, err := env.tips.Record(ctx, alice, "10", "", "t1")
	require.NoError(t, err)
	_, err = env.tips.Record(ctx, alice, "20", "", "t2")
	require.NoError(t, err)
	_, err = env.tips.Record(ctx, bob, "100", "", "t3")
	require.NoError(t, err)
	_, err = env.tips.Record(ctx, carol, "5", "", "t4")
	require.NoError(t, err)

	entries, err := env.tips.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, bob, entries[0].UserID)
	assert.Equal(t, "100", entries[0].TotalAmount)
	assert.Equal(t, int64(1), entries[0].TipCount)

	assert.Equal(t, alice, entries[1].UserID)
	assert.Equal(t, "30", entries[1].TotalAmount)
	assert.Equal(t, int64(2), entries[1].TipCount)
}

func TestTipServiceRecentAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addUser(t, 1001, "alice")

	_, err := env.tips.Record(ctx, alice, "1", "first", "t1")
	require.NoError(t, err)
	second, err := env.tips.Record(ctx, alice, "2", "second", "t2")
	require.NoError(t, err)

	recent, err := env.tips.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].ID)

	stats, err := env.tips.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalTips)
	assert.Equal(t, "3", stats.TotalAmount)
}
