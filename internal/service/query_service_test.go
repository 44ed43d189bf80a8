package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warp-ledger/internal/domain"
)

func TestGetRecentTransactions_NewestFirstWithLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, amount := range []int64{10, 20, 30} {
		_, err := env.services.Transactions.Grant(ctx, "u1", amount, "")
		require.NoError(t, err)
	}

	txs, err := env.services.Queries.GetRecentTransactions(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(30), txs[0].Amount)
	assert.Equal(t, int64(20), txs[1].Amount)
	assert.Greater(t, txs[0].TxID, txs[1].TxID)

	all, err := env.services.Queries.GetRecentTransactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, domain.ReasonStartingBalance, all[3].Reason)
}

func TestGetRecentTransactions_OrderedBySequenceNotClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.services.Transactions.Grant(ctx, "u1", 1, "")
	require.NoError(t, err)
	env.clock.Advance(-time.Hour)
	_, err = env.services.Transactions.Grant(ctx, "u1", 2, "")
	require.NoError(t, err)

	txs, err := env.services.Queries.GetRecentTransactions(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(2), txs[0].Amount)
}

func TestTopBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// zed is created before amy, so it wins the tie despite sorting later by id.
	for _, user := range []string{"zed", "amy", "bob"} {
		require.NoError(t, env.services.Accounts.EnsureAccount(ctx, user))
		env.clock.Advance(time.Second)
	}
	_, err := env.services.Transactions.Grant(ctx, "bob", 500, "")
	require.NoError(t, err)

	top, err := env.services.Queries.TopBalances(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.LeaderboardEntry{
		{UserID: "bob", Balance: 1500},
		{UserID: "zed", Balance: 1000},
		{UserID: "amy", Balance: 1000},
	}, top)

	limited, err := env.services.Queries.TopBalances(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestQueries_NonPositiveLimitReturnsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.services.Accounts.EnsureAccount(ctx, "a"))
	require.NoError(t, env.services.Accounts.EnsureAccount(ctx, "b"))

	for _, limit := range []int{0, -3} {
		txs, err := env.services.Queries.GetRecentTransactions(ctx, "a", limit)
		require.NoError(t, err)
		assert.Empty(t, txs)
		assert.NotNil(t, txs)

		top, err := env.services.Queries.TopBalances(ctx, limit)
		require.NoError(t, err)
		assert.Empty(t, top)
		assert.NotNil(t, top)
	}

	// a zero limit still provisions the account
	txs, err := env.services.Queries.GetRecentTransactions(ctx, "d", 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Len(t, env.history(t, "d"), 1)
}

func TestQueries_LargeLimitIsNotCapped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		_, err := env.services.Transactions.Grant(ctx, "a", 1, "")
		require.NoError(t, err)
	}

	txs, err := env.services.Queries.GetRecentTransactions(ctx, "a", 500)
	require.NoError(t, err)
	assert.Len(t, txs, 121)
}
