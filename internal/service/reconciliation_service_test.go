package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warp-ledger/internal/config"
	"warp-ledger/internal/domain"
	"warp-ledger/internal/repository"
)

// insertLegacyAccount writes an account the way the bot did before the transaction log existed.
func insertLegacyAccount(t *testing.T, env *testEnv, userID string, balance int64) {
	t.Helper()
	_, err := env.db.Exec(
		`INSERT INTO accounts (user_id, balance, created_at) VALUES ($1, $2, $3)`,
		userID, balance, testStart,
	)
	require.NoError(t, err)
}

func TestBackfillStartingTransactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.services.Accounts.EnsureAccount(ctx, "modern"))
	insertLegacyAccount(t, env, "legacy1", 420)
	insertLegacyAccount(t, env, "legacy2", 0)

	discrepancies, err := env.services.Reconciliation.Verify(ctx)
	require.NoError(t, err)
	assert.Len(t, discrepancies, 1)
	assert.Equal(t, "legacy1", discrepancies[0].UserID)

	count, err := env.services.Reconciliation.BackfillStartingTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	history := env.history(t, "legacy1")
	require.Len(t, history, 1)
	assert.Equal(t, int64(420), history[0].Amount)
	assert.Equal(t, domain.ReasonStartingBalanceBackfill, history[0].Reason)
	assert.True(t, history[0].CreatedAt.Equal(testStart))

	assert.Len(t, env.history(t, "modern"), 1)
	env.requireReconciled(t)

	again, err := env.services.Reconciliation.BackfillStartingTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestBackfillStartingTransactions_EmptyStore(t *testing.T) {
	env := newTestEnv(t)

	count, err := env.services.Reconciliation.BackfillStartingTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestVerify_ReportsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.services.Accounts.EnsureAccount(ctx, "u1"))
	_, err := env.db.Exec(`UPDATE accounts SET balance = 999 WHERE user_id = 'u1'`)
	require.NoError(t, err)

	discrepancies, err := env.services.Reconciliation.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, discrepancies, 1)
	assert.Equal(t, domain.AccountTotal{UserID: "u1", Balance: 999, LedgerSum: 1000, EntryCount: 1}, discrepancies[0])
}

func TestBackfillStartingTransactions_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	insertLegacyAccount(t, env, "legacy1", 420)
	insertLegacyAccount(t, env, "legacy2", 75)

	const runs = 6
	counts := make([]int, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i], errs[i] = env.services.Reconciliation.BackfillStartingTransactions(ctx)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		total += counts[i]
	}
	assert.Equal(t, 2, total)
	assert.Len(t, env.history(t, "legacy1"), 1)
	assert.Len(t, env.history(t, "legacy2"), 1)
	env.requireReconciled(t)
}

func TestBackfillStartingTransactions_LocksAccountsOnPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(db, config.DriverPostgres, logger)
	reconciliation := NewReconciliationService(store, logger)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE accounts IN SHARE ROW EXCLUSIVE MODE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("LEFT JOIN transactions").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "created_at", "last_daily_claim_at"}).
			AddRow("legacy", 420, testStart, nil))
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs("legacy", int64(420), domain.ReasonStartingBalanceBackfill, testStart).
		WillReturnRows(sqlmock.NewRows([]string{"tx_id"}).AddRow(7))
	mock.ExpectCommit()

	count, err := reconciliation.BackfillStartingTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
