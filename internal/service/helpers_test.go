package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"warp-ledger/internal/config"
	"warp-ledger/internal/domain"
	"warp-ledger/internal/repository"
)

var testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db       *sql.DB
	store    *repository.Store
	services *Services
	clock    *fakeClock
	rules    config.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "ledger.db")

	ctx := context.Background()
	db, err := repository.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(db, cfg.DBDriver, logger)
	require.NoError(t, store.Initialize(ctx))

	clock := &fakeClock{now: testStart}
	return &testEnv{
		db:       db,
		store:    store,
		services: New(store, cfg.Ledger(), logger).WithClock(clock.Now),
		clock:    clock,
		rules:    cfg.Ledger(),
	}
}

func (e *testEnv) balance(t *testing.T, userID string) int64 {
	t.Helper()
	balance, err := e.services.Queries.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func (e *testEnv) history(t *testing.T, userID string) []domain.Transaction {
	t.Helper()
	txs, err := e.services.Queries.GetRecentTransactions(context.Background(), userID, 1000)
	require.NoError(t, err)
	return txs
}

// requireReconciled checks that every account's balance equals the sum of its ledger entries.
func (e *testEnv) requireReconciled(t *testing.T) {
	t.Helper()
	discrepancies, err := e.services.Reconciliation.Verify(context.Background())
	require.NoError(t, err)
	require.Empty(t, discrepancies)
}
