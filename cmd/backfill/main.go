// Command backfill gives accounts created before the transaction log existed their missing
// starting-balance entry, then reports any account that still does not reconcile.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"warp-ledger/internal/config"
	"warp-ledger/internal/repository"
	"warp-ledger/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Backfill failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := repository.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store := repository.NewStore(db, cfg.DBDriver, logger)
	if err := store.Initialize(ctx); err != nil {
		return err
	}

	reconciliation := service.New(store, cfg.Ledger(), logger).Reconciliation

	count, err := reconciliation.BackfillStartingTransactions(ctx)
	if err != nil {
		return err
	}
	logger.Info("Accounts backfilled", "count", count)

	discrepancies, err := reconciliation.Verify(ctx)
	if err != nil {
		return err
	}
	for _, d := range discrepancies {
		logger.Warn("Account does not reconcile",
			"user_id", d.UserID,
			"balance", d.Balance,
			"ledger_sum", d.LedgerSum,
			"entries", d.EntryCount)
	}
	return nil
}
