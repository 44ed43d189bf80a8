package service

import (
	"context"
	"log/slog"

	"warp-ledger/internal/domain"
	"warp-ledger/internal/repository"
)

// ReconciliationService keeps the ledger a sufficient audit trail for the balances.
type ReconciliationService struct {
	store  *repository.Store
	clock  Clock
	logger *slog.Logger
}

func NewReconciliationService(store *repository.Store, logger *slog.Logger) *ReconciliationService {
	return &ReconciliationService{
		store:  store,
		clock:  systemClock,
		logger: logger,
	}
}

// BackfillStartingTransactions gives every account without ledger entries one entry equal to its stored
// balance, dated at the account's creation. It returns how many accounts were fixed.
// Overlapping runs queue on the accounts lock, so the later one sees the earlier one's entries.
func (s *ReconciliationService) BackfillStartingTransactions(ctx context.Context) (int, error) {
	count := 0
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		if err := tx.LockAccounts(ctx); err != nil {
			return err
		}

		accounts, err := tx.Account().ListWithoutTransactions(ctx)
		if err != nil {
			return err
		}

		for _, account := range accounts {
			createdAt := account.CreatedAt
			if createdAt.IsZero() {
				createdAt = s.clock()
			}
			entry := &domain.Transaction{
				UserID:    account.UserID,
				Amount:    account.Balance,
				Reason:    domain.ReasonStartingBalanceBackfill,
				CreatedAt: createdAt,
			}
			if err := tx.Transaction().Append(ctx, entry); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Backfill failed", "error", err)
		return 0, err
	}

	s.logger.Info("Backfill completed", "accounts_backfilled", count)
	return count, nil
}

// Verify returns every account whose balance differs from the sum of its ledger entries.
func (s *ReconciliationService) Verify(ctx context.Context) ([]domain.AccountTotal, error) {
	totals, err := s.store.Transaction().AccountTotals(ctx)
	if err != nil {
		return nil, err
	}

	discrepancies := make([]domain.AccountTotal, 0)
	for _, t := range totals {
		if !t.Reconciled() {
			discrepancies = append(discrepancies, t)
		}
	}

	if len(discrepancies) > 0 {
		s.logger.Warn("Ledger does not reconcile", "accounts", len(discrepancies))
	}
	return discrepancies, nil
}
