package service

import (
	"context"
	"log/slog"

	"warp-ledger/internal/domain"
	"warp-ledger/internal/repository"
)

// QueryService serves read-only views. Nothing is cached; every call reads the store.
type QueryService struct {
	store    *repository.Store
	accounts *AccountService
	logger   *slog.Logger
}

func NewQueryService(store *repository.Store, accounts *AccountService, logger *slog.Logger) *QueryService {
	return &QueryService{
		store:    store,
		accounts: accounts,
		logger:   logger,
	}
}

func (s *QueryService) GetBalance(ctx context.Context, userID string) (int64, error) {
	if err := s.accounts.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}

	account, err := s.store.Account().GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// GetRecentTransactions returns up to limit entries for the user, newest first by tx_id.
// A limit of zero or less returns no entries.
func (s *QueryService) GetRecentTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	if err := s.accounts.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []domain.Transaction{}, nil
	}

	return s.store.Transaction().ListRecentByUser(ctx, userID, limit)
}

// TopBalances returns up to limit of the richest accounts. Equal balances keep account creation order.
func (s *QueryService) TopBalances(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	return s.store.Account().TopBalances(ctx, limit)
}
