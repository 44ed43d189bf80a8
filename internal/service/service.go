package service

import (
	"log/slog"

	"warp-ledger/internal/config"
	"warp-ledger/internal/repository"
)

// Services wires the ledger services over one store.
type Services struct {
	Accounts       *AccountService
	Transactions   *TransactionService
	Queries        *QueryService
	Reconciliation *ReconciliationService
}

func New(store *repository.Store, rules config.Ledger, logger *slog.Logger) *Services {
	accounts := NewAccountService(store, rules, logger)
	return &Services{
		Accounts:       accounts,
		Transactions:   NewTransactionService(store, accounts, rules, logger),
		Queries:        NewQueryService(store, accounts, logger),
		Reconciliation: NewReconciliationService(store, logger),
	}
}

// WithClock sets the time source for every service.
func (s *Services) WithClock(clock Clock) *Services {
	s.Accounts.WithClock(clock)
	s.Reconciliation.clock = clock
	return s
}
