package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"warp-ledger/internal/config"
	"warp-ledger/internal/domain"
	"warp-ledger/internal/errors"
	"warp-ledger/internal/repository"
)

// Clock returns the current time. Services take one so tests can move time forward.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// AccountService provisions accounts lazily. Every other service calls EnsureAccount before touching an account.
type AccountService struct {
	store  *repository.Store
	rules  config.Ledger
	clock  Clock
	logger *slog.Logger
}

func NewAccountService(store *repository.Store, rules config.Ledger, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		rules:  rules,
		clock:  systemClock,
		logger: logger,
	}
}

// WithClock replaces the time source.
func (s *AccountService) WithClock(clock Clock) *AccountService {
	s.clock = clock
	return s
}

// EnsureAccount creates the account with the starting balance and its genesis entry unless it already exists.
func (s *AccountService) EnsureAccount(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	if _, err := s.store.Account().GetAccount(ctx, userID); err == nil {
		return nil
	} else if appErr, ok := errors.As(err); !ok || appErr.Code != errors.AccountNotFound {
		return err
	}

	return s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		return s.ensureIn(ctx, tx, userID)
	})
}

// ensureIn does the insert on a transaction-bound store. ON CONFLICT makes the second of two racing
// callers a no-op, so exactly one genesis entry is written.
func (s *AccountService) ensureIn(ctx context.Context, tx *repository.Store, userID string) error {
	now := s.clock()
	account := &domain.Account{
		UserID:    userID,
		Balance:   s.rules.StartingBalance,
		CreatedAt: now,
	}

	created, err := tx.Account().CreateIfMissing(ctx, account)
	if err != nil || !created {
		return err
	}

	genesis := &domain.Transaction{
		UserID:    userID,
		Amount:    s.rules.StartingBalance,
		Reason:    domain.ReasonStartingBalance,
		CreatedAt: now,
	}
	if err := tx.Transaction().Append(ctx, genesis); err != nil {
		return err
	}

	s.logger.Info("Account provisioned", "user_id", userID, "starting_balance", s.rules.StartingBalance)
	return nil
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.ErrInvalidUserID
	}
	return nil
}
