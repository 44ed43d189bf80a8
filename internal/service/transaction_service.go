package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"warp-ledger/internal/config"
	"warp-ledger/internal/domain"
	"warp-ledger/internal/errors"
	"warp-ledger/internal/repository"
)

// TransactionService moves money. Each operation ensures its accounts, then re-reads balances and applies
// its mutations and ledger entries inside one write transaction. Rule violations come back as results
// with OK false; only storage failures are returned as errors.
type TransactionService struct {
	store    *repository.Store
	accounts *AccountService
	rules    config.Ledger
	logger   *slog.Logger
}

func NewTransactionService(store *repository.Store, accounts *AccountService, rules config.Ledger, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:    store,
		accounts: accounts,
		rules:    rules,
		logger:   logger,
	}
}

func (s *TransactionService) now() time.Time {
	return s.accounts.clock()
}

func (s *TransactionService) Transfer(ctx context.Context, fromID, toID string, amount int64) (domain.TransferResult, error) {
	s.logger.Info("Processing transfer", "from_user_id", fromID, "to_user_id", toID, "amount", amount)

	if err := s.accounts.EnsureAccount(ctx, fromID); err != nil {
		return domain.TransferResult{}, err
	}
	if err := s.accounts.EnsureAccount(ctx, toID); err != nil {
		return domain.TransferResult{}, err
	}

	var result domain.TransferResult
	if amount <= 0 || fromID == toID {
		reason := errors.ErrNonPositiveTransfer
		if amount > 0 {
			reason = errors.ErrSelfTransfer
		}
		if err := s.readPair(ctx, &result, fromID, toID); err != nil {
			return domain.TransferResult{}, err
		}
		return s.rejectTransfer(result, reason), nil
	}

	now := s.now()
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		from, to, err := lockPair(ctx, tx, fromID, toID)
		if err != nil {
			return err
		}
		result.FromBalance, result.ToBalance = from.Balance, to.Balance

		if from.Balance < amount {
			return errors.ErrInsufficientFunds
		}
		if to.Balance > math.MaxInt64-amount {
			return errors.ErrAmountTooLarge
		}

		newFrom, newTo := from.Balance-amount, to.Balance+amount
		if err := tx.Account().UpdateBalance(ctx, fromID, newFrom); err != nil {
			return err
		}
		if err := tx.Account().UpdateBalance(ctx, toID, newTo); err != nil {
			return err
		}

		debit := &domain.Transaction{UserID: fromID, Amount: -amount, Reason: domain.TransferToReason(toID), CreatedAt: now}
		if err := tx.Transaction().Append(ctx, debit); err != nil {
			return err
		}
		credit := &domain.Transaction{UserID: toID, Amount: amount, Reason: domain.TransferFromReason(fromID), CreatedAt: now}
		if err := tx.Transaction().Append(ctx, credit); err != nil {
			return err
		}

		result.FromBalance, result.ToBalance = newFrom, newTo
		result.DebitTxID, result.CreditTxID = debit.TxID, credit.TxID
		return nil
	})
	if rejection, ok := asRejection(err); ok {
		return s.rejectTransfer(result, rejection), nil
	}
	if err != nil {
		s.logger.Error("Transfer failed", "from_user_id", fromID, "to_user_id", toID, "error", err)
		return domain.TransferResult{}, err
	}

	result.Outcome = accepted("Transfer complete.")
	s.logger.Info("Transfer completed",
		"from_user_id", fromID,
		"to_user_id", toID,
		"amount", amount,
		"debit_tx_id", result.DebitTxID,
		"credit_tx_id", result.CreditTxID)
	return result, nil
}

func (s *TransactionService) rejectTransfer(result domain.TransferResult, reason *errors.AppError) domain.TransferResult {
	s.logger.Info("Transfer rejected", "code", reason.Code)
	result.Outcome = rejected(reason)
	return result
}

// readPair fills in the current balances for a transfer that is rejected before any lock is taken.
func (s *TransactionService) readPair(ctx context.Context, result *domain.TransferResult, fromID, toID string) error {
	from, err := s.store.Account().GetAccount(ctx, fromID)
	if err != nil {
		return err
	}
	to, err := s.store.Account().GetAccount(ctx, toID)
	if err != nil {
		return err
	}
	result.FromBalance, result.ToBalance = from.Balance, to.Balance
	return nil
}

// lockPair reads both accounts for update in a fixed order so two opposite transfers cannot deadlock.
func lockPair(ctx context.Context, tx *repository.Store, a, b string) (*domain.Account, *domain.Account, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	firstAcc, err := tx.Account().GetAccountForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	secondAcc, err := tx.Account().GetAccountForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == a {
		return firstAcc, secondAcc, nil
	}
	return secondAcc, firstAcc, nil
}

// Grant applies a signed adjustment. Negative amounts act as penalties and may not overdraw the account.
func (s *TransactionService) Grant(ctx context.Context, userID string, amount int64, reason string) (domain.GrantResult, error) {
	if reason == "" {
		reason = domain.ReasonAdminGrant
	}
	s.logger.Info("Processing grant", "user_id", userID, "amount", amount, "reason", reason)

	if err := s.accounts.EnsureAccount(ctx, userID); err != nil {
		return domain.GrantResult{}, err
	}

	var result domain.GrantResult
	if amount == 0 {
		account, err := s.store.Account().GetAccount(ctx, userID)
		if err != nil {
			return domain.GrantResult{}, err
		}
		result.NewBalance = account.Balance
		result.Outcome = rejected(errors.ErrZeroGrant)
		return result, nil
	}

	now := s.now()
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		account, err := tx.Account().GetAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		result.NewBalance = account.Balance

		if amount > 0 && account.Balance > math.MaxInt64-amount {
			return errors.ErrAmountTooLarge
		}
		newBalance := account.Balance + amount
		if newBalance < 0 {
			return errors.ErrBelowZero
		}

		if err := tx.Account().UpdateBalance(ctx, userID, newBalance); err != nil {
			return err
		}
		entry := &domain.Transaction{UserID: userID, Amount: amount, Reason: reason, CreatedAt: now}
		if err := tx.Transaction().Append(ctx, entry); err != nil {
			return err
		}

		result.NewBalance = newBalance
		result.TxID = entry.TxID
		return nil
	})
	if rejection, ok := asRejection(err); ok {
		s.logger.Info("Grant rejected", "user_id", userID, "code", rejection.Code)
		result.Outcome = rejected(rejection)
		return result, nil
	}
	if err != nil {
		s.logger.Error("Grant failed", "user_id", userID, "error", err)
		return domain.GrantResult{}, err
	}

	result.Outcome = accepted("Granted.")
	return result, nil
}

// SetBalance overwrites the balance and logs the difference, even when it is zero, so the ledger still reconciles.
func (s *TransactionService) SetBalance(ctx context.Context, userID string, newBalance int64, reason string) (domain.SetBalanceResult, error) {
	if reason == "" {
		reason = domain.ReasonAdminSetBalance
	}
	s.logger.Info("Processing set balance", "user_id", userID, "new_balance", newBalance, "reason", reason)

	if err := s.accounts.EnsureAccount(ctx, userID); err != nil {
		return domain.SetBalanceResult{}, err
	}

	var result domain.SetBalanceResult
	if newBalance < 0 {
		account, err := s.store.Account().GetAccount(ctx, userID)
		if err != nil {
			return domain.SetBalanceResult{}, err
		}
		result.FinalBalance = account.Balance
		result.Outcome = rejected(errors.ErrNegativeTarget)
		return result, nil
	}

	now := s.now()
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		account, err := tx.Account().GetAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		delta := newBalance - account.Balance
		if err := tx.Account().UpdateBalance(ctx, userID, newBalance); err != nil {
			return err
		}
		entry := &domain.Transaction{UserID: userID, Amount: delta, Reason: reason, CreatedAt: now}
		if err := tx.Transaction().Append(ctx, entry); err != nil {
			return err
		}

		result.FinalBalance = newBalance
		result.Delta = delta
		result.TxID = entry.TxID
		return nil
	})
	if err != nil {
		s.logger.Error("Set balance failed", "user_id", userID, "error", err)
		return domain.SetBalanceResult{}, err
	}

	result.Outcome = accepted("Balance set.")
	return result, nil
}

// ClaimDaily pays the daily dividend once per cooldown window. A claim at exactly last+cooldown is allowed.
func (s *TransactionService) ClaimDaily(ctx context.Context, userID string) (domain.DailyClaimResult, error) {
	if err := s.accounts.EnsureAccount(ctx, userID); err != nil {
		return domain.DailyClaimResult{}, err
	}

	var result domain.DailyClaimResult
	now := s.now()
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		account, err := tx.Account().GetAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		result.Balance = account.Balance

		if account.LastDailyClaimAt != nil {
			next := account.LastDailyClaimAt.Add(s.rules.DailyCooldown)
			if now.Before(next) {
				result.SecondsRemaining = ceilSeconds(next.Sub(now))
				return errors.ErrAlreadyClaimed
			}
		}
		if account.Balance > math.MaxInt64-s.rules.DailyAmount {
			return errors.ErrAmountTooLarge
		}

		newBalance := account.Balance + s.rules.DailyAmount
		if err := tx.Account().RecordDailyClaim(ctx, userID, newBalance, now); err != nil {
			return err
		}
		entry := &domain.Transaction{UserID: userID, Amount: s.rules.DailyAmount, Reason: domain.ReasonDailyDividends, CreatedAt: now}
		if err := tx.Transaction().Append(ctx, entry); err != nil {
			return err
		}

		result.Balance = newBalance
		result.TxID = entry.TxID
		return nil
	})
	if rejection, ok := asRejection(err); ok {
		s.logger.Info("Daily claim rejected", "user_id", userID, "seconds_remaining", result.SecondsRemaining)
		result.Outcome = rejected(rejection)
		return result, nil
	}
	if err != nil {
		s.logger.Error("Daily claim failed", "user_id", userID, "error", err)
		return domain.DailyClaimResult{}, err
	}

	result.SecondsRemaining = 0
	result.Outcome = accepted("Dividends paid.")
	s.logger.Info("Daily claim paid", "user_id", userID, "balance", result.Balance)
	return result, nil
}

func ceilSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func accepted(message string) domain.Outcome {
	return domain.Outcome{OK: true, Message: message}
}

func rejected(reason *errors.AppError) domain.Outcome {
	return domain.Outcome{OK: false, Code: string(reason.Code), Message: reason.Message}
}

func asRejection(err error) (*errors.AppError, bool) {
	if err == nil {
		return nil, false
	}
	appErr, ok := errors.As(err)
	if !ok || !appErr.IsRejection() {
		return nil, false
	}
	return appErr, true
}
