package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"warp-ledger/internal/domain"
	"warp-ledger/internal/errors"
)

type accountRepository struct {
	db      SQLExecutor
	dialect dialect
	logger  *slog.Logger
}

func NewAccountRepository(db SQLExecutor, d dialect, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:      db,
		dialect: d,
		logger:  logger,
	}
}

func (r *accountRepository) CreateIfMissing(ctx context.Context, account *domain.Account) (bool, error) {
	query := `
		INSERT INTO accounts (user_id, balance, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, account.UserID, account.Balance, account.CreatedAt.UTC())
	if err != nil {
		r.logger.Error("Failed to create account", "user_id", account.UserID, "error", err)
		return false, errors.Internal("failed to create account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Internal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return false, nil
	}

	r.logger.Info("Account created", "user_id", account.UserID, "balance", account.Balance)
	return true, nil
}

func (r *accountRepository) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	query := `
		SELECT user_id, balance, created_at, last_daily_claim_at
		FROM accounts WHERE user_id = $1
	`

	return r.scanAccount(ctx, query, userID)
}

func (r *accountRepository) GetAccountForUpdate(ctx context.Context, userID string) (*domain.Account, error) {
	query := `
		SELECT user_id, balance, created_at, last_daily_claim_at
		FROM accounts WHERE user_id = $1` + r.dialect.lockSuffix

	return r.scanAccount(ctx, query, userID)
}

func (r *accountRepository) scanAccount(ctx context.Context, query string, userID string) (*domain.Account, error) {
	var account domain.Account
	var createdAt, lastClaim scanTime

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&account.UserID,
		&account.Balance,
		&createdAt,
		&lastClaim,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "user_id", userID)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "user_id", userID, "error", err)
		return nil, errors.Internal("failed to get account", err)
	}

	account.CreatedAt = createdAt.Time
	account.LastDailyClaimAt = lastClaim.Ptr()
	return &account, nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, userID string, newBalance int64) error {
	query := `UPDATE accounts SET balance = $1 WHERE user_id = $2`

	return r.update(ctx, "balance", userID, query, newBalance, userID)
}

func (r *accountRepository) RecordDailyClaim(ctx context.Context, userID string, newBalance int64, claimedAt time.Time) error {
	query := `UPDATE accounts SET balance = $1, last_daily_claim_at = $2 WHERE user_id = $3`

	return r.update(ctx, "daily claim", userID, query, newBalance, claimedAt.UTC(), userID)
}

func (r *accountRepository) update(ctx context.Context, what, userID, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update account", "what", what, "user_id", userID, "error", err)
		return errors.Internal("failed to update account "+what, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "user_id", userID)
		return errors.ErrAccountNotFound
	}

	r.logger.Debug("Account updated", "what", what, "user_id", userID)
	return nil
}

// TopBalances orders by balance, then by account creation order. user_id breaks exact timestamp ties.
func (r *accountRepository) TopBalances(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT user_id, balance
		FROM accounts
		ORDER BY balance DESC, created_at ASC, user_id ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list top balances", "error", err)
		return nil, errors.Internal("failed to list top balances", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Balance); err != nil {
			return nil, errors.Internal("failed to scan leaderboard row", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to iterate leaderboard", err)
	}
	return entries, nil
}

func (r *accountRepository) ListWithoutTransactions(ctx context.Context) ([]domain.Account, error) {
	query := `
		SELECT a.user_id, a.balance, a.created_at, a.last_daily_claim_at
		FROM accounts a
		LEFT JOIN transactions t ON t.user_id = a.user_id
		WHERE t.tx_id IS NULL
		ORDER BY a.created_at ASC, a.user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, errors.Internal("failed to list accounts", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		var createdAt, lastClaim scanTime
		if err := rows.Scan(&account.UserID, &account.Balance, &createdAt, &lastClaim); err != nil {
			return nil, errors.Internal("failed to scan account", err)
		}
		account.CreatedAt = createdAt.Time
		account.LastDailyClaimAt = lastClaim.Ptr()
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to iterate accounts", err)
	}
	return accounts, nil
}
