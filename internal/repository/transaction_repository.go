package repository

import (
	"context"
	"log/slog"

	"warp-ledger/internal/domain"
	"warp-ledger/internal/errors"
)

// transactionRepository only ever inserts and reads. Ledger entries are never updated or deleted.
type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes the entry and stores the assigned tx_id back on it.
func (r *transactionRepository) Append(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING tx_id
	`

	err := r.db.QueryRowContext(ctx, query, tx.UserID, tx.Amount, tx.Reason, tx.CreatedAt.UTC()).Scan(&tx.TxID)
	if err != nil {
		r.logger.Error("Failed to append transaction",
			"user_id", tx.UserID,
			"amount", tx.Amount,
			"reason", tx.Reason,
			"error", err)
		return errors.Internal("failed to append transaction", err)
	}

	r.logger.Info("Transaction appended",
		"tx_id", tx.TxID,
		"user_id", tx.UserID,
		"amount", tx.Amount,
		"reason", tx.Reason)
	return nil
}

func (r *transactionRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT tx_id, user_id, amount, reason, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY tx_id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to list transactions", "user_id", userID, "error", err)
		return nil, errors.Internal("failed to list transactions", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		var tx domain.Transaction
		var createdAt scanTime
		if err := rows.Scan(&tx.TxID, &tx.UserID, &tx.Amount, &tx.Reason, &createdAt); err != nil {
			return nil, errors.Internal("failed to scan transaction", err)
		}
		tx.CreatedAt = createdAt.Time
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to iterate transactions", err)
	}
	return txs, nil
}

func (r *transactionRepository) AccountTotals(ctx context.Context) ([]domain.AccountTotal, error) {
	query := `
		SELECT a.user_id, a.balance, COALESCE(SUM(t.amount), 0), COUNT(t.tx_id)
		FROM accounts a
		LEFT JOIN transactions t ON t.user_id = a.user_id
		GROUP BY a.user_id, a.balance, a.created_at
		ORDER BY a.created_at ASC, a.user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to total accounts", "error", err)
		return nil, errors.Internal("failed to total accounts", err)
	}
	defer rows.Close()

	var totals []domain.AccountTotal
	for rows.Next() {
		var t domain.AccountTotal
		if err := rows.Scan(&t.UserID, &t.Balance, &t.LedgerSum, &t.EntryCount); err != nil {
			return nil, errors.Internal("failed to scan account total", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to iterate account totals", err)
	}
	return totals, nil
}
