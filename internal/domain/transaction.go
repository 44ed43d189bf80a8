package domain

import (
	"context"
	"time"
)

// Reason tags written to the ledger.
const (
	ReasonStartingBalance         = "starting_balance"
	ReasonStartingBalanceBackfill = "starting_balance_backfill"
	ReasonDailyDividends          = "daily_dividends"
	ReasonAdminGrant              = "admin_grant"
	ReasonAdminSetBalance         = "admin_set_balance"
)

func TransferToReason(userID string) string   { return "transfer_to:" + userID }
func TransferFromReason(userID string) string { return "transfer_from:" + userID }

// Transaction is one immutable ledger entry. TxID is assigned by the store.
type Transaction struct {
	TxID      int64     `json:"tx_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type TransactionRepository interface {
	Append(ctx context.Context, tx *Transaction) error
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]Transaction, error)
	// AccountTotals reads every account with its ledger sum in a single statement.
	AccountTotals(ctx context.Context) ([]AccountTotal, error)
}
