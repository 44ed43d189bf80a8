package domain

import (
	"context"
	"time"
)

type Account struct {
	UserID           string     `json:"user_id"`
	Balance          int64      `json:"balance"`
	CreatedAt        time.Time  `json:"created_at"`
	LastDailyClaimAt *time.Time `json:"last_daily_claim_at,omitempty"`
}

type LeaderboardEntry struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

type AccountRepository interface {
	// CreateIfMissing inserts the account unless it exists and reports whether it was created.
	CreateIfMissing(ctx context.Context, account *Account) (bool, error)
	GetAccount(ctx context.Context, userID string) (*Account, error)
	GetAccountForUpdate(ctx context.Context, userID string) (*Account, error)
	UpdateBalance(ctx context.Context, userID string, newBalance int64) error
	RecordDailyClaim(ctx context.Context, userID string, newBalance int64, claimedAt time.Time) error
	TopBalances(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	ListWithoutTransactions(ctx context.Context) ([]Account, error)
}
