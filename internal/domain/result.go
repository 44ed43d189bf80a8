package domain

// Outcome is embedded in every operation result. A rejected operation has OK false,
// a Code naming the rule it broke and a Message fit to show the user.
type Outcome struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type TransferResult struct {
	Outcome
	FromBalance int64 `json:"from_balance"`
	ToBalance   int64 `json:"to_balance"`
	DebitTxID   int64 `json:"debit_tx_id,omitempty"`
	CreditTxID  int64 `json:"credit_tx_id,omitempty"`
}

type GrantResult struct {
	Outcome
	NewBalance int64 `json:"new_balance"`
	TxID       int64 `json:"tx_id,omitempty"`
}

type SetBalanceResult struct {
	Outcome
	FinalBalance int64 `json:"final_balance"`
	Delta        int64 `json:"delta"`
	TxID         int64 `json:"tx_id,omitempty"`
}

type DailyClaimResult struct {
	Outcome
	Balance          int64 `json:"balance"`
	SecondsRemaining int64 `json:"seconds_remaining"`
	TxID             int64 `json:"tx_id,omitempty"`
}

// AccountTotal compares an account's stored balance with the sum of its ledger entries.
type AccountTotal struct {
	UserID     string `json:"user_id"`
	Balance    int64  `json:"balance"`
	LedgerSum  int64  `json:"ledger_sum"`
	EntryCount int64  `json:"entry_count"`
}

func (t AccountTotal) Reconciled() bool {
	return t.Balance == t.LedgerSum
}
