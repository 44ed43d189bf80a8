package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"warp-ledger/internal/service"
)

type AccountHandler struct {
	queries      *service.QueryService
	transactions *service.TransactionService
}

func NewAccountHandler(queries *service.QueryService, transactions *service.TransactionService) *AccountHandler {
	return &AccountHandler{
		queries:      queries,
		transactions: transactions,
	}
}

type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

type TransactionResponse struct {
	TxID      int64     `json:"tx_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	balance, err := h.queries.GetBalance(r.Context(), userID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{UserID: userID, Balance: balance})
}

func (h *AccountHandler) GetRecentTransactions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	limit, appErr := queryLimit(r)
	if appErr != nil {
		WriteError(w, appErr)
		return
	}

	txs, err := h.queries.GetRecentTransactions(r.Context(), userID, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}

	response := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		response = append(response, TransactionResponse{
			TxID:      tx.TxID,
			Amount:    tx.Amount,
			Reason:    tx.Reason,
			CreatedAt: tx.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *AccountHandler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	result, err := h.transactions.ClaimDaily(r.Context(), userID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeOutcome(w, http.StatusOK, result.Outcome, result)
}

func (h *AccountHandler) TopBalances(w http.ResponseWriter, r *http.Request) {
	limit, appErr := queryLimit(r)
	if appErr != nil {
		WriteError(w, appErr)
		return
	}

	entries, err := h.queries.TopBalances(r.Context(), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
