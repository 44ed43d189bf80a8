package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"warp-ledger/internal/domain"
	"warp-ledger/internal/errors"
	"warp-ledger/internal/service"
)

// AdminHandler serves the moderator commands: grants, balance overrides and ledger maintenance.
type AdminHandler struct {
	transactions   *service.TransactionService
	reconciliation *service.ReconciliationService
}

func NewAdminHandler(transactions *service.TransactionService, reconciliation *service.ReconciliationService) *AdminHandler {
	return &AdminHandler{
		transactions:   transactions,
		reconciliation: reconciliation,
	}
}

type GrantRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type SetBalanceRequest struct {
	Balance *int64 `json:"balance"`
	Reason  string `json:"reason,omitempty"`
}

type BackfillResponse struct {
	AccountsBackfilled int `json:"accounts_backfilled"`
}

type ReconciliationResponse struct {
	Reconciled    bool                  `json:"reconciled"`
	Discrepancies []domain.AccountTotal `json:"discrepancies"`
}

func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var req GrantRequest
	if appErr := decodeBody(r, &req); appErr != nil {
		WriteError(w, appErr)
		return
	}

	result, err := h.transactions.Grant(r.Context(), userID, req.Amount, req.Reason)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeOutcome(w, http.StatusCreated, result.Outcome, result)
}

func (h *AdminHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var req SetBalanceRequest
	if appErr := decodeBody(r, &req); appErr != nil {
		WriteError(w, appErr)
		return
	}
	if req.Balance == nil {
		WriteError(w, errors.NewAppError(errors.InvalidInput, "balance is required"))
		return
	}

	result, err := h.transactions.SetBalance(r.Context(), userID, *req.Balance, req.Reason)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeOutcome(w, http.StatusOK, result.Outcome, result)
}

func (h *AdminHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	count, err := h.reconciliation.BackfillStartingTransactions(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BackfillResponse{AccountsBackfilled: count})
}

func (h *AdminHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := h.reconciliation.Verify(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReconciliationResponse{
		Reconciled:    len(discrepancies) == 0,
		Discrepancies: discrepancies,
	})
}
