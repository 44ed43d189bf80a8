package handler

import (
	"net/http"

	"warp-ledger/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
}

func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

type TransferRequest struct {
	FromUserID UserID `json:"from_user_id"`
	ToUserID   UserID `json:"to_user_id"`
	Amount     int64  `json:"amount"`
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if appErr := decodeBody(r, &req); appErr != nil {
		WriteError(w, appErr)
		return
	}

	result, err := h.transactionService.Transfer(r.Context(), string(req.FromUserID), string(req.ToUserID), req.Amount)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeOutcome(w, http.StatusCreated, result.Outcome, result)
}
