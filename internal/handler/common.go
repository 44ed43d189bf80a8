package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"warp-ledger/internal/domain"
	"warp-ledger/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// UserID accepts both JSON strings and numbers, since chat platforms hand out numeric snowflakes.
type UserID string

func (u *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*u = UserID(n.String())
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func WriteError(w http.ResponseWriter, appErr *errors.AppError) {
	writeErrorWithData(w, appErr, nil)
}

func writeErrorWithData(w http.ResponseWriter, appErr *errors.AppError, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Data: data, Error: &errResponse})
}

// writeFailure answers a service error. Storage details are not leaked to callers.
func writeFailure(w http.ResponseWriter, err error) {
	if appErr, ok := errors.As(err); ok && appErr.Code != errors.InternalError {
		WriteError(w, appErr)
		return
	}
	WriteError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred"))
}

// writeOutcome answers an operation result: successStatus when it went through, otherwise the
// rejection's status with the result still attached so callers can show balances or cooldowns.
func writeOutcome(w http.ResponseWriter, successStatus int, outcome domain.Outcome, data interface{}) {
	if outcome.OK {
		writeJSON(w, successStatus, data)
		return
	}
	writeErrorWithData(w, errors.NewAppError(errors.ErrorCode(outcome.Code), outcome.Message), data)
}

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// queryLimit reads ?limit=. A missing value means DefaultListLimit; values outside 0..MaxListLimit are rejected.
func queryLimit(r *http.Request) (int, *errors.AppError) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 || limit > MaxListLimit {
		return 0, errors.NewAppError(errors.InvalidInput, fmt.Sprintf("limit must be an integer between 0 and %d", MaxListLimit))
	}
	return limit, nil
}

func decodeBody(r *http.Request, dst interface{}) *errors.AppError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	return nil
}
