package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput      ErrorCode = "invalid_input"
	InvalidAmount     ErrorCode = "invalid_amount"
	SelfTransfer      ErrorCode = "self_transfer"
	InsufficientFunds ErrorCode = "insufficient_funds"
	NegativeBalance   ErrorCode = "negative_balance"
	CooldownActive    ErrorCode = "cooldown_active"
	AccountNotFound   ErrorCode = "account_not_found"
	Unauthorized      ErrorCode = "unauthorized"
	InternalError     ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy so that shared sentinels are never mutated.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// HTTPStatus maps an error code to the status the HTTP layer answers with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount, SelfTransfer:
		return http.StatusUnprocessableEntity
	case InsufficientFunds, NegativeBalance:
		return http.StatusConflict
	case CooldownActive:
		return http.StatusTooManyRequests
	case AccountNotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// IsRejection reports whether the code describes a domain rejection rather than a storage fault.
func (e *AppError) IsRejection() bool {
	switch e.Code {
	case InvalidAmount, SelfTransfer, InsufficientFunds, NegativeBalance, CooldownActive:
		return true
	}
	return false
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Internal wraps a storage-layer failure.
func Internal(message string, err error) *AppError {
	return NewAppError(InternalError, message).WithDetails(err.Error())
}

// Predefined errors for common cases
var (
	ErrInvalidUserID       = NewAppError(InvalidInput, "user id must not be empty")
	ErrAccountNotFound     = NewAppError(AccountNotFound, "account not found")
	ErrUnauthorized        = NewAppError(Unauthorized, "admin token required")
	ErrNonPositiveTransfer = NewAppError(InvalidAmount, "Amount must be a positive number.")
	ErrSelfTransfer        = NewAppError(SelfTransfer, "You cannot pay yourself.")
	ErrInsufficientFunds   = NewAppError(InsufficientFunds, "Insufficient Warp Stones.")
	ErrZeroGrant           = NewAppError(InvalidAmount, "Amount must not be zero.")
	ErrBelowZero           = NewAppError(NegativeBalance, "That would put the balance below zero.")
	ErrNegativeTarget      = NewAppError(NegativeBalance, "Balance cannot be negative.")
	ErrAlreadyClaimed      = NewAppError(CooldownActive, "Dividends already claimed.")
	ErrAmountTooLarge      = NewAppError(InvalidAmount, "Amount is too large.")
)
