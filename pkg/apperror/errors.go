package apperror

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

func ErrAmountOutOfRange(min, max decimal.Decimal) *AppError {
	return New("VAL_001",
		fmt.Sprintf("Amount must be between $%s and $%s", min.StringFixed(2), max.StringFixed(2)),
		http.StatusBadRequest)
}

func ErrUnknownCurrency(symbol string) *AppError {
	return New("VAL_002", fmt.Sprintf("Unsupported currency: %s", symbol), http.StatusBadRequest)
}

// Validation returns a generic VAL_003 validation error.
func Validation(message string) *AppError {
	return New("VAL_003", message, http.StatusBadRequest)
}

// ---- Orders (ORD) ----

func ErrOrderNotFound() *AppError {
	return New("ORD_001", "Order not found", http.StatusNotFound)
}

func ErrTerminalState(status string) *AppError {
	return New("ORD_002", fmt.Sprintf("Order is already %s", status), http.StatusConflict)
}

func ErrOrderExpired() *AppError {
	return New("ORD_003", "Order expired, the quote lock has lapsed", http.StatusGone)
}

// ---- Payments & Ledger (PAY) ----

func ErrInsufficientFunds(shortfall decimal.Decimal) *AppError {
	return New("PAY_001",
		fmt.Sprintf("Insufficient balance: $%s short", shortfall.StringFixed(2)),
		http.StatusPaymentRequired)
}

func ErrUserNotFound() *AppError {
	return New("PAY_002", "User not found", http.StatusNotFound)
}

func ErrProductNotFound() *AppError {
	return New("PAY_003", "Product not found", http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error. The message stays generic: store
// failures are retryable by the caller and never leak storage details.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal error, please try again", http.StatusInternalServerError, err)
}
