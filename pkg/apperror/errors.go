package apperror

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"` // Wrapped internal error (not exposed to client)
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

// WithDetails attaches client-visible detail fields.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
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

// ---- Security & Authentication (SEC) ----

func ErrInvalidAPIKey() *AppError {
	return New("SEC_001", "Invalid or missing API key", http.StatusUnauthorized)
}

func ErrMissingSignature() *AppError {
	return New("SEC_002", "Missing signature", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_003", "Invalid signature", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("SEC_004", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("SEC_005", "Insufficient permissions", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrAccountLocked() *AppError {
	return New("AUTH_002", "Customer account is locked", http.StatusForbidden)
}

// ---- Wallet Business Logic (WAL) ----

// ErrInsufficientFunds carries the balance detail the POS shows to the cashier.
func ErrInsufficientFunds(balance, requested decimal.Decimal) *AppError {
	return New("WAL_001", "Insufficient wallet balance", http.StatusBadRequest).WithDetails(map[string]any{
		"current_balance": balance.StringFixed(2),
		"requested":       requested.StringFixed(2),
		"shortfall":       requested.Sub(balance).StringFixed(2),
	})
}

func ErrInvalidAmount() *AppError {
	return New("WAL_002", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrAmountPrecision() *AppError {
	return New("WAL_002", "Amount cannot have more than 2 decimal places", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("WAL_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrWalletLocked() *AppError {
	return New("WAL_004", "Customer wallet is locked", http.StatusForbidden)
}

func ErrOrderNotPayable() *AppError {
	return New("WAL_005", "Order is not awaiting payment", http.StatusConflict)
}

func ErrQRDisabled() *AppError {
	return New("WAL_006", "QR payments are not enabled", http.StatusForbidden)
}

func ErrQRInvalid() *AppError {
	return New("WAL_007", "Invalid or unrecognized QR code", http.StatusBadRequest)
}

func ErrQRExpired() *AppError {
	return New("WAL_008", "QR code has expired", http.StatusBadRequest)
}

// Validation returns a WAL_002-style validation error.
func Validation(message string) *AppError {
	return New("WAL_002", message, http.StatusBadRequest)
}

// ---- Remote POS (POS) ----

func ErrNotConfigured() *AppError {
	return New("POS_001", "POS integration is not configured", http.StatusInternalServerError)
}

// ErrRemoteUnavailable is what end users see when the POS cannot be reached.
func ErrRemoteUnavailable(err error) *AppError {
	return Wrap("POS_002", "Wallet service is temporarily unavailable, please try again", http.StatusBadGateway, err)
}

func ErrRemoteRejected(message string, err error) *AppError {
	return Wrap("POS_003", message, http.StatusBadGateway, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
