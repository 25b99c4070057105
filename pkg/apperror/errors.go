package apperror

import (
	"errors"
	"fmt"
	"net/http"
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

// Error codes.
const (
	CodeValidation          = "VAL_001"
	CodeInvalidRequest      = "REQ_001"
	CodeNotFound            = "NF_001"
	CodeDuplicateName       = "CUS_001"
	CodeInvalidCustomer     = "CUS_002"
	CodeInsufficientBalance = "WAL_001"
	CodeSelfTransfer        = "WAL_002"
	CodeReceiverNotFound    = "WAL_003"
	CodeStoreFailure        = "SYS_001"
	CodeInvalidCredentials  = "AUTH_001"
	CodeIdentifierExists    = "AUTH_002"
	CodeInvalidToken        = "AUTH_003"
	CodeRateLimitExceeded   = "RATE_001"
)

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Input (VAL / REQ) ----

// Validation is returned for malformed ledger input (amount, type, name).
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ErrInvalidRequest is returned for malformed wallet input.
func ErrInvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Customers (CUS) ----

func ErrDuplicateName() *AppError {
	return New(CodeDuplicateName, "Customer with this name already exists", http.StatusConflict)
}

func ErrInvalidCustomer() *AppError {
	return New(CodeInvalidCustomer, "Invalid customer reference", http.StatusBadRequest)
}

// ---- Wallet (WAL) ----

func ErrInsufficientBalance() *AppError {
	return New(CodeInsufficientBalance, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrSelfTransfer() *AppError {
	return New(CodeSelfTransfer, "Cannot send money to yourself", http.StatusBadRequest)
}

func ErrReceiverNotFound() *AppError {
	return New(CodeReceiverNotFound, "Receiver not found", http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrIdentifierExists() *AppError {
	return New(CodeIdentifierExists, "User with this email or phone already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps a store or infrastructure failure as SYS_001.
func InternalError(err error) *AppError {
	return Wrap(CodeStoreFailure, "Internal server error", http.StatusInternalServerError, err)
}
