package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount       = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidAccountType  = &AppError{http.StatusBadRequest, "INVALID_ACCOUNT_TYPE", "Account type must be savings, fixed_deposit, or current"}
	ErrAccountNotFound     = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrAccountNotActive    = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_NOT_ACTIVE", "Account is closed or suspended"}
	ErrAccountNotEmpty     = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_NOT_EMPTY", "Account balance must be zero to close"}
	ErrInsufficientFunds   = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrSameAccountTransfer = &AppError{http.StatusUnprocessableEntity, "SAME_ACCOUNT_TRANSFER", "Source and destination accounts must differ"}
	ErrAlreadyReversed     = &AppError{http.StatusConflict, "ALREADY_REVERSED", "Transaction has already been reversed or never completed"}
	ErrVersionConflict     = &AppError{http.StatusConflict, "CONCURRENCY_CONFLICT", "Account was modified concurrently, please retry"}
	ErrBusy                = &AppError{http.StatusServiceUnavailable, "BUSY", "Account is locked by another operation, please retry"}
)
