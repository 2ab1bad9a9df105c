package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrRateLimited        = &AppError{http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount              = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive, no larger than 9999999999999999.99 and have at most two decimal places"}
	ErrAccountNotFound            = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrSourceAccountNotFound      = &AppError{http.StatusNotFound, "SOURCE_ACCOUNT_NOT_FOUND", "Source account not found"}
	ErrDestinationAccountNotFound = &AppError{http.StatusNotFound, "DESTINATION_ACCOUNT_NOT_FOUND", "Destination account not found"}
	ErrUserNotFound               = &AppError{http.StatusNotFound, "USER_NOT_FOUND", "User not found"}
	ErrBoletoNotFound             = &AppError{http.StatusNotFound, "BOLETO_NOT_FOUND", "Boleto not found"}
	ErrInsufficientFunds          = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrInvalidOperation           = &AppError{http.StatusUnprocessableEntity, "INVALID_OPERATION", "Operation not allowed"}
	ErrBoletoAlreadyPaid          = &AppError{http.StatusConflict, "BOLETO_ALREADY_PAID", "Boleto has already been paid"}
	ErrConflict                   = &AppError{http.StatusConflict, "CONFLICT", "Resource already exists"}
	ErrVersionConflict            = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrIdempotencyConflict        = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrIdempotencyInProgress      = &AppError{http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "A request with this idempotency key is still in progress"}
)
