package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// domainErrors is ordered: more specific sentinels come before the ones
// they wrap.
var domainErrors = []struct {
	err    error
	appErr *AppError
}{
	{domain.ErrSourceAccountNotFound, ErrSourceAccountNotFound},
	{domain.ErrDestinationAccountNotFound, ErrDestinationAccountNotFound},
	{domain.ErrAccountNotFound, ErrAccountNotFound},
	{domain.ErrUserNotFound, ErrUserNotFound},
	{domain.ErrBoletoNotFound, ErrBoletoNotFound},
	{domain.ErrNotFound, ErrResourceNotFound},
	{domain.ErrInvalidAmount, ErrInvalidAmount},
	{domain.ErrInvalidInput, ErrValidationFailed},
	{domain.ErrInvalidCredential, ErrInvalidCredentials},
	{domain.ErrInsufficientFunds, ErrInsufficientFunds},
	{domain.ErrInvalidOperation, ErrInvalidOperation},
	{domain.ErrBoletoAlreadyPaid, ErrBoletoAlreadyPaid},
	{domain.ErrVersionConflict, ErrVersionConflict},
	{domain.ErrConflict, ErrConflict},
}

// RespondDomainError maps a service error onto its HTTP representation.
// Validation failures carry the service's message as details.
func RespondDomainError(w http.ResponseWriter, err error) {
	appErr := appErrorFor(err)
	if appErr == ErrInternalError {
		slog.Error("unhandled domain error", "error", err)
	}

	var details any
	if appErr == ErrValidationFailed {
		details = err.Error()
	}
	RespondAppError(w, appErr, details)
}

func appErrorFor(err error) *AppError {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return m.appErr
		}
	}
	return ErrInternalError
}
