package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrAccountNotFound   = errors.New("account not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrBoletoNotFound    = errors.New("boleto not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrConflict          = errors.New("conflict")
	ErrVersionConflict   = errors.New("optimistic lock conflict")

	ErrSourceAccountNotFound      = fmt.Errorf("source %w", ErrAccountNotFound)
	ErrDestinationAccountNotFound = fmt.Errorf("destination %w", ErrAccountNotFound)
	ErrBoletoAlreadyPaid          = fmt.Errorf("boleto already paid: %w", ErrConflict)
)
