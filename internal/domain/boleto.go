package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/money"
)

type BoletoStatus string

const (
	BoletoStatusPending BoletoStatus = "PENDING"
	BoletoStatusPaid    BoletoStatus = "PAID"
)

type Boleto struct {
	ID             uuid.UUID
	DocumentNumber string
	Value          money.Money
	IssuerID       uuid.UUID
	Status         BoletoStatus
	PayerID        *uuid.UUID
	CreatedAt      time.Time
	PaidAt         *time.Time
}
