package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/money"
)

// Transfer is an immutable record of money moved between two accounts.
type Transfer struct {
	ID                uuid.UUID
	FromAccountNumber string
	ToAccountNumber   string
	Amount            money.Money
	CreatedAt         time.Time
}

// TransferView is a transfer annotated with both parties' display names.
// Names are empty when the party's account has since been closed.
type TransferView struct {
	Transfer
	FromOwnerName string
	ToOwnerName   string
}

type TransferDirection string

const (
	DirectionAll      TransferDirection = "all"
	DirectionSent     TransferDirection = "sent"
	DirectionReceived TransferDirection = "received"
)

func (d TransferDirection) IsValid() bool {
	switch d {
	case DirectionAll, DirectionSent, DirectionReceived:
		return true
	}
	return false
}
