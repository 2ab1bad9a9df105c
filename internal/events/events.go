// Package events publishes ledger facts to a RabbitMQ topic exchange after
// the mutation that produced them has committed.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type doubles as the AMQP routing key.
type Type string

const (
	TypeDeposit       Type = "ledger.deposit"
	TypeWithdrawal    Type = "ledger.withdrawal"
	TypeTransfer      Type = "ledger.transfer"
	TypeBoletoCreated Type = "boleto.created"
	TypeBoletoPaid    Type = "boleto.paid"
)

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(t Type, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type BalanceChanged struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Balance       string `json:"balance"`
}

type TransferCompleted struct {
	TransferID        uuid.UUID `json:"transfer_id"`
	FromAccountNumber string    `json:"from_account_number"`
	ToAccountNumber   string    `json:"to_account_number"`
	Amount            string    `json:"amount"`
}

type BoletoChanged struct {
	BoletoID       uuid.UUID  `json:"boleto_id"`
	DocumentNumber string     `json:"document_number"`
	Value          string     `json:"value"`
	Status         string     `json:"status"`
	IssuerID       uuid.UUID  `json:"issuer_id"`
	PayerID        *uuid.UUID `json:"payer_id,omitempty"`
}
