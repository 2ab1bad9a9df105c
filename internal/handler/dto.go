package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

const dateLayout = "2006-01-02"

type userDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CPF         string    `json:"cpf"`
	PhoneNumber string    `json:"phone_number"`
	DateOfBirth string    `json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{
		ID:          u.ID,
		Name:        u.Name,
		CPF:         u.CPF,
		PhoneNumber: u.PhoneNumber,
		DateOfBirth: u.DateOfBirth.Format(dateLayout),
		CreatedAt:   u.CreatedAt,
	}
}

type accountDTO struct {
	ID            uuid.UUID `json:"id"`
	AccountNumber string    `json:"account_number"`
	AgencyNumber  string    `json:"agency_number"`
	Type          string    `json:"type"`
	Balance       string    `json:"balance"`
	OwnerName     string    `json:"owner_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountDTO(a *domain.Account, ownerName string) accountDTO {
	return accountDTO{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		AgencyNumber:  string(a.AgencyNumber),
		Type:          string(a.Type),
		Balance:       money.FormatUSD(a.Balance),
		OwnerName:     ownerName,
		CreatedAt:     a.CreatedAt,
	}
}

type transferDTO struct {
	ID                uuid.UUID `json:"id"`
	FromAccountNumber string    `json:"from_account_number"`
	ToAccountNumber   string    `json:"to_account_number"`
	FromOwnerName     string    `json:"from_owner_name,omitempty"`
	ToOwnerName       string    `json:"to_owner_name,omitempty"`
	Amount            string    `json:"amount"`
	CreatedAt         time.Time `json:"created_at"`
}

func toTransferDTO(t domain.Transfer) transferDTO {
	return transferDTO{
		ID:                t.ID,
		FromAccountNumber: t.FromAccountNumber,
		ToAccountNumber:   t.ToAccountNumber,
		Amount:            money.FormatUSD(t.Amount),
		CreatedAt:         t.CreatedAt,
	}
}

func toTransferViewDTO(v domain.TransferView) transferDTO {
	dto := toTransferDTO(v.Transfer)
	dto.FromOwnerName = v.FromOwnerName
	dto.ToOwnerName = v.ToOwnerName
	return dto
}

type boletoDTO struct {
	ID             uuid.UUID  `json:"id"`
	DocumentNumber string     `json:"document_number"`
	Value          string     `json:"value"`
	Status         string     `json:"status"`
	IssuerID       uuid.UUID  `json:"issuer_id"`
	PayerID        *uuid.UUID `json:"payer_id"`
	CreatedAt      time.Time  `json:"created_at"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

func toBoletoDTO(b *domain.Boleto) boletoDTO {
	return boletoDTO{
		ID:             b.ID,
		DocumentNumber: b.DocumentNumber,
		Value:          money.FormatUSD(b.Value),
		Status:         string(b.Status),
		IssuerID:       b.IssuerID,
		PayerID:        b.PayerID,
		CreatedAt:      b.CreatedAt,
		PaidAt:         b.PaidAt,
	}
}
