package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/money"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings:
		return true
	}
	return false
}

// AgencyNumber is the branch an account is opened at. Every account is
// opened at DefaultAgency.
type AgencyNumber string

const DefaultAgency AgencyNumber = "Agency1"

type Account struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AccountNumber string
	AgencyNumber  AgencyNumber
	Type          AccountType
	Balance       money.Money
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AccountOwner is an account joined with the fields of its owner that the
// ledger needs: a display name and the stored credential hash.
type AccountOwner struct {
	Account
	OwnerName    string
	PasswordHash string
}

// AccountSummary is an account with its owner's display name, as listed by
// the directory.
type AccountSummary struct {
	Account
	OwnerName string
}
