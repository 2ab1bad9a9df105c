package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

// Password is the credential every seeded user is created with.
const Password = "123456"

var seq atomic.Int64

// SeedUser inserts a user with a unique CPF and phone number.
func SeedUser(t *testing.T, db *sql.DB, name string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	n := seq.Add(1)
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		CPF:          fmt.Sprintf("000.000.%03d-%02d", n/100, n%100),
		PasswordHash: string(hash),
		PhoneNumber:  fmt.Sprintf("+55119%08d", n),
		DateOfBirth:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = db.Exec(
		`INSERT INTO users (id, name, cpf, password_hash, phone_number, date_of_birth, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.CPF, u.PasswordHash, u.PhoneNumber, u.DateOfBirth, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

// SeedAccount opens a checking account for userID holding balance.
func SeedAccount(t *testing.T, db *sql.DB, userID uuid.UUID, accountNumber, balance string) *domain.Account {
	t.Helper()

	now := time.Now().UTC()
	a := &domain.Account{
		ID:            uuid.New(),
		UserID:        userID,
		AccountNumber: accountNumber,
		AgencyNumber:  domain.DefaultAgency,
		Type:          domain.AccountTypeChecking,
		Balance:       money.MustNew(balance),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, user_id, account_number, agency_number, type, balance, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.AccountNumber, a.AgencyNumber, a.Type, a.Balance, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", accountNumber, err)
	}
	return a
}

// SeedCustomer is SeedUser followed by SeedAccount.
func SeedCustomer(t *testing.T, db *sql.DB, name, accountNumber, balance string) (*domain.User, *domain.Account) {
	t.Helper()
	u := SeedUser(t, db, name)
	return u, SeedAccount(t, db, u.ID, accountNumber, balance)
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountNumber string) money.Money {
	t.Helper()

	var balance money.Money
	err := db.QueryRow(`SELECT balance FROM accounts WHERE account_number = $1`, accountNumber).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountNumber, err)
	}
	return balance
}

func CountTransfers(t *testing.T, db *sql.DB, accountNumber string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transfers WHERE from_account_number = $1 OR to_account_number = $1`,
		accountNumber,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transfers for %s: %v", accountNumber, err)
	}
	return count
}

// InsertTransfer writes a transfer record directly, bypassing balances.
func InsertTransfer(t *testing.T, db *sql.DB, from, to, amount string, at time.Time) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO transfers (id, from_account_number, to_account_number, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, from, to, money.MustNew(amount), at,
	)
	if err != nil {
		t.Fatalf("insert transfer %s -> %s: %v", from, to, err)
	}
	return id
}
