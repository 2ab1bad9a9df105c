package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/money"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
	"github.com/josh-kwaku/bank-ledger/internal/service"
	"github.com/josh-kwaku/bank-ledger/internal/testutil"
)

const testSecret = "test-secret-key-for-users"

func setupUserService(t *testing.T, db *sql.DB) *service.UserService {
	t.Helper()
	return service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewAccountRepository(db),
		auth.NewBcryptVerifier(bcrypt.MinCost),
		db,
		service.TokenConfig{Secret: testSecret, Expiry: time.Hour},
	)
}

func newCustomer(cpf, phone string) service.CreateUserInput {
	return service.CreateUserInput{
		Name:        "Maria Silva",
		CPF:         cpf,
		Password:    "123456",
		PhoneNumber: phone,
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		AccountType: domain.AccountTypeSavings,
	}
}

func TestUserLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupUserService(t, db)
	ctx := context.Background()

	user, acct, err := svc.CreateUser(ctx, newCustomer("12345678901", "+5511988887777"))
	require.NoError(t, err)
	assert.Equal(t, "123.456.789-01", user.CPF)
	assert.NotEqual(t, "123456", user.PasswordHash)
	assert.Equal(t, domain.DefaultAgency, acct.AgencyNumber)
	assert.Equal(t, domain.AccountTypeSavings, acct.Type)
	assert.True(t, acct.Balance.IsZero())

	owner, err := svc.GetAccountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.AccountNumber, owner.AccountNumber)
	assert.Equal(t, "Maria Silva", owner.OwnerName)

	login, err := svc.Login(ctx, "123.456.789-01", "123456")
	require.NoError(t, err)
	claims, err := auth.ValidateToken(login.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.Login(ctx, "12345678901", "000000")
	require.ErrorIs(t, err, domain.ErrInvalidCredential)
	_, err = svc.Login(ctx, "99999999999", "123456")
	require.ErrorIs(t, err, domain.ErrInvalidCredential)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	_, err = svc.GetUser(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCreateUser_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupUserService(t, db)
	ctx := context.Background()

	_, _, err := svc.CreateUser(ctx, newCustomer("12345678901", "+5511988887777"))
	require.NoError(t, err)

	_, _, err = svc.CreateUser(ctx, newCustomer("123.456.789-01", "+5511900000000"))
	require.ErrorIs(t, err, domain.ErrConflict)

	_, _, err = svc.CreateUser(ctx, newCustomer("98765432100", "+5511988887777"))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupUserService(t, db)
	ctx := context.Background()

	user, _, err := svc.CreateUser(ctx, newCustomer("12345678901", "+5511988887777"))
	require.NoError(t, err)
	other := testutil.SeedUser(t, db, "Other")

	phone := "+5511911112222"
	require.NoError(t, svc.UpdateUser(ctx, user.ID, service.UpdateUserInput{PhoneNumber: &phone}))
	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, phone, got.PhoneNumber)

	taken := other.PhoneNumber
	err = svc.UpdateUser(ctx, user.ID, service.UpdateUserInput{PhoneNumber: &taken})
	require.ErrorIs(t, err, domain.ErrConflict)

	wrong, next := "000000", "654321"
	err = svc.UpdateUser(ctx, user.ID, service.UpdateUserInput{OldPassword: &wrong, NewPassword: &next})
	require.ErrorIs(t, err, domain.ErrInvalidCredential)

	old := "123456"
	require.NoError(t, svc.UpdateUser(ctx, user.ID, service.UpdateUserInput{OldPassword: &old, NewPassword: &next}))
	_, err = svc.Login(ctx, user.CPF, next)
	require.NoError(t, err)

	err = svc.UpdateUser(ctx, uuid.New(), service.UpdateUserInput{PhoneNumber: &phone})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeleteUser_NonZeroBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupUserService(t, db)
	ctx := context.Background()

	user, _ := testutil.SeedCustomer(t, db, "Alice", "11111111-1", "0.01")

	err := svc.DeleteUser(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrInvalidOperation)

	_, err = svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.01", testutil.GetAccountBalance(t, db, "11111111-1").String())

	err = svc.DeleteUser(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeleteUser_BoletoPartiesAreKept(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupUserService(t, db)
	boletos := repository.NewBoletoRepository(db)
	ctx := context.Background()

	issuer, issuerAcct := testutil.SeedCustomer(t, db, "Issuer", "11111111-1", "0.00")
	other, _ := testutil.SeedCustomer(t, db, "Other", "22222222-2", "0.00")

	require.NoError(t, boletos.Create(ctx, &domain.Boleto{
		ID:             uuid.New(),
		DocumentNumber: "123456789012",
		Value:          money.MustNew("50.00"),
		IssuerID:       issuer.ID,
		Status:         domain.BoletoStatusPending,
		CreatedAt:      time.Now().UTC(),
	}))

	err := svc.DeleteUser(ctx, issuer.ID)
	require.ErrorIs(t, err, domain.ErrInvalidOperation)

	_, err = svc.GetUser(ctx, issuer.ID)
	require.NoError(t, err)
	owner, err := svc.GetAccountByUser(ctx, issuer.ID)
	require.NoError(t, err)
	assert.Equal(t, issuerAcct.AccountNumber, owner.AccountNumber, "account delete is rolled back with the user")

	require.NoError(t, svc.DeleteUser(ctx, other.ID))
}
