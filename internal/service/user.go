package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

const (
	minNameLength         = 3
	maxNameLength         = 50
	maxPhoneLength        = 20
	passwordLength        = 6
	minimumAge            = 18
	maxAccountNumberTries = 5
)

type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByCPF(ctx context.Context, cpf string) (*domain.User, error)
	ExistsByCPFOrPhone(ctx context.Context, cpf, phone string) (bool, error)
	Create(ctx context.Context, tx *sql.Tx, u *domain.User) error
	Update(ctx context.Context, id uuid.UUID, phone, passwordHash *string) error
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type accountStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.AccountOwner, error)
	GetByUserIDForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Account, error)
	Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenConfig signs the tokens handed out by Login.
type TokenConfig struct {
	Secret string
	Expiry time.Duration
}

type CreateUserInput struct {
	Name        string
	CPF         string
	Password    string
	PhoneNumber string
	DateOfBirth time.Time
	AccountType domain.AccountType
}

// UpdateUserInput changes the phone number, the password, or both. A
// password change needs the old and the new password together.
type UpdateUserInput struct {
	PhoneNumber *string
	OldPassword *string
	NewPassword *string
}

type LoginResult struct {
	Token string
	User  domain.User
}

type UserService struct {
	users     userStore
	accounts  accountStore
	passwords passwordHasher
	db        *sql.DB
	token     TokenConfig

	newAccountNumber func() (string, error)
	now              func() time.Time
}

func NewUserService(users userStore, accounts accountStore, passwords passwordHasher, db *sql.DB, token TokenConfig) *UserService {
	return &UserService{
		users:            users,
		accounts:         accounts,
		passwords:        passwords,
		db:               db,
		token:            token,
		newAccountNumber: generateAccountNumber,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registers a customer and opens their account in one
// transaction.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, *domain.Account, error) {
	log := logging.FromContext(ctx)

	cpf, err := s.validateCreate(&in)
	if err != nil {
		return nil, nil, fmt.Errorf("CreateUser: %w", err)
	}

	exists, err := s.users.ExistsByCPFOrPhone(ctx, cpf, in.PhoneNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("CreateUser: %w", err)
	}
	if exists {
		return nil, nil, fmt.Errorf("CreateUser: user already exists: %w", domain.ErrConflict)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("CreateUser: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		CPF:          cpf,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
		DateOfBirth:  in.DateOfBirth,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 1; attempt <= maxAccountNumberTries; attempt++ {
		number, err := s.newAccountNumber()
		if err != nil {
			return nil, nil, fmt.Errorf("CreateUser: %w", err)
		}
		account := &domain.Account{
			ID:            uuid.New(),
			UserID:        user.ID,
			AccountNumber: number,
			AgencyNumber:  domain.DefaultAgency,
			Type:          in.AccountType,
			Balance:       money.Zero(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = s.insertUserWithAccount(ctx, user, account)
		if errors.Is(err, errAccountNumberTaken) {
			log.Warn("account number collision", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("CreateUser: %w", err)
		}

		log.Info("user created",
			"user_id", user.ID,
			"account_id", account.ID,
			"account_type", account.Type,
		)
		return user, account, nil
	}

	return nil, nil, fmt.Errorf("CreateUser: account number: %w", domain.ErrConflict)
}

var errAccountNumberTaken = errors.New("account number taken")

// insertUserWithAccount runs one attempt in its own transaction; a unique
// violation aborts the whole Postgres transaction, so a retry needs a new one.
func (s *UserService) insertUserWithAccount(ctx context.Context, user *domain.User, account *domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insertUserWithAccount: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.users.Create(ctx, tx, user); err != nil {
		return fmt.Errorf("insertUserWithAccount: %w", err)
	}
	if err := s.accounts.Create(ctx, tx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return errAccountNumberTaken
		}
		return fmt.Errorf("insertUserWithAccount: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insertUserWithAccount: commit: %w", err)
	}
	return nil
}

func (s *UserService) validateCreate(in *CreateUserInput) (string, error) {
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Name)); n < minNameLength || n > maxNameLength {
		return "", fmt.Errorf("name must be between %d and %d characters: %w", minNameLength, maxNameLength, domain.ErrInvalidInput)
	}
	cpf, err := NormalizeCPF(in.CPF)
	if err != nil {
		return "", err
	}
	if err := validatePassword(in.Password); err != nil {
		return "", err
	}
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := validatePhone(in.PhoneNumber); err != nil {
		return "", err
	}
	if in.DateOfBirth.IsZero() {
		return "", fmt.Errorf("date of birth is required: %w", domain.ErrInvalidInput)
	}
	if age(in.DateOfBirth, s.now()) < minimumAge {
		return "", fmt.Errorf("must be at least %d years old: %w", minimumAge, domain.ErrInvalidInput)
	}
	if !in.AccountType.IsValid() {
		return "", fmt.Errorf("account type %q: %w", in.AccountType, domain.ErrInvalidInput)
	}
	return cpf, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("GetUser: %w", domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	return u, nil
}

func (s *UserService) GetAccountByUser(ctx context.Context, userID uuid.UUID) (*domain.AccountOwner, error) {
	a, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("GetAccountByUser: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetAccountByUser: %w", err)
	}
	return a, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) error {
	if in.PhoneNumber == nil && in.OldPassword == nil && in.NewPassword == nil {
		return fmt.Errorf("UpdateUser: nothing to update: %w", domain.ErrInvalidInput)
	}
	if (in.OldPassword == nil) != (in.NewPassword == nil) {
		return fmt.Errorf("UpdateUser: both old and new passwords must be provided: %w", domain.ErrInvalidInput)
	}

	var phone *string
	if in.PhoneNumber != nil {
		p := strings.TrimSpace(*in.PhoneNumber)
		if err := validatePhone(p); err != nil {
			return fmt.Errorf("UpdateUser: %w", err)
		}
		phone = &p
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("UpdateUser: %w", err)
	}

	var hash *string
	if in.NewPassword != nil {
		if !s.passwords.Verify(*in.OldPassword, user.PasswordHash) {
			return fmt.Errorf("UpdateUser: old password: %w", domain.ErrInvalidCredential)
		}
		if err := validatePassword(*in.NewPassword); err != nil {
			return fmt.Errorf("UpdateUser: %w", err)
		}
		h, err := s.passwords.Hash(*in.NewPassword)
		if err != nil {
			return fmt.Errorf("UpdateUser: %w", err)
		}
		hash = &h
	}

	if err := s.users.Update(ctx, id, phone, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("UpdateUser: %w", domain.ErrUserNotFound)
		}
		return fmt.Errorf("UpdateUser: %w", err)
	}

	logging.FromContext(ctx).Info("user updated",
		"user_id", id,
		"phone_changed", phone != nil,
		"password_changed", hash != nil,
	)
	return nil
}

// DeleteUser closes the user's account and removes the user. An account
// that still holds money cannot be closed, and a user who issued or paid a
// boleto is kept so the boleto stays attributable.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteUser: begin tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := s.accounts.GetByUserIDForUpdate(ctx, tx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return fmt.Errorf("DeleteUser: %w", err)
	default:
		if !acct.Balance.IsZero() {
			return fmt.Errorf("DeleteUser: account balance is not zero (%s): %w",
				money.FormatUSD(acct.Balance), domain.ErrInvalidOperation)
		}
		if err := s.accounts.Delete(ctx, tx, acct.ID); err != nil {
			return fmt.Errorf("DeleteUser: %w", err)
		}
	}

	if err := s.users.Delete(ctx, tx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("DeleteUser: %w", domain.ErrUserNotFound)
		}
		if errors.Is(err, domain.ErrInvalidOperation) {
			return fmt.Errorf("DeleteUser: user is referenced by boletos: %w", domain.ErrInvalidOperation)
		}
		return fmt.Errorf("DeleteUser: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteUser: commit: %w", err)
	}

	logging.FromContext(ctx).Info("user deleted", "user_id", id)
	return nil
}

// Login exchanges a CPF and password for a signed token. Unknown CPFs and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, cpf, password string) (*LoginResult, error) {
	normalized, err := NormalizeCPF(cpf)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}

	user, err := s.users.GetByCPF(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredential)
		}
		return nil, fmt.Errorf("Login: %w", err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		return nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredential)
	}

	token, err := auth.GenerateToken(user.ID, user.Name, s.token.Secret, s.token.Expiry)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	return &LoginResult{Token: token, User: *user}, nil
}

// NormalizeCPF strips formatting from cpf and renders the 11 digits as
// XXX.XXX.XXX-XX.
func NormalizeCPF(cpf string) (string, error) {
	digits := make([]byte, 0, 11)
	for i := 0; i < len(cpf); i++ {
		c := cpf[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == '.' || c == '-' || c == ' ':
		default:
			return "", fmt.Errorf("cpf contains %q: %w", c, domain.ErrInvalidInput)
		}
	}
	if len(digits) != 11 {
		return "", fmt.Errorf("cpf must have 11 digits: %w", domain.ErrInvalidInput)
	}
	d := string(digits)
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11], nil
}

func validatePassword(p string) error {
	if len(p) != passwordLength || !allDigits(p) {
		return fmt.Errorf("password must be exactly %d digits: %w", passwordLength, domain.ErrInvalidInput)
	}
	return nil
}

func validatePhone(p string) error {
	if p == "" {
		return fmt.Errorf("phone number is required: %w", domain.ErrInvalidInput)
	}
	if len(p) > maxPhoneLength {
		return fmt.Errorf("phone number longer than %d characters: %w", maxPhoneLength, domain.ErrInvalidInput)
	}
	return nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// age is the number of whole years between dob and now.
func age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// generateAccountNumber returns "<0..99999999>-<0..9>".
func generateAccountNumber() (string, error) {
	base, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("generateAccountNumber: %w", err)
	}
	check, err := rand.Int(rand.Reader, big.NewInt(10))
	if err != nil {
		return "", fmt.Errorf("generateAccountNumber: %w", err)
	}
	return fmt.Sprintf("%d-%d", base.Int64(), check.Int64()), nil
}
