// Package ledger moves money between accounts. Every mutation runs in a
// single database transaction with the touched rows locked FOR UPDATE.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/events"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

type accountRepo interface {
	GetByNumber(ctx context.Context, accountNumber string) (*domain.AccountOwner, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance money.Money, newVersion int64) error
}

type transferRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transfer) error
}

type boletoRepo interface {
	Create(ctx context.Context, b *domain.Boleto) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, documentNumber string) (*domain.Boleto, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, id, payerID uuid.UUID, paidAt time.Time) error
}

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type credentialVerifier interface {
	Verify(plaintext, hash string) bool
}

type eventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type Service struct {
	accounts    accountRepo
	transfers   transferRepo
	boletos     boletoRepo
	users       userRepo
	credentials credentialVerifier
	events      eventPublisher
	db          *sql.DB

	newDocumentNumber func() (string, error)
	now               func() time.Time
}

func NewService(
	accounts accountRepo,
	transfers transferRepo,
	boletos boletoRepo,
	users userRepo,
	credentials credentialVerifier,
	publisher eventPublisher,
	db *sql.DB,
) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		accounts:          accounts,
		transfers:         transfers,
		boletos:           boletos,
		users:             users,
		credentials:       credentials,
		events:            publisher,
		db:                db,
		newDocumentNumber: generateDocumentNumber,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// authenticate loads the account and checks credential against its owner.
// notFound is returned when the account does not exist.
func (s *Service) authenticate(ctx context.Context, accountNumber, credential string, notFound error) (*domain.AccountOwner, error) {
	acct, err := s.accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !s.credentials.Verify(credential, acct.PasswordHash) {
		return nil, domain.ErrInvalidCredential
	}
	return acct, nil
}

// publish is fire-and-forget: the mutation it describes is already
// committed.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "event_type", e.Type, "event_id", e.ID, "error", err)
	}
}

func validateAmount(amount money.Money) error {
	if err := money.ValidateAmount(amount); err != nil {
		if errors.Is(err, money.ErrTooPrecise) {
			return fmt.Errorf("%w: at most two decimal places", domain.ErrInvalidAmount)
		}
		return domain.ErrInvalidAmount
	}
	return nil
}

// creditWithinLimit adds amount to balance unless the result would no longer
// fit the balance column.
func creditWithinLimit(balance, amount money.Money) (money.Money, error) {
	next := balance.Add(amount)
	if money.MaxAmount.LessThan(next) {
		return money.Money{}, fmt.Errorf("balance would exceed %s: %w", money.MaxAmount, domain.ErrInvalidAmount)
	}
	return next, nil
}
