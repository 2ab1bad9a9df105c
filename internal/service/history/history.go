// Package history answers read-only questions about the transfers an
// account took part in.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/money"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type accountRepo interface {
	GetByNumber(ctx context.Context, accountNumber string) (*domain.AccountOwner, error)
}

type transferRepo interface {
	ListByAccount(ctx context.Context, q repository.TransferQuery) ([]domain.TransferView, int, error)
	LastByAccount(ctx context.Context, accountNumber string) (*domain.TransferView, error)
}

// Filter narrows a history query. The zero value selects the first
// DefaultLimit transfers in both directions.
type Filter struct {
	Direction domain.TransferDirection
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

type Page struct {
	Total     int
	Limit     int
	Offset    int
	Balance   money.Money
	Transfers []domain.TransferView
}

type Service struct {
	accounts  accountRepo
	transfers transferRepo
}

func NewService(accounts accountRepo, transfers transferRepo) *Service {
	return &Service{accounts: accounts, transfers: transfers}
}

// TransferDetails lists the transfers where accountNumber is the source or
// the destination, newest first, with the account's current balance.
func (s *Service) TransferDetails(ctx context.Context, accountNumber string, f Filter) (*Page, error) {
	if accountNumber == "" {
		return nil, fmt.Errorf("TransferDetails: account number: %w", domain.ErrInvalidInput)
	}
	f, err := f.normalize()
	if err != nil {
		return nil, fmt.Errorf("TransferDetails: %w", err)
	}

	acct, err := s.accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("TransferDetails: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("TransferDetails: %w", err)
	}

	views, total, err := s.transfers.ListByAccount(ctx, repository.TransferQuery{
		AccountNumber: accountNumber,
		Direction:     f.Direction,
		Since:         f.Since,
		Until:         f.Until,
		Limit:         f.Limit,
		Offset:        f.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("TransferDetails: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("TransferDetails: no transfers for account: %w", domain.ErrNotFound)
	}

	return &Page{
		Total:     total,
		Limit:     f.Limit,
		Offset:    f.Offset,
		Balance:   acct.Balance,
		Transfers: views,
	}, nil
}

func (s *Service) LastTransfer(ctx context.Context, accountNumber string) (*domain.TransferView, error) {
	if accountNumber == "" {
		return nil, fmt.Errorf("LastTransfer: account number: %w", domain.ErrInvalidInput)
	}

	v, err := s.transfers.LastByAccount(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("LastTransfer: %w", err)
	}
	return v, nil
}

func (f Filter) normalize() (Filter, error) {
	if f.Direction == "" {
		f.Direction = domain.DirectionAll
	}
	if !f.Direction.IsValid() {
		return f, fmt.Errorf("direction %q: %w", f.Direction, domain.ErrInvalidInput)
	}
	if f.Since != nil && f.Until != nil && !f.Since.Before(*f.Until) {
		return f, fmt.Errorf("since must be before until: %w", domain.ErrInvalidInput)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return f, fmt.Errorf("limit and offset must not be negative: %w", domain.ErrInvalidInput)
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f, nil
}
