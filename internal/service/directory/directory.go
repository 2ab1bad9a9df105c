// Package directory lists every account in the bank with its owner.
package directory

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

type accountLister interface {
	ListWithOwner(ctx context.Context) ([]domain.AccountSummary, error)
}

type Directory struct {
	TotalCount int
	Accounts   []domain.AccountSummary
}

type Service struct {
	accounts accountLister
}

func NewService(accounts accountLister) *Service {
	return &Service{accounts: accounts}
}

func (s *Service) ListAccounts(ctx context.Context) (*Directory, error) {
	accounts, err := s.accounts.ListWithOwner(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	if accounts == nil {
		accounts = []domain.AccountSummary{}
	}
	return &Directory{TotalCount: len(accounts), Accounts: accounts}, nil
}
