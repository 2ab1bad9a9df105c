package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/events"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

// BalanceResult describes an account after a deposit or withdrawal.
type BalanceResult struct {
	Message       string
	AccountNumber string
	AgencyNumber  domain.AgencyNumber
	OwnerName     string
	Balance       money.Money
}

type BalanceInquiry struct {
	Message   string
	OwnerName string
	Balance   money.Money
}

func (s *Service) Deposit(ctx context.Context, accountNumber string, amount money.Money, credential string) (*BalanceResult, error) {
	if accountNumber == "" {
		return nil, fmt.Errorf("Deposit: account number: %w", domain.ErrInvalidInput)
	}
	if err := validateAmount(amount); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	owner, err := s.authenticate(ctx, accountNumber, credential, domain.ErrAccountNotFound)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	acct, err := s.adjustBalance(ctx, owner.ID, func(current money.Money) (money.Money, error) {
		return creditWithinLimit(current, amount)
	})
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	logging.FromContext(ctx).Info("deposit completed",
		"account_id", acct.ID,
		"amount", amount.String(),
	)
	s.publish(ctx, events.New(events.TypeDeposit, events.BalanceChanged{
		AccountNumber: acct.AccountNumber,
		Amount:        amount.String(),
		Balance:       acct.Balance.String(),
	}))

	return &BalanceResult{
		Message:       "Amount deposited: " + amount.String(),
		AccountNumber: acct.AccountNumber,
		AgencyNumber:  acct.AgencyNumber,
		OwnerName:     owner.OwnerName,
		Balance:       acct.Balance,
	}, nil
}

func (s *Service) Withdraw(ctx context.Context, accountNumber string, amount money.Money, credential string) (*BalanceResult, error) {
	if accountNumber == "" {
		return nil, fmt.Errorf("Withdraw: account number: %w", domain.ErrInvalidInput)
	}
	if err := validateAmount(amount); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	owner, err := s.authenticate(ctx, accountNumber, credential, domain.ErrAccountNotFound)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	acct, err := s.adjustBalance(ctx, owner.ID, func(current money.Money) (money.Money, error) {
		if current.LessThan(amount) {
			return money.Money{}, domain.ErrInsufficientFunds
		}
		return current.Sub(amount), nil
	})
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	logging.FromContext(ctx).Info("withdrawal completed",
		"account_id", acct.ID,
		"amount", amount.String(),
	)
	s.publish(ctx, events.New(events.TypeWithdrawal, events.BalanceChanged{
		AccountNumber: acct.AccountNumber,
		Amount:        amount.String(),
		Balance:       acct.Balance.String(),
	}))

	return &BalanceResult{
		Message:       "Amount withdrawn: " + amount.String(),
		AccountNumber: acct.AccountNumber,
		AgencyNumber:  acct.AgencyNumber,
		OwnerName:     owner.OwnerName,
		Balance:       acct.Balance,
	}, nil
}

func (s *Service) CheckBalance(ctx context.Context, accountNumber, credential string) (*BalanceInquiry, error) {
	if accountNumber == "" {
		return nil, fmt.Errorf("CheckBalance: account number: %w", domain.ErrInvalidInput)
	}

	owner, err := s.authenticate(ctx, accountNumber, credential, domain.ErrAccountNotFound)
	if err != nil {
		return nil, fmt.Errorf("CheckBalance: %w", err)
	}

	return &BalanceInquiry{
		Message:   "Balance retrieved successfully",
		OwnerName: owner.OwnerName,
		Balance:   owner.Balance,
	}, nil
}

// adjustBalance locks the account, computes its next balance with next and
// writes it back in one transaction.
func (s *Service) adjustBalance(ctx context.Context, accountID uuid.UUID, next func(current money.Money) (money.Money, error)) (*domain.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("adjustBalance: begin tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := s.accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("adjustBalance: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("adjustBalance: %w", err)
	}

	balance, err := next(acct.Balance)
	if err != nil {
		return nil, fmt.Errorf("adjustBalance: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, tx, acct.ID, balance, acct.Version+1); err != nil {
		return nil, fmt.Errorf("adjustBalance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("adjustBalance: commit: %w", err)
	}

	acct.Balance = balance
	acct.Version++
	return acct, nil
}
