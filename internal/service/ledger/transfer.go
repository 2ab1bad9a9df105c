package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/events"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

type TransferRequest struct {
	FromAccountNumber string
	ToAccountNumber   string
	Amount            money.Money
	Credential        string
}

type AccountBalance struct {
	AccountNumber string
	Balance       money.Money
}

type TransferResult struct {
	Message  string
	Transfer domain.Transfer
	From     AccountBalance
	To       AccountBalance
}

func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := validateTransfer(req); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	source, dest, err := s.resolveTransferAccounts(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	if !s.credentials.Verify(req.Credential, source.PasswordHash) {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInvalidCredential)
	}

	res, err := s.executeTransfer(ctx, req.Amount, source.ID, dest.ID)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	logging.FromContext(ctx).Info("transfer completed",
		"transfer_id", res.Transfer.ID,
		"source_account", source.ID,
		"dest_account", dest.ID,
		"amount", req.Amount.String(),
	)
	s.publish(ctx, events.New(events.TypeTransfer, events.TransferCompleted{
		TransferID:        res.Transfer.ID,
		FromAccountNumber: res.Transfer.FromAccountNumber,
		ToAccountNumber:   res.Transfer.ToAccountNumber,
		Amount:            req.Amount.String(),
	}))

	return res, nil
}

func validateTransfer(req TransferRequest) error {
	if req.FromAccountNumber == "" {
		return fmt.Errorf("validateTransfer: source account number: %w", domain.ErrInvalidInput)
	}
	if req.ToAccountNumber == "" {
		return fmt.Errorf("validateTransfer: destination account number: %w", domain.ErrInvalidInput)
	}
	if err := validateAmount(req.Amount); err != nil {
		return fmt.Errorf("validateTransfer: %w", err)
	}
	if req.FromAccountNumber == req.ToAccountNumber {
		return fmt.Errorf("validateTransfer: cannot transfer to the same account: %w", domain.ErrInvalidOperation)
	}
	return nil
}

func (s *Service) resolveTransferAccounts(ctx context.Context, req TransferRequest) (*domain.AccountOwner, *domain.AccountOwner, error) {
	source, err := s.accounts.GetByNumber(ctx, req.FromAccountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", domain.ErrSourceAccountNotFound)
		}
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}

	dest, err := s.accounts.GetByNumber(ctx, req.ToAccountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", domain.ErrDestinationAccountNotFound)
		}
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}

	return source, dest, nil
}

func (s *Service) executeTransfer(ctx context.Context, amount money.Money, sourceID, destID uuid.UUID) (*TransferResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, sourceID, destID)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	source, dest := locked[sourceID], locked[destID]

	if source.Balance.LessThan(amount) {
		return nil, fmt.Errorf("executeTransfer: %w", domain.ErrInsufficientFunds)
	}
	destBalance, err := creditWithinLimit(dest.Balance, amount)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: destination: %w", err)
	}

	t := domain.Transfer{
		ID:                uuid.New(),
		FromAccountNumber: source.AccountNumber,
		ToAccountNumber:   dest.AccountNumber,
		Amount:            amount,
		CreatedAt:         s.now(),
	}
	if err := s.transfers.Create(ctx, tx, &t); err != nil {
		return nil, fmt.Errorf("executeTransfer: create transfer: %w", err)
	}

	sourceBalance := source.Balance.Sub(amount)

	if err := s.accounts.UpdateBalance(ctx, tx, source.ID, sourceBalance, source.Version+1); err != nil {
		return nil, fmt.Errorf("executeTransfer: update source: %w", err)
	}
	if err := s.accounts.UpdateBalance(ctx, tx, dest.ID, destBalance, dest.Version+1); err != nil {
		return nil, fmt.Errorf("executeTransfer: update destination: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeTransfer: commit: %w", err)
	}

	return &TransferResult{
		Message:  fmt.Sprintf("Transfer of %s completed successfully", amount),
		Transfer: t,
		From:     AccountBalance{AccountNumber: source.AccountNumber, Balance: sourceBalance},
		To:       AccountBalance{AccountNumber: dest.AccountNumber, Balance: destBalance},
	}, nil
}

// lockAccountsInOrder takes the row locks sorted by id so that two
// transfers over the same pair of accounts cannot deadlock.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountRepo, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		if _, ok := result[id]; ok {
			continue
		}
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("lockAccountsInOrder: %s: %w", id, domain.ErrAccountNotFound)
			}
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}
