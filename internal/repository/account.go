package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

const accountColumns = `a.id, a.user_id, a.account_number, a.agency_number, a.type,
	a.balance, a.version, a.created_at, a.updated_at`

const accountOwnerQuery = `SELECT ` + accountColumns + `, u.name, u.password_hash
	FROM accounts a JOIN users u ON u.id = a.user_id`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByNumber(ctx context.Context, accountNumber string) (*domain.AccountOwner, error) {
	row := r.db.QueryRowContext(ctx, accountOwnerQuery+` WHERE a.account_number = $1`, accountNumber)
	a, err := scanAccountOwner(row)
	if err != nil {
		return nil, wrapErr("GetByNumber", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.AccountOwner, error) {
	row := r.db.QueryRowContext(ctx, accountOwnerQuery+` WHERE a.user_id = $1`, userID)
	a, err := scanAccountOwner(row)
	if err != nil {
		return nil, wrapErr("GetByUserID", err)
	}
	return a, nil
}

func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE a.id = $1 FOR UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, wrapErr("GetForUpdate", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByUserIDForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE a.user_id = $1 FOR UPDATE`, userID,
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, wrapErr("GetByUserIDForUpdate", err)
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (
			id, user_id, account_number, agency_number, type,
			balance, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.UserID, account.AccountNumber, account.AgencyNumber, account.Type,
		account.Balance, account.Version, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return wrapErr("Create", err)
	}
	return nil
}

// UpdateBalance writes newBalance only if the row is still at
// newVersion-1.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance money.Money, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, version = $2, updated_at = now()
		WHERE id = $3 AND version = $4`,
		newBalance, newVersion, id, newVersion-1,
	)
	if err != nil {
		return wrapErr("UpdateBalance", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func (r *AccountRepository) ListWithOwner(ctx context.Context) ([]domain.AccountSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+`, u.name
		FROM accounts a JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at, a.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListWithOwner: %w", err)
	}
	defer rows.Close()

	var out []domain.AccountSummary
	for rows.Next() {
		var s domain.AccountSummary
		a := &s.Account
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.AccountNumber, &a.AgencyNumber, &a.Type,
			&a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt,
			&s.OwnerName,
		); err != nil {
			return nil, fmt.Errorf("ListWithOwner: scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListWithOwner: rows: %w", err)
	}
	return out, nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.UserID, &a.AccountNumber, &a.AgencyNumber, &a.Type,
		&a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAccountOwner(s scanner) (*domain.AccountOwner, error) {
	var o domain.AccountOwner
	a := &o.Account
	err := s.Scan(
		&a.ID, &a.UserID, &a.AccountNumber, &a.AgencyNumber, &a.Type,
		&a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt,
		&o.OwnerName, &o.PasswordHash,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
