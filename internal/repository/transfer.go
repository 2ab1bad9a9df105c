package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const transferViewQuery = `SELECT t.id, t.from_account_number, t.to_account_number, t.amount, t.created_at,
		COALESCE(fu.name, ''), COALESCE(tu.name, '')
	FROM transfers t
	LEFT JOIN accounts fa ON fa.account_number = t.from_account_number
	LEFT JOIN users fu ON fu.id = fa.user_id
	LEFT JOIN accounts ta ON ta.account_number = t.to_account_number
	LEFT JOIN users tu ON tu.id = ta.user_id`

// TransferQuery selects transfers touching AccountNumber. Since is
// inclusive and Until exclusive; nil leaves that side open.
type TransferQuery struct {
	AccountNumber string
	Direction     domain.TransferDirection
	Since         *time.Time
	Until         *time.Time
	Limit         int
	Offset        int
}

type TransferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transfer) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transfers (id, from_account_number, to_account_number, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.FromAccountNumber, t.ToAccountNumber, t.Amount, t.CreatedAt,
	)
	if err != nil {
		return wrapErr("Create", err)
	}
	return nil
}

// ListByAccount returns one page of matching transfers, newest first, and
// the total number of matches.
func (r *TransferRepository) ListByAccount(ctx context.Context, q TransferQuery) ([]domain.TransferView, int, error) {
	where, args := q.filter()

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfers t WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: count: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	n := len(args)
	args = append(args, q.Limit, q.Offset)
	rows, err := r.db.QueryContext(ctx,
		transferViewQuery+` WHERE `+where+
			fmt.Sprintf(` ORDER BY t.created_at DESC, t.id DESC LIMIT $%d OFFSET $%d`, n+1, n+2),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var views []domain.TransferView
	for rows.Next() {
		v, err := scanTransferView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return views, total, nil
}

func (r *TransferRepository) LastByAccount(ctx context.Context, accountNumber string) (*domain.TransferView, error) {
	row := r.db.QueryRowContext(ctx,
		transferViewQuery+`
		WHERE t.from_account_number = $1 OR t.to_account_number = $1
		ORDER BY t.created_at DESC, t.id DESC LIMIT 1`,
		accountNumber,
	)
	v, err := scanTransferView(row)
	if err != nil {
		return nil, wrapErr("LastByAccount", err)
	}
	return v, nil
}

func (q TransferQuery) filter() (string, []any) {
	args := []any{q.AccountNumber}
	var conds []string

	switch q.Direction {
	case domain.DirectionSent:
		conds = append(conds, "t.from_account_number = $1")
	case domain.DirectionReceived:
		conds = append(conds, "t.to_account_number = $1")
	default:
		conds = append(conds, "(t.from_account_number = $1 OR t.to_account_number = $1)")
	}

	if q.Since != nil {
		args = append(args, *q.Since)
		conds = append(conds, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if q.Until != nil {
		args = append(args, *q.Until)
		conds = append(conds, fmt.Sprintf("t.created_at < $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}

func scanTransferView(s scanner) (*domain.TransferView, error) {
	var v domain.TransferView
	err := s.Scan(
		&v.ID, &v.FromAccountNumber, &v.ToAccountNumber, &v.Amount, &v.CreatedAt,
		&v.FromOwnerName, &v.ToOwnerName,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
