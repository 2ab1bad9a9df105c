package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const boletoColumns = `id, document_number, value, issuer_id, status, payer_id, created_at, paid_at`

type BoletoRepository struct {
	db *sql.DB
}

func NewBoletoRepository(db *sql.DB) *BoletoRepository {
	return &BoletoRepository{db: db}
}

func (r *BoletoRepository) Create(ctx context.Context, b *domain.Boleto) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO boletos (`+boletoColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.DocumentNumber, b.Value, b.IssuerID, b.Status, b.PayerID, b.CreatedAt, b.PaidAt,
	)
	if err != nil {
		return wrapErr("Create", err)
	}
	return nil
}

func (r *BoletoRepository) GetByDocumentNumber(ctx context.Context, documentNumber string) (*domain.Boleto, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+boletoColumns+` FROM boletos WHERE document_number = $1`, documentNumber,
	)
	b, err := scanBoleto(row)
	if err != nil {
		return nil, wrapErr("GetByDocumentNumber", err)
	}
	return b, nil
}

func (r *BoletoRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, documentNumber string) (*domain.Boleto, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+boletoColumns+` FROM boletos WHERE document_number = $1 FOR UPDATE`, documentNumber,
	)
	b, err := scanBoleto(row)
	if err != nil {
		return nil, wrapErr("GetForUpdate", err)
	}
	return b, nil
}

// MarkPaid moves a PENDING boleto to PAID. A boleto that is no longer
// pending yields ErrBoletoAlreadyPaid.
func (r *BoletoRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id, payerID uuid.UUID, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE boletos SET status = $1, payer_id = $2, paid_at = $3
		WHERE id = $4 AND status = $5`,
		domain.BoletoStatusPaid, payerID, paidAt, id, domain.BoletoStatusPending,
	)
	if err != nil {
		return wrapErr("MarkPaid", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkPaid: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkPaid: %w", domain.ErrBoletoAlreadyPaid)
	}
	return nil
}

func scanBoleto(s scanner) (*domain.Boleto, error) {
	var (
		b     domain.Boleto
		payer uuid.NullUUID
		paid  sql.NullTime
	)
	err := s.Scan(
		&b.ID, &b.DocumentNumber, &b.Value, &b.IssuerID, &b.Status,
		&payer, &b.CreatedAt, &paid,
	)
	if err != nil {
		return nil, err
	}
	if payer.Valid {
		b.PayerID = &payer.UUID
	}
	if paid.Valid {
		b.PaidAt = &paid.Time
	}
	return &b, nil
}
