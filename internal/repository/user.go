package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const userColumns = `id, name, cpf, password_hash, phone_number, date_of_birth, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr("GetByID", err)
	}
	return u, nil
}

func (r *UserRepository) GetByCPF(ctx context.Context, cpf string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE cpf = $1`, cpf,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr("GetByCPF", err)
	}
	return u, nil
}

// ExistsByCPFOrPhone reports whether any user already holds cpf or phone.
func (r *UserRepository) ExistsByCPFOrPhone(ctx context.Context, cpf, phone string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE cpf = $1 OR phone_number = $2)`,
		cpf, phone,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsByCPFOrPhone: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, tx *sql.Tx, u *domain.User) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.CPF, u.PasswordHash, u.PhoneNumber, u.DateOfBirth, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return wrapErr("Create", err)
	}
	return nil
}

// Update sets the phone number and password hash that are non-nil.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, phone, passwordHash *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET
			phone_number = COALESCE($2, phone_number),
			password_hash = COALESCE($3, password_hash),
			updated_at = now()
		WHERE id = $1`,
		id, phone, passwordHash,
	)
	if err != nil {
		return wrapErr("Update", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrapErr("Delete", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	err := s.Scan(
		&u.ID, &u.Name, &u.CPF, &u.PasswordHash,
		&u.PhoneNumber, &u.DateOfBirth, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
