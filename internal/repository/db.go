package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const (
	uniqueViolation        = "23505"
	foreignKeyViolation    = "23503"
	numericValueOutOfRange = "22003"
)

type scanner interface {
	Scan(dest ...any) error
}

// wrapErr prefixes err with op and maps driver errors onto the domain
// sentinels: a missing row becomes ErrNotFound, a unique constraint
// violation becomes ErrConflict, deleting a row other rows still reference
// becomes ErrInvalidOperation and a value too large for its NUMERIC column
// becomes ErrInvalidAmount.
func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	}
	if hasCode(err, foreignKeyViolation) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrInvalidOperation, err)
	}
	if hasCode(err, numericValueOutOfRange) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrInvalidAmount, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
