package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestWrapErr(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "no rows", err: sql.ErrNoRows, wantErr: domain.ErrNotFound},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, wantErr: domain.ErrConflict},
		{name: "numeric out of range", err: &pq.Error{Code: "22003"}, wantErr: domain.ErrInvalidAmount},
		{name: "foreign key violation", err: &pq.Error{Code: "23503"}, wantErr: domain.ErrInvalidOperation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapErr("Op", tc.err)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), "Op: ")
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		err := wrapErr("Op", &pq.Error{Code: "40001"})
		assert.NotErrorIs(t, err, domain.ErrConflict)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAccountRepository_GetByNumber_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery(`FROM accounts a JOIN users u`).
		WithArgs("12345678-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByNumber(context.Background(), "12345678-9")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_UpdateBalance_VersionConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET balance`).
		WithArgs(sqlmock.AnyArg(), int64(3), id, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, id, money.MustNew("10.00"), 3)
	require.ErrorIs(t, err, domain.ErrVersionConflict)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_UpdateBalance_OutOfRange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET balance`).
		WillReturnError(&pq.Error{Code: "22003", Message: "numeric field overflow"})
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, id, money.MustNew("10.00"), 1)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Create_DuplicateNumber(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO accounts`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "accounts_account_number_key"})
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, &domain.Account{ID: uuid.New()})
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, tx.Rollback())
}

func TestBoletoRepository_MarkPaid_AlreadyPaid(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBoletoRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE boletos SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.MarkPaid(context.Background(), tx, uuid.New(), uuid.New(), time.Now())
	require.ErrorIs(t, err, domain.ErrBoletoAlreadyPaid)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, tx.Rollback())
}

func TestTransferRepository_ListByAccount_EmptySkipsPageQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTransferRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transfers`).
		WithArgs("111").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	views, total, err := repo.ListByAccount(context.Background(), TransferQuery{AccountNumber: "111", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, views)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferQuery_Filter(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.AddDate(0, 1, 0)

	tests := []struct {
		name     string
		q        TransferQuery
		wantSQL  string
		wantArgs int
	}{
		{
			name:     "all directions",
			q:        TransferQuery{AccountNumber: "1", Direction: domain.DirectionAll},
			wantSQL:  "(t.from_account_number = $1 OR t.to_account_number = $1)",
			wantArgs: 1,
		},
		{
			name:     "sent",
			q:        TransferQuery{AccountNumber: "1", Direction: domain.DirectionSent},
			wantSQL:  "t.from_account_number = $1",
			wantArgs: 1,
		},
		{
			name:     "received in window",
			q:        TransferQuery{AccountNumber: "1", Direction: domain.DirectionReceived, Since: &since, Until: &until},
			wantSQL:  "t.to_account_number = $1 AND t.created_at >= $2 AND t.created_at < $3",
			wantArgs: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			where, args := tc.q.filter()
			assert.Equal(t, tc.wantSQL, where)
			assert.Len(t, args, tc.wantArgs)
		})
	}
}
