package ledger_test

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/money"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
	"github.com/josh-kwaku/bank-ledger/internal/service/ledger"
	"github.com/josh-kwaku/bank-ledger/internal/testutil"
)

func setupLedgerService(t *testing.T, db *sql.DB) *ledger.Service {
	t.Helper()
	return ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewTransferRepository(db),
		repository.NewBoletoRepository(db),
		repository.NewUserRepository(db),
		auth.NewBcryptVerifier(bcrypt.MinCost),
		nil,
		db,
	)
}

func TestDeposit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "50.00")

	res, err := svc.Deposit(ctx, "11111111-1", money.MustNew("100"), testutil.Password)
	require.NoError(t, err)
	assert.Equal(t, "Amount deposited: 100.00", res.Message)
	assert.Equal(t, "Alice", res.OwnerName)
	assert.Equal(t, domain.DefaultAgency, res.AgencyNumber)
	assert.Equal(t, "150.00", res.Balance.String())
	assert.Equal(t, "150.00", testutil.GetAccountBalance(t, db, "11111111-1").String())

	_, err = svc.Deposit(ctx, "11111111-1", money.MustNew("-5"), testutil.Password)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Deposit(ctx, "11111111-1", money.MustNew("10"), "654321")
	require.ErrorIs(t, err, domain.ErrInvalidCredential)

	_, err = svc.Deposit(ctx, "99999999-9", money.MustNew("10"), testutil.Password)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	assert.Equal(t, "150.00", testutil.GetAccountBalance(t, db, "11111111-1").String())
}

func TestDeposit_BalanceOverflowIsRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "9999999999999999.00")
	testutil.SeedCustomer(t, db, "Bob", "22222222-2", "5.00")

	_, err := svc.Deposit(ctx, "11111111-1", money.MustNew("1.00"), testutil.Password)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Transfer(ctx, ledger.TransferRequest{
		FromAccountNumber: "22222222-2",
		ToAccountNumber:   "11111111-1",
		Amount:            money.MustNew("5.00"),
		Credential:        testutil.Password,
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.Equal(t, "9999999999999999.00", testutil.GetAccountBalance(t, db, "11111111-1").String())
	assert.Equal(t, "5.00", testutil.GetAccountBalance(t, db, "22222222-2").String())
	assert.Zero(t, testutil.CountTransfers(t, db, "22222222-2"))

	res, err := svc.Deposit(ctx, "11111111-1", money.MustNew("0.99"), testutil.Password)
	require.NoError(t, err)
	assert.True(t, res.Balance.Equal(money.MaxAmount))
}

func TestWithdraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "150.00")

	_, err := svc.Withdraw(ctx, "11111111-1", money.MustNew("200"), testutil.Password)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "150.00", testutil.GetAccountBalance(t, db, "11111111-1").String())

	res, err := svc.Withdraw(ctx, "11111111-1", money.MustNew("150"), testutil.Password)
	require.NoError(t, err)
	assert.Equal(t, "Amount withdrawn: 150.00", res.Message)
	assert.True(t, res.Balance.IsZero())
}

func TestWithdraw_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "100.00")

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(ctx, "11111111-1", money.MustNew("80"), testutil.Password)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one withdrawal should succeed")
	assert.Equal(t, 1, failures, "exactly one withdrawal should fail")
	assert.Equal(t, "20.00", testutil.GetAccountBalance(t, db, "11111111-1").String())
}

func TestCheckBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "42.10")

	res, err := svc.CheckBalance(ctx, "11111111-1", testutil.Password)
	require.NoError(t, err)
	assert.Equal(t, "Alice", res.OwnerName)
	assert.Equal(t, "42.10", res.Balance.String())

	_, err = svc.CheckBalance(ctx, "11111111-1", "000000")
	require.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestTransfer_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "100.00")
	testutil.SeedCustomer(t, db, "Bob", "22222222-2", "0.00")

	res, err := svc.Transfer(ctx, ledger.TransferRequest{
		FromAccountNumber: "11111111-1",
		ToAccountNumber:   "22222222-2",
		Amount:            money.MustNew("75"),
		Credential:        testutil.Password,
	})
	require.NoError(t, err)

	assert.Equal(t, "Transfer of 75.00 completed successfully", res.Message)
	assert.Equal(t, "25.00", res.From.Balance.String())
	assert.Equal(t, "75.00", res.To.Balance.String())
	assert.Equal(t, "11111111-1", res.Transfer.FromAccountNumber)
	assert.Equal(t, "22222222-2", res.Transfer.ToAccountNumber)

	assert.Equal(t, "25.00", testutil.GetAccountBalance(t, db, "11111111-1").String())
	assert.Equal(t, "75.00", testutil.GetAccountBalance(t, db, "22222222-2").String())
	assert.Equal(t, 1, testutil.CountTransfers(t, db, "11111111-1"))
}

func TestTransfer_Failures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "100.00")
	testutil.SeedCustomer(t, db, "Bob", "22222222-2", "0.00")

	tests := []struct {
		name    string
		req     ledger.TransferRequest
		wantErr error
	}{
		{
			name:    "insufficient funds",
			req:     ledger.TransferRequest{FromAccountNumber: "11111111-1", ToAccountNumber: "22222222-2", Amount: money.MustNew("100.01"), Credential: testutil.Password},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name:    "wrong credential",
			req:     ledger.TransferRequest{FromAccountNumber: "11111111-1", ToAccountNumber: "22222222-2", Amount: money.MustNew("1"), Credential: "999999"},
			wantErr: domain.ErrInvalidCredential,
		},
		{
			name:    "unknown source",
			req:     ledger.TransferRequest{FromAccountNumber: "99999999-9", ToAccountNumber: "22222222-2", Amount: money.MustNew("1"), Credential: testutil.Password},
			wantErr: domain.ErrSourceAccountNotFound,
		},
		{
			name:    "unknown destination",
			req:     ledger.TransferRequest{FromAccountNumber: "11111111-1", ToAccountNumber: "99999999-9", Amount: money.MustNew("1"), Credential: testutil.Password},
			wantErr: domain.ErrDestinationAccountNotFound,
		},
		{
			name:    "same account",
			req:     ledger.TransferRequest{FromAccountNumber: "11111111-1", ToAccountNumber: "11111111-1", Amount: money.MustNew("1"), Credential: testutil.Password},
			wantErr: domain.ErrInvalidOperation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Transfer(ctx, tc.req)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	assert.Equal(t, "100.00", testutil.GetAccountBalance(t, db, "11111111-1").String())
	assert.Equal(t, "0.00", testutil.GetAccountBalance(t, db, "22222222-2").String())
	assert.Equal(t, 0, testutil.CountTransfers(t, db, "11111111-1"))
}

func TestTransfer_OpposingDirectionsDoNotDeadlock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "500.00")
	testutil.SeedCustomer(t, db, "Bob", "22222222-2", "500.00")

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := range 20 {
		from, to := "11111111-1", "22222222-2"
		if i%2 == 1 {
			from, to = to, from
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, ledger.TransferRequest{
				FromAccountNumber: from,
				ToAccountNumber:   to,
				Amount:            money.MustNew("10"),
				Credential:        testutil.Password,
			})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	total := testutil.GetAccountBalance(t, db, "11111111-1").Add(testutil.GetAccountBalance(t, db, "22222222-2"))
	assert.Equal(t, "1000.00", total.String())
	assert.Equal(t, 20, testutil.CountTransfers(t, db, "11111111-1"))
}

func TestTransfer_ConcurrentReadersNeverSeeHalfATransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	testutil.SeedCustomer(t, db, "Alice", "11111111-1", "300.00")
	testutil.SeedCustomer(t, db, "Bob", "22222222-2", "300.00")
	total := money.MustNew("600.00")

	var (
		writers sync.WaitGroup
		readers sync.WaitGroup
		done    atomic.Bool
		mu      sync.Mutex
		sums    []string
		bad     []string
		reads   atomic.Int32
	)

	for i := range 30 {
		from, to := "11111111-1", "22222222-2"
		if i%2 == 1 {
			from, to = to, from
		}
		writers.Add(1)
		go func() {
			defer writers.Done()
			_, err := svc.Transfer(ctx, ledger.TransferRequest{
				FromAccountNumber: from,
				ToAccountNumber:   to,
				Amount:            money.MustNew("7.50"),
				Credential:        testutil.Password,
			})
			assert.NoError(t, err)
		}()
	}

	// One statement reads one snapshot, so its sum must never catch a debit
	// without the matching credit.
	readers.Add(1)
	go func() {
		defer readers.Done()
		for first := true; first || !done.Load(); first = false {
			var sum money.Money
			err := db.QueryRowContext(ctx,
				`SELECT SUM(balance) FROM accounts WHERE account_number IN ('11111111-1', '22222222-2')`,
			).Scan(&sum)
			if !assert.NoError(t, err) {
				return
			}
			if !sum.Equal(total) {
				mu.Lock()
				sums = append(sums, sum.String())
				mu.Unlock()
			}
		}
	}()

	for _, number := range []string{"11111111-1", "22222222-2"} {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for first := true; first || !done.Load(); first = false {
				res, err := svc.CheckBalance(ctx, number, testutil.Password)
				if !assert.NoError(t, err) {
					return
				}
				reads.Add(1)
				if res.Balance.IsNegative() || total.LessThan(res.Balance) {
					mu.Lock()
					bad = append(bad, number+"="+res.Balance.String())
					mu.Unlock()
				}
			}
		}()
	}

	writers.Wait()
	done.Store(true)
	readers.Wait()

	assert.Empty(t, sums, "snapshot sums that differ from the total")
	assert.Empty(t, bad, "balances outside [0, total]")
	assert.Positive(t, reads.Load())

	final := testutil.GetAccountBalance(t, db, "11111111-1").Add(testutil.GetAccountBalance(t, db, "22222222-2"))
	assert.True(t, final.Equal(total), final.String())
	assert.Equal(t, 30, testutil.CountTransfers(t, db, "11111111-1"))
}

func TestBoletoLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	issuer := testutil.SeedUser(t, db, "Issuer")
	payer := testutil.SeedUser(t, db, "Payer")

	b, err := svc.CreateBoleto(ctx, money.MustNew("5000"), issuer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BoletoStatusPending, b.Status)
	assert.Len(t, b.DocumentNumber, 12)

	_, err = svc.PayBoleto(ctx, issuer.ID, b.DocumentNumber)
	require.ErrorIs(t, err, domain.ErrInvalidOperation)

	res, err := svc.PayBoleto(ctx, payer.ID, b.DocumentNumber)
	require.NoError(t, err)
	assert.Equal(t, "Boleto paid successfully", res.Message)
	assert.Equal(t, domain.BoletoStatusPaid, res.Boleto.Status)
	require.NotNil(t, res.Boleto.PayerID)
	assert.Equal(t, payer.ID, *res.Boleto.PayerID)
	assert.NotNil(t, res.Boleto.PaidAt)

	_, err = svc.PayBoleto(ctx, payer.ID, b.DocumentNumber)
	require.ErrorIs(t, err, domain.ErrBoletoAlreadyPaid)
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := repository.NewBoletoRepository(db).GetByDocumentNumber(ctx, b.DocumentNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.BoletoStatusPaid, stored.Status)
	assert.True(t, stored.Value.Equal(money.MustNew("5000")))

	_, err = svc.PayBoleto(ctx, payer.ID, "000000000000")
	require.ErrorIs(t, err, domain.ErrBoletoNotFound)
}

func TestPayBoleto_ConcurrentPayersOnlyOneWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	issuer := testutil.SeedUser(t, db, "Issuer")
	payers := []*domain.User{testutil.SeedUser(t, db, "Payer One"), testutil.SeedUser(t, db, "Payer Two")}

	b, err := svc.CreateBoleto(ctx, money.MustNew("12.50"), issuer.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, len(payers))
	for _, p := range payers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PayBoleto(ctx, p.ID, b.DocumentNumber)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrBoletoAlreadyPaid)
	}
	assert.Equal(t, 1, successes)
}
