package ledger_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssr-04/banking-ledger/internal/domain"
	"github.com/ssr-04/banking-ledger/internal/reference"
	"github.com/ssr-04/banking-ledger/internal/repository"
	"github.com/ssr-04/banking-ledger/internal/service/ledger"
	"github.com/ssr-04/banking-ledger/internal/testutil"
)

func setupLedgerService(t *testing.T, db *sql.DB) *ledger.Service {
	t.Helper()
	return ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		reference.NewGenerator(),
		db,
		2*time.Second,
	)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestDeposit_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeSavings, decimal.Zero)

	txn, err := svc.Deposit(ctx, acct.ID, dec(t, "500"), "seed")

	require.NoError(t, err)
	assert.Equal(t, acct.ID, txn.AccountID)
	assert.True(t, txn.Amount.Equal(dec(t, "500")))
	assert.False(t, txn.Debit)
	assert.Equal(t, domain.TransactionTypeDeposit, txn.Type)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.True(t, txn.BalanceAfter.Equal(dec(t, "500")))
	assert.NotEmpty(t, txn.ReferenceNumber)

	testutil.RequireBalanceEquals(t, "500", testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 1, testutil.CountTransactions(t, db, acct.ID))
}

func TestDeposit_InvalidAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "100"))

	for _, amount := range []string{"0", "-25"} {
		_, err := svc.Deposit(ctx, acct.ID, dec(t, amount), "bad")
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	}

	testutil.RequireBalanceEquals(t, "100", testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, acct.ID))
}

func TestDeposit_AccountNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)

	_, err := svc.Deposit(context.Background(), uuid.New(), dec(t, "10"), "ghost")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestDeposit_SuspendedAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "100"))
	testutil.SuspendAccount(t, db, acct.ID)

	_, err := svc.Deposit(ctx, acct.ID, dec(t, "10"), "suspended")
	require.ErrorIs(t, err, domain.ErrAccountNotActive)

	testutil.RequireBalanceEquals(t, "100", testutil.GetAccountBalance(t, db, acct.ID))
}

func TestWithdraw_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "500"))

	txn, err := svc.Withdraw(ctx, acct.ID, dec(t, "300"), "groceries")

	require.NoError(t, err)
	assert.True(t, txn.Debit)
	assert.Equal(t, domain.TransactionTypeWithdrawal, txn.Type)
	assert.True(t, txn.BalanceAfter.Equal(dec(t, "200")))

	testutil.RequireBalanceEquals(t, "200", testutil.GetAccountBalance(t, db, acct.ID))
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "300"))

	_, err := svc.Withdraw(ctx, acct.ID, dec(t, "1000"), "overdraw")

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	testutil.RequireBalanceEquals(t, "300", testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, acct.ID))
}

func TestTransfer_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	source := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "500"))
	dest := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "50"))

	debit, credit, err := svc.Transfer(ctx, source.ID, dest.ID, dec(t, "200"), "rent")

	require.NoError(t, err)

	assert.Equal(t, source.ID, debit.AccountID)
	assert.True(t, debit.Debit)
	assert.True(t, debit.Amount.Equal(dec(t, "200")))
	assert.True(t, debit.BalanceAfter.Equal(dec(t, "300")))
	assert.Equal(t, domain.TransactionTypeTransfer, debit.Type)
	assert.Equal(t, "rent to "+dest.AccountNumber, debit.Description)

	assert.Equal(t, dest.ID, credit.AccountID)
	assert.False(t, credit.Debit)
	assert.True(t, credit.Amount.Equal(dec(t, "200")))
	assert.True(t, credit.BalanceAfter.Equal(dec(t, "250")))
	assert.Equal(t, "rent from "+source.AccountNumber, credit.Description)

	require.NotEmpty(t, debit.ReferenceNumber)
	assert.Equal(t, debit.ReferenceNumber, credit.ReferenceNumber)
	assert.NotEqual(t, debit.ID, credit.ID)
	assert.Equal(t, 2, testutil.CountReferenceRows(t, db, debit.ReferenceNumber))

	testutil.RequireBalanceEquals(t, "300", testutil.GetAccountBalance(t, db, source.ID))
	testutil.RequireBalanceEquals(t, "250", testutil.GetAccountBalance(t, db, dest.ID))
}

func TestTransfer_Conservation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	source := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "812.45"))
	dest := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "187.55"))
	totalBefore := dec(t, "1000.00")

	_, _, err := svc.Transfer(ctx, source.ID, dest.ID, dec(t, "99.99"), "split")
	require.NoError(t, err)

	totalAfter := testutil.GetAccountBalance(t, db, source.ID).
		Add(testutil.GetAccountBalance(t, db, dest.ID))
	assert.True(t, totalBefore.Equal(totalAfter), "transfer must conserve total balance")
}

func TestTransfer_SameAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)

	acct := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "100"))

	_, _, err := svc.Transfer(context.Background(), acct.ID, acct.ID, dec(t, "10"), "loop")
	require.ErrorIs(t, err, domain.ErrSameAccountTransfer)
}

func TestTransfer_InsufficientFunds_Atomicity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	source := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "100"))
	dest := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "40"))

	_, _, err := svc.Transfer(ctx, source.ID, dest.ID, dec(t, "150"), "too much")

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	testutil.RequireBalanceEquals(t, "100", testutil.GetAccountBalance(t, db, source.ID))
	testutil.RequireBalanceEquals(t, "40", testutil.GetAccountBalance(t, db, dest.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, source.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, dest.ID))
}

func TestTransfer_SuspendedDestination_Atomicity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	source := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "100"))
	dest := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "40"))
	testutil.SuspendAccount(t, db, dest.ID)

	_, _, err := svc.Transfer(ctx, source.ID, dest.ID, dec(t, "50"), "frozen")

	require.ErrorIs(t, err, domain.ErrAccountNotActive)
	testutil.RequireBalanceEquals(t, "100", testutil.GetAccountBalance(t, db, source.ID))
	testutil.RequireBalanceEquals(t, "40", testutil.GetAccountBalance(t, db, dest.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, source.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, dest.ID))
}

func TestWithdraw_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "100"))

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(ctx, acct.ID, dec(t, "70"), "race")
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
	testutil.RequireBalanceEquals(t, "30", testutil.GetAccountBalance(t, db, acct.ID))
}

func TestTransfer_OppositeDirections_NoDeadlock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	a := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "1000"))
	b := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "1000"))

	const rounds = 10
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)

	for range rounds {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := svc.Transfer(ctx, a.ID, b.ID, dec(t, "5"), "ping")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, _, err := svc.Transfer(ctx, b.ID, a.ID, dec(t, "3"), "pong")
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	total := testutil.GetAccountBalance(t, db, a.ID).
		Add(testutil.GetAccountBalance(t, db, b.ID))
	assert.True(t, dec(t, "2000").Equal(total))
}

func TestAuditReconstruction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "100"))
	other := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "500"))

	_, err := svc.Deposit(ctx, acct.ID, dec(t, "250.50"), "salary")
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, acct.ID, dec(t, "80.25"), "bills")
	require.NoError(t, err)
	_, _, err = svc.Transfer(ctx, other.ID, acct.ID, dec(t, "19.75"), "gift")
	require.NoError(t, err)
	_, _, err = svc.Transfer(ctx, acct.ID, other.ID, dec(t, "40"), "loan")
	require.NoError(t, err)

	txns, err := svc.AccountTransactions(ctx, acct.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, txns, 4)

	replayed := acct.OpeningBalance
	for _, txn := range txns {
		if txn.Debit {
			replayed = replayed.Sub(txn.Amount)
		} else {
			replayed = replayed.Add(txn.Amount)
		}
		assert.True(t, replayed.Equal(txn.BalanceAfter),
			"balance snapshot mismatch at %s: replayed %s, stored %s", txn.ID, replayed, txn.BalanceAfter)
	}

	stored := testutil.GetAccountBalance(t, db, acct.ID)
	assert.True(t, replayed.Equal(stored),
		"replaying history must reproduce the stored balance: got %s, stored %s", replayed, stored)
}

func TestReverse_Transfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	source := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "500"))
	dest := testutil.SeedAccount(t, db, domain.AccountTypeCurrent, dec(t, "100"))

	debit, _, err := svc.Transfer(ctx, source.ID, dest.ID, dec(t, "200"), "rent")
	require.NoError(t, err)

	comps, err := svc.Reverse(ctx, debit.ReferenceNumber)
	require.NoError(t, err)
	require.Len(t, comps, 2)

	assert.NotEqual(t, debit.ReferenceNumber, comps[0].ReferenceNumber)
	assert.Equal(t, comps[0].ReferenceNumber, comps[1].ReferenceNumber)
	for _, c := range comps {
		assert.Equal(t, domain.TransactionStatusCompleted, c.Status)
		assert.True(t, c.Amount.Equal(dec(t, "200")))
	}

	testutil.RequireBalanceEquals(t, "500", testutil.GetAccountBalance(t, db, source.ID))
	testutil.RequireBalanceEquals(t, "100", testutil.GetAccountBalance(t, db, dest.ID))

	// Originals flip to reversed but are otherwise untouched.
	originals, err := svc.AccountTransactions(ctx, source.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, originals, 2)
	assert.Equal(t, domain.TransactionStatusReversed, originals[0].Status)
	assert.True(t, originals[0].Amount.Equal(dec(t, "200")))
}

func TestReverse_AlreadyReversed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeSavings, dec(t, "100"))

	txn, err := svc.Deposit(ctx, acct.ID, dec(t, "50"), "oops")
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, txn.ReferenceNumber)
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, txn.ReferenceNumber)
	require.ErrorIs(t, err, domain.ErrAlreadyReversed)

	testutil.RequireBalanceEquals(t, "100", testutil.GetAccountBalance(t, db, acct.ID))
}

func TestReverse_UnknownReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)

	_, err := svc.Reverse(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountTransactions_DateRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountTypeSavings, decimal.Zero)

	_, err := svc.Deposit(ctx, acct.ID, dec(t, "10"), "first")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(20 * time.Millisecond)

	_, err = svc.Deposit(ctx, acct.ID, dec(t, "20"), "second")
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, acct.ID, dec(t, "30"), "third")
	require.NoError(t, err)

	all, err := svc.AccountTransactions(ctx, acct.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Description)
	assert.True(t, all[0].CreatedAt.Before(all[2].CreatedAt) || all[0].CreatedAt.Equal(all[2].CreatedAt))

	recent, err := svc.AccountTransactions(ctx, acct.ID, &cutoff, nil)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Description)

	early, err := svc.AccountTransactions(ctx, acct.ID, nil, &cutoff)
	require.NoError(t, err)
	require.Len(t, early, 1)
	assert.Equal(t, "first", early[0].Description)
}

func TestAccountTransactions_UnknownAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)

	_, err := svc.AccountTransactions(context.Background(), uuid.New(), nil, nil)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
