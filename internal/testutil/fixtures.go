package testutil

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ssr-04/banking-ledger/internal/domain"
)

func SeedAccount(t *testing.T, db *sql.DB, accountType domain.AccountType, balance decimal.Decimal) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:             uuid.New(),
		AccountNumber:  "ACC-" + strings.ToUpper(uuid.NewString()[:8]),
		AccountType:    accountType,
		Balance:        balance,
		OpeningBalance: balance,
		Version:        0,
		Status:         domain.AccountStatusActive,
		Active:         true,
		OpenedAt:       time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, account_number, account_type, balance, opening_balance,
			version, status, is_active, opened_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.AccountNumber, a.AccountType, a.Balance, a.OpeningBalance,
		a.Version, a.Status, a.Active, a.OpenedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", a.AccountNumber, err)
	}
	return a
}

func SuspendAccount(t *testing.T, db *sql.DB, accountID uuid.UUID) {
	t.Helper()

	if _, err := db.Exec(
		`UPDATE accounts SET status = $1 WHERE id = $2`,
		domain.AccountStatusSuspended, accountID,
	); err != nil {
		t.Fatalf("suspend account %s: %v", accountID, err)
	}
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountID, err)
	}
	return balance
}

func CountTransactions(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for account %s: %v", accountID, err)
	}
	return count
}

func CountReferenceRows(t *testing.T, db *sql.DB, reference string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE reference_number = $1`, reference).Scan(&count)
	if err != nil {
		t.Fatalf("count rows for reference %s: %v", reference, err)
	}
	return count
}

// RequireBalanceEquals compares decimals by value; Equal on decimal.Decimal
// distinguishes 30 from 30.00, which is noise here.
func RequireBalanceEquals(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()

	w, err := decimal.NewFromString(want)
	if err != nil {
		t.Fatalf("bad expected balance %q: %v", want, err)
	}
	if !w.Equal(got) {
		t.Fatalf("balance mismatch: want %s, got %s", w, got)
	}
}
