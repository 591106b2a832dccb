package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ssr-04/banking-ledger/internal/domain"
)

const accountColumns = `id, account_number, account_type, balance, opening_balance,
	version, status, is_active, opened_at`

type scanner interface {
	Scan(dest ...any) error
}

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByNumber: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByNumber: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			id, account_number, account_type, balance, opening_balance,
			version, status, is_active, opened_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.AccountNumber, account.AccountType,
		account.Balance, account.OpeningBalance, account.Version,
		account.Status, account.Active, account.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetForUpdate locks the account row until the enclosing transaction commits
// or rolls back. A lock wait exceeding the transaction's lock_timeout
// surfaces as domain.ErrBusy.
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		if isLockTimeout(err) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrBusy)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// UpdateBalance applies a version-checked balance write inside tx. The row
// lock taken by GetForUpdate should make a conflict impossible; the version
// check defends against a write that bypassed the locking discipline.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, version = $2 WHERE id = $3 AND version = $4`,
		newBalance, newVersion, id, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
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

// Close soft-deletes the account: the row is kept for audit but no further
// balance-affecting operation will resolve it.
func (r *AccountRepository) Close(ctx context.Context, tx *sql.Tx, id uuid.UUID, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET status = $1, is_active = FALSE, version = $2
		WHERE id = $3 AND version = $4`,
		domain.AccountStatusClosed, newVersion, id, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("Close: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Close: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Close: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.AccountNumber, &a.AccountType,
		&a.Balance, &a.OpeningBalance, &a.Version,
		&a.Status, &a.Active, &a.OpenedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// 55P03 lock_not_available: raised when lock_timeout expires while waiting
// on another transaction's FOR UPDATE lock.
func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "55P03"
}
