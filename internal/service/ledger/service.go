// Package ledger is the single entry point for balance-affecting operations.
// Every operation runs inside one database transaction: the balance reads,
// the transaction-log appends and the balance writes commit together or not
// at all.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ssr-04/banking-ledger/internal/domain"
	"github.com/ssr-04/banking-ledger/internal/reference"
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, newVersion int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) ([]domain.Transaction, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, startDate, endDate *time.Time) ([]domain.Transaction, error)
	MarkReversed(ctx context.Context, tx *sql.Tx, reference string) (int64, error)
}

type Service struct {
	accounts     accountRepo
	transactions transactionRepo
	refs         reference.Generator
	db           *sql.DB
	lockTimeout  time.Duration
}

func NewService(accounts accountRepo, transactions transactionRepo, refs reference.Generator, db *sql.DB, lockTimeout time.Duration) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		refs:         refs,
		db:           db,
		lockTimeout:  lockTimeout,
	}
}

// AccountTransactions lists an account's rows ordered by timestamp ascending.
// Nil date bounds mean unbounded. Soft-closed accounts remain listable: the
// history is retained for audit.
func (s *Service) AccountTransactions(ctx context.Context, accountID uuid.UUID, startDate, endDate *time.Time) ([]domain.Transaction, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("AccountTransactions: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("AccountTransactions: %w", err)
	}

	txns, err := s.transactions.GetByAccountID(ctx, accountID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("AccountTransactions: %w", err)
	}
	return txns, nil
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return t, nil
}

// beginTx opens the atomic unit of work and bounds how long its row-lock
// acquisitions may wait. SET LOCAL scopes the timeout to this transaction.
func (s *Service) beginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginTx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("beginTx: lock timeout: %w", err)
	}
	return tx, nil
}

// lockAccountsInOrder acquires FOR UPDATE locks in ascending account-id
// order regardless of the order ids were supplied in, so two concurrent
// operations over the same pair of accounts cannot deadlock.
func (s *Service) lockAccountsInOrder(ctx context.Context, tx *sql.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := s.accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("lockAccountsInOrder: %w", domain.ErrAccountNotFound)
			}
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}

// verifyOperational maps the account's lifecycle state to the error the
// caller sees: soft-deleted rows behave as if the account does not exist,
// suspended or closed rows as not active.
func verifyOperational(acct *domain.Account, role string) error {
	if !acct.Active {
		return fmt.Errorf("%s: %w", role, domain.ErrAccountNotFound)
	}
	if acct.Status != domain.AccountStatusActive {
		return fmt.Errorf("%s: %w", role, domain.ErrAccountNotActive)
	}
	return nil
}
