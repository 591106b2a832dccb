// Package service holds the account lifecycle operations that sit next to
// the ledger engine: opening, lookup and soft-closing. Balance mutation
// stays with the engine; closing only flips lifecycle state.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ssr-04/banking-ledger/internal/domain"
	"github.com/ssr-04/banking-ledger/internal/logging"
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	Close(ctx context.Context, tx *sql.Tx, id uuid.UUID, newVersion int64) error
}

type AccountService struct {
	accounts accountRepo
	db       *sql.DB
}

func NewAccountService(accounts accountRepo, db *sql.DB) *AccountService {
	return &AccountService{accounts: accounts, db: db}
}

// OpenAccount creates an active account with the given opening deposit. The
// opening balance is stored immutably so transaction replay has a starting
// point.
func (s *AccountService) OpenAccount(ctx context.Context, accountType domain.AccountType, openingDeposit decimal.Decimal) (*domain.Account, error) {
	if !accountType.IsValid() {
		return nil, fmt.Errorf("OpenAccount: %w", domain.ErrInvalidAccountType)
	}
	if openingDeposit.IsNegative() {
		return nil, fmt.Errorf("OpenAccount: %w", domain.ErrInvalidAmount)
	}

	number, err := s.uniqueAccountNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	account := &domain.Account{
		ID:             uuid.New(),
		AccountNumber:  number,
		AccountType:    accountType,
		Balance:        openingDeposit,
		OpeningBalance: openingDeposit,
		Version:        0,
		Status:         domain.AccountStatusActive,
		Active:         true,
		OpenedAt:       time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	logging.FromContext(ctx).Info("account opened",
		"account_id", account.ID,
		"account_number", account.AccountNumber,
		"account_type", account.AccountType,
	)
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("GetAccount: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	if !account.Active {
		return nil, fmt.Errorf("GetAccount: %w", domain.ErrAccountNotFound)
	}
	return account, nil
}

func (s *AccountService) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	account, err := s.accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("GetAccountByNumber: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetAccountByNumber: %w", err)
	}
	if !account.Active {
		return nil, fmt.Errorf("GetAccountByNumber: %w", domain.ErrAccountNotFound)
	}
	return account, nil
}

// CloseAccount soft-closes the account. Only a zero-balance account may
// close; the row is retained for audit and blocks all future operations.
func (s *AccountService) CloseAccount(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CloseAccount: begin tx: %w", err)
	}
	defer tx.Rollback()

	account, err := s.accounts.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("CloseAccount: %w", domain.ErrAccountNotFound)
		}
		return fmt.Errorf("CloseAccount: %w", err)
	}
	if !account.Active {
		return fmt.Errorf("CloseAccount: %w", domain.ErrAccountNotFound)
	}
	if !account.Balance.IsZero() {
		return fmt.Errorf("CloseAccount: %w", domain.ErrAccountNotEmpty)
	}

	if err := s.accounts.Close(ctx, tx, id, account.Version+1); err != nil {
		return fmt.Errorf("CloseAccount: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CloseAccount: commit: %w", err)
	}

	logging.FromContext(ctx).Info("account closed",
		"account_id", id,
		"account_number", account.AccountNumber,
	)
	return nil
}

// Account numbers are external-facing and unique; regenerate on the odd
// collision rather than relying on the insert failing.
func (s *AccountService) uniqueAccountNumber(ctx context.Context) (string, error) {
	for {
		number := "ACC-" + strings.ToUpper(uuid.NewString()[:8])
		_, err := s.accounts.GetByNumber(ctx, number)
		if errors.Is(err, domain.ErrNotFound) {
			return number, nil
		}
		if err != nil {
			return "", fmt.Errorf("uniqueAccountNumber: %w", err)
		}
	}
}
