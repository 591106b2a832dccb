package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ssr-04/banking-ledger/internal/domain"
	"github.com/ssr-04/banking-ledger/internal/logging"
)

// Deposit credits amount to the account and appends one completed credit row
// carrying the post-deposit balance snapshot.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	txn, err := s.applySingleEntry(ctx, accountID, amount, description, domain.TransactionTypeDeposit, false)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	logging.FromContext(ctx).Info("deposit completed",
		"account_id", accountID,
		"amount", amount,
		"reference", txn.ReferenceNumber,
	)
	return txn, nil
}

// Withdraw debits amount from the account. The sufficient-funds check runs
// against the locked row, so two concurrent withdrawals cannot both pass it.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	txn, err := s.applySingleEntry(ctx, accountID, amount, description, domain.TransactionTypeWithdrawal, true)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	logging.FromContext(ctx).Info("withdrawal completed",
		"account_id", accountID,
		"amount", amount,
		"reference", txn.ReferenceNumber,
	)
	return txn, nil
}

func (s *Service) applySingleEntry(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string, txnType domain.TransactionType, debit bool) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	locked, err := s.lockAccountsInOrder(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	acct := locked[accountID]

	if err := verifyOperational(acct, "account"); err != nil {
		return nil, err
	}

	var newBalance decimal.Decimal
	if debit {
		if acct.Balance.LessThan(amount) {
			return nil, domain.ErrInsufficientFunds
		}
		newBalance = acct.Balance.Sub(amount)
	} else {
		newBalance = acct.Balance.Add(amount)
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		AccountID:       acct.ID,
		Amount:          amount,
		Debit:           debit,
		Type:            txnType,
		Description:     description,
		ReferenceNumber: s.refs.Next(),
		Status:          domain.TransactionStatusCompleted,
		BalanceAfter:    newBalance,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := s.accounts.UpdateBalance(ctx, tx, acct.ID, newBalance, acct.Version+1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return txn, nil
}
