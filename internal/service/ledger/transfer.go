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

// Transfer atomically moves amount from the source account to the
// destination account. It appends two completed rows sharing one reference
// number: a debit on the source and a credit on the destination. Either both
// rows and both balance writes commit, or none do.
func (s *Service) Transfer(ctx context.Context, sourceID, destID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, *domain.Transaction, error) {
	if sourceID == destID {
		return nil, nil, fmt.Errorf("Transfer: %w", domain.ErrSameAccountTransfer)
	}
	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("Transfer: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockAccountsInOrder(ctx, tx, sourceID, destID)
	if err != nil {
		return nil, nil, fmt.Errorf("Transfer: %w", err)
	}
	source, dest := locked[sourceID], locked[destID]

	if err := verifyOperational(source, "source"); err != nil {
		return nil, nil, fmt.Errorf("Transfer: %w", err)
	}
	if err := verifyOperational(dest, "destination"); err != nil {
		return nil, nil, fmt.Errorf("Transfer: %w", err)
	}

	if source.Balance.LessThan(amount) {
		return nil, nil, fmt.Errorf("Transfer: %w", domain.ErrInsufficientFunds)
	}

	ref := s.refs.Next()
	now := time.Now().UTC()
	sourceBalance := source.Balance.Sub(amount)
	destBalance := dest.Balance.Add(amount)

	debit := &domain.Transaction{
		ID:              uuid.New(),
		AccountID:       source.ID,
		Amount:          amount,
		Debit:           true,
		Type:            domain.TransactionTypeTransfer,
		Description:     fmt.Sprintf("%s to %s", description, dest.AccountNumber),
		ReferenceNumber: ref,
		Status:          domain.TransactionStatusCompleted,
		BalanceAfter:    sourceBalance,
		CreatedAt:       now,
	}
	credit := &domain.Transaction{
		ID:              uuid.New(),
		AccountID:       dest.ID,
		Amount:          amount,
		Debit:           false,
		Type:            domain.TransactionTypeTransfer,
		Description:     fmt.Sprintf("%s from %s", description, source.AccountNumber),
		ReferenceNumber: ref,
		Status:          domain.TransactionStatusCompleted,
		BalanceAfter:    destBalance,
		CreatedAt:       now,
	}

	if err := s.transactions.Create(ctx, tx, debit); err != nil {
		return nil, nil, fmt.Errorf("Transfer: debit row: %w", err)
	}
	if err := s.transactions.Create(ctx, tx, credit); err != nil {
		return nil, nil, fmt.Errorf("Transfer: credit row: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, tx, source.ID, sourceBalance, source.Version+1); err != nil {
		return nil, nil, fmt.Errorf("Transfer: update source: %w", err)
	}
	if err := s.accounts.UpdateBalance(ctx, tx, dest.ID, destBalance, dest.Version+1); err != nil {
		return nil, nil, fmt.Errorf("Transfer: update destination: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("Transfer: commit: %w", err)
	}

	logging.FromContext(ctx).Info("transfer completed",
		"source_account", source.ID,
		"destination_account", dest.ID,
		"amount", amount,
		"reference", ref,
	)
	return debit, credit, nil
}
