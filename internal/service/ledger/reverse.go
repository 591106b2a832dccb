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

// Reverse compensates a completed operation identified by its reference
// number. It appends opposite-signed rows under a fresh shared reference and
// transitions the original rows to reversed. The originals are never edited
// beyond that status flip, so the audit trail stays intact.
func (s *Service) Reverse(ctx context.Context, ref string) ([]domain.Transaction, error) {
	originals, err := s.transactions.GetByReference(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}
	if len(originals) == 0 {
		return nil, fmt.Errorf("Reverse: %w", domain.ErrNotFound)
	}
	for _, o := range originals {
		if o.Status != domain.TransactionStatusCompleted {
			return nil, fmt.Errorf("Reverse: %w", domain.ErrAlreadyReversed)
		}
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}
	defer tx.Rollback()

	accountIDs := uniqueAccountIDs(originals)
	locked, err := s.lockAccountsInOrder(ctx, tx, accountIDs...)
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}
	for _, id := range accountIDs {
		if err := verifyOperational(locked[id], "account"); err != nil {
			return nil, fmt.Errorf("Reverse: %w", err)
		}
	}

	newRef := s.refs.Next()
	now := time.Now().UTC()
	balances := make(map[uuid.UUID]decimal.Decimal, len(locked))
	for id, acct := range locked {
		balances[id] = acct.Balance
	}

	compensations := make([]domain.Transaction, 0, len(originals))
	for _, o := range originals {
		debit := !o.Debit
		balance := balances[o.AccountID]

		var newBalance decimal.Decimal
		if debit {
			if balance.LessThan(o.Amount) {
				return nil, fmt.Errorf("Reverse: %w", domain.ErrInsufficientFunds)
			}
			newBalance = balance.Sub(o.Amount)
		} else {
			newBalance = balance.Add(o.Amount)
		}

		comp := domain.Transaction{
			ID:              uuid.New(),
			AccountID:       o.AccountID,
			Amount:          o.Amount,
			Debit:           debit,
			Type:            o.Type,
			Description:     fmt.Sprintf("reversal of %s", ref),
			ReferenceNumber: newRef,
			Status:          domain.TransactionStatusCompleted,
			BalanceAfter:    newBalance,
			CreatedAt:       now,
		}
		if err := s.transactions.Create(ctx, tx, &comp); err != nil {
			return nil, fmt.Errorf("Reverse: compensating row: %w", err)
		}

		balances[o.AccountID] = newBalance
		compensations = append(compensations, comp)
	}

	for _, id := range accountIDs {
		if err := s.accounts.UpdateBalance(ctx, tx, id, balances[id], locked[id].Version+1); err != nil {
			return nil, fmt.Errorf("Reverse: update %s: %w", id, err)
		}
	}

	flipped, err := s.transactions.MarkReversed(ctx, tx, ref)
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}
	if flipped != int64(len(originals)) {
		return nil, fmt.Errorf("Reverse: %w", domain.ErrAlreadyReversed)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Reverse: commit: %w", err)
	}

	logging.FromContext(ctx).Info("reversal completed",
		"reference", ref,
		"reversal_reference", newRef,
		"rows", len(compensations),
	)
	return compensations, nil
}

func uniqueAccountIDs(txns []domain.Transaction) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(txns))
	ids := make([]uuid.UUID, 0, len(txns))
	for _, t := range txns {
		if _, ok := seen[t.AccountID]; ok {
			continue
		}
		seen[t.AccountID] = struct{}{}
		ids = append(ids, t.AccountID)
	}
	return ids
}
