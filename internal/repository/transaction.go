package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ssr-04/banking-ledger/internal/domain"
)

const transactionColumns = `id, account_id, amount, is_debit, transaction_type,
	description, reference_number, status, balance_after, created_at`

// TransactionRepository is the append-only transaction log. Completed rows
// are never updated or deleted; the single exception is MarkReversed, which
// transitions status and touches nothing else.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, account_id, amount, is_debit, transaction_type,
			description, reference_number, status, balance_after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		txn.ID, txn.AccountID, txn.Amount, txn.Debit, txn.Type,
		txn.Description, txn.ReferenceNumber, txn.Status, txn.BalanceAfter,
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE reference_number = $1 ORDER BY created_at, id`, reference,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return txns, nil
}

// GetByAccountID lists an account's rows ordered by timestamp ascending, so
// a caller can replay them from the opening balance. Nil bounds mean
// unbounded.
func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, startDate, endDate *time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1`
	args := []any{accountID}

	if startDate != nil {
		args = append(args, *startDate)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if endDate != nil {
		args = append(args, *endDate)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetByAccountID: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("GetByAccountID: %w", err)
	}
	return txns, nil
}

// MarkReversed transitions every completed row under the reference to
// reversed, inside the same transaction that appends the compensating rows.
func (r *TransactionRepository) MarkReversed(ctx context.Context, tx *sql.Tx, reference string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1
		WHERE reference_number = $2 AND status = $3`,
		domain.TransactionStatusReversed, reference, domain.TransactionStatusCompleted,
	)
	if err != nil {
		return 0, fmt.Errorf("MarkReversed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("MarkReversed: rows affected: %w", err)
	}
	return rows, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return txns, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.Scan(
		&t.ID, &t.AccountID, &t.Amount, &t.Debit, &t.Type,
		&t.Description, &t.ReferenceNumber, &t.Status, &t.BalanceAfter,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
