package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypeInterest   TransactionType = "interest"
	TransactionTypeCharge     TransactionType = "charge"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction is one account-side of a money movement. A transfer writes two
// rows sharing one ReferenceNumber: a debit on the source and a credit on the
// destination, with equal Amount. Rows are append-only; the only permitted
// mutation after insert is the Completed -> Reversed status transition, and
// reversal itself appends new rows rather than editing these.
type Transaction struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Amount          decimal.Decimal
	Debit           bool
	Type            TransactionType
	Description     string
	ReferenceNumber string
	Status          TransactionStatus
	BalanceAfter    decimal.Decimal
	CreatedAt       time.Time
}
