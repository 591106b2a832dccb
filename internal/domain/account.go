package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings      AccountType = "savings"
	AccountTypeFixedDeposit AccountType = "fixed_deposit"
	AccountTypeCurrent      AccountType = "current"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeFixedDeposit, AccountTypeCurrent:
		return true
	default:
		return false
	}
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusClosed    AccountStatus = "closed"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Account is a customer account row. Balance is mutated only by the ledger
// engine, inside the same database transaction that appends the matching
// Transaction rows. OpeningBalance never changes after creation; replaying
// the account's transaction history on top of it must reproduce Balance.
type Account struct {
	ID             uuid.UUID
	AccountNumber  string
	AccountType    AccountType
	Balance        decimal.Decimal
	OpeningBalance decimal.Decimal
	Version        int64
	Status         AccountStatus
	Active         bool
	OpenedAt       time.Time
}
