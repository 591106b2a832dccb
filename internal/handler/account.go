package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ssr-04/banking-ledger/internal/domain"
	"github.com/ssr-04/banking-ledger/internal/logging"
)

type accountService interface {
	OpenAccount(ctx context.Context, accountType domain.AccountType, openingDeposit decimal.Decimal) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	CloseAccount(ctx context.Context, id uuid.UUID) error
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type openAccountRequest struct {
	AccountType    string `json:"account_type"`
	OpeningDeposit string `json:"opening_deposit"`
}

func (r openAccountRequest) Validate() (domain.AccountType, decimal.Decimal, []FieldError) {
	var errs []FieldError

	accountType := domain.AccountType(r.AccountType)
	if !accountType.IsValid() {
		errs = append(errs, FieldError{Field: "account_type", Message: "must be savings, fixed_deposit, or current"})
	}

	deposit := decimal.Zero
	if r.OpeningDeposit != "" {
		var err error
		deposit, err = decimal.NewFromString(r.OpeningDeposit)
		if err != nil {
			errs = append(errs, FieldError{Field: "opening_deposit", Message: "must be a valid decimal"})
		} else if deposit.IsNegative() {
			errs = append(errs, FieldError{Field: "opening_deposit", Message: "must not be negative"})
		}
	}

	return accountType, deposit, errs
}

type accountDTO struct {
	ID             uuid.UUID `json:"id"`
	AccountNumber  string    `json:"account_number"`
	AccountType    string    `json:"account_type"`
	Balance        string    `json:"balance"`
	OpeningBalance string    `json:"opening_balance"`
	Status         string    `json:"status"`
	OpenedAt       time.Time `json:"opened_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:             a.ID,
		AccountNumber:  a.AccountNumber,
		AccountType:    string(a.AccountType),
		Balance:        a.Balance.StringFixed(2),
		OpeningBalance: a.OpeningBalance.StringFixed(2),
		Status:         string(a.Status),
		OpenedAt:       a.OpenedAt,
	}
}

func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	accountType, deposit, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.OpenAccount(r.Context(), accountType, deposit)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to open account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAccountDTO(account))
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid UUID"}})
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid UUID"}})
		return
	}

	if err := h.accounts.CloseAccount(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Error("failed to close account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "closed"})
}
