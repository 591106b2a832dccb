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

type ledgerService interface {
	Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error)
	Transfer(ctx context.Context, sourceID, destID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, *domain.Transaction, error)
	Reverse(ctx context.Context, reference string) ([]domain.Transaction, error)
	AccountTransactions(ctx context.Context, accountID uuid.UUID, startDate, endDate *time.Time) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

type LedgerHandler struct {
	ledger ledgerService
}

func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

type transactionDTO struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"account_id"`
	Amount          string    `json:"amount"`
	Direction       string    `json:"direction"`
	Type            string    `json:"type"`
	Description     string    `json:"description"`
	ReferenceNumber string    `json:"reference_number"`
	Status          string    `json:"status"`
	BalanceAfter    string    `json:"balance_after"`
	CreatedAt       time.Time `json:"created_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	direction := "credit"
	if t.Debit {
		direction = "debit"
	}
	return transactionDTO{
		ID:              t.ID,
		AccountID:       t.AccountID,
		Amount:          t.Amount.StringFixed(2),
		Direction:       direction,
		Type:            string(t.Type),
		Description:     t.Description,
		ReferenceNumber: t.ReferenceNumber,
		Status:          string(t.Status),
		BalanceAfter:    t.BalanceAfter.StringFixed(2),
		CreatedAt:       t.CreatedAt,
	}
}

func toTransactionDTOs(txns []domain.Transaction) []transactionDTO {
	dtos := make([]transactionDTO, 0, len(txns))
	for i := range txns {
		dtos = append(dtos, toTransactionDTO(&txns[i]))
	}
	return dtos
}

type moveMoneyRequest struct {
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (r moveMoneyRequest) Validate() (uuid.UUID, decimal.Decimal, []FieldError) {
	var errs []FieldError

	accountID, err := uuid.Parse(r.AccountID)
	if err != nil {
		errs = append(errs, FieldError{Field: "account_id", Message: "must be a valid UUID"})
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		errs = append(errs, FieldError{Field: "amount", Message: "must be a valid decimal"})
	} else if !amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}

	return accountID, amount, errs
}

func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.moveMoney(w, r, h.ledger.Deposit)
}

func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveMoney(w, r, h.ledger.Withdraw)
}

func (h *LedgerHandler) moveMoney(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, decimal.Decimal, string) (*domain.Transaction, error)) {
	var req moveMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	accountID, amount, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	txn, err := op(r.Context(), accountID, amount, req.Description)
	if err != nil {
		logging.FromContext(r.Context()).Error("ledger operation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(txn))
}

type transferRequest struct {
	SourceAccountID      string `json:"source_account_id"`
	DestinationAccountID string `json:"destination_account_id"`
	Amount               string `json:"amount"`
	Description          string `json:"description"`
}

func (r transferRequest) Validate() (source, dest uuid.UUID, amount decimal.Decimal, errs []FieldError) {
	var err error

	source, err = uuid.Parse(r.SourceAccountID)
	if err != nil {
		errs = append(errs, FieldError{Field: "source_account_id", Message: "must be a valid UUID"})
	}
	dest, err = uuid.Parse(r.DestinationAccountID)
	if err != nil {
		errs = append(errs, FieldError{Field: "destination_account_id", Message: "must be a valid UUID"})
	}

	amount, err = decimal.NewFromString(r.Amount)
	if err != nil {
		errs = append(errs, FieldError{Field: "amount", Message: "must be a valid decimal"})
	} else if !amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}

	return source, dest, amount, errs
}

type transferResponse struct {
	Debit  transactionDTO `json:"debit"`
	Credit transactionDTO `json:"credit"`
}

func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	source, dest, amount, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	debit, credit, err := h.ledger.Transfer(r.Context(), source, dest, amount, req.Description)
	if err != nil {
		logging.FromContext(r.Context()).Error("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, transferResponse{
		Debit:  toTransactionDTO(debit),
		Credit: toTransactionDTO(credit),
	})
}

func (h *LedgerHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("reference")
	if ref == "" {
		RespondValidationError(w, []FieldError{{Field: "reference", Message: "required"}})
		return
	}

	txns, err := h.ledger.Reverse(r.Context(), ref)
	if err != nil {
		logging.FromContext(r.Context()).Error("reversal failed", "error", err, "reference", ref)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTOs(txns))
}

func (h *LedgerHandler) AccountTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid UUID"}})
		return
	}

	startDate, fields := parseDateParam(r, "start_date")
	endDate, moreFields := parseDateParam(r, "end_date")
	if fields = append(fields, moreFields...); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	txns, err := h.ledger.AccountTransactions(r.Context(), accountID, startDate, endDate)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTOs(txns))
}

func (h *LedgerHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid UUID"}})
		return
	}

	txn, err := h.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(txn))
}

func parseDateParam(r *http.Request, name string) (*time.Time, []FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, []FieldError{{Field: name, Message: "must be an RFC3339 timestamp"}}
	}
	return &t, nil
}
