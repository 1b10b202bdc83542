package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/memledger/internal/domain"
	"github.com/iho/memledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// AccountFromDomain converts an account snapshot to response.
func AccountFromDomain(a domain.AccountView) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
}

// AccountsFromDomain converts account snapshots to responses.
func AccountsFromDomain(accounts []domain.AccountView) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// TransferResponse represents a committed transfer in API responses.
type TransferResponse struct {
	ID                 string          `json:"id"`
	SenderAccountID    string          `json:"sender_account_id"`
	RecipientAccountID string          `json:"recipient_account_id"`
	Amount             decimal.Decimal `json:"amount"`
	SenderBalance      decimal.Decimal `json:"sender_balance"`
	RecipientBalance   decimal.Decimal `json:"recipient_balance"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TransferFromDomain converts domain transfer to response.
func TransferFromDomain(t *domain.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:                 t.ID,
		SenderAccountID:    t.SenderID,
		RecipientAccountID: t.RecipientID,
		Amount:             t.Amount,
		SenderBalance:      t.SenderBalance,
		RecipientBalance:   t.RecipientBalance,
		CreatedAt:          t.CreatedAt,
	}
}

// LedgerReportResponse is the result of a consistency check.
type LedgerReportResponse struct {
	Status          string          `json:"status"`
	Consistent      bool            `json:"consistent"`
	Accounts        int             `json:"accounts"`
	Total           decimal.Decimal `json:"total"`
	Expected        decimal.Decimal `json:"expected"`
	NegativeBalance bool            `json:"negative_balance"`
}

// LedgerReportFromUseCase converts a ledger report to response.
func LedgerReportFromUseCase(r usecase.LedgerReport) *LedgerReportResponse {
	status := "consistent"
	if !r.Consistent {
		status = "inconsistent"
	}

	return &LedgerReportResponse{
		Status:          status,
		Consistent:      r.Consistent,
		Accounts:        r.Accounts,
		Total:           r.Total,
		Expected:        r.Expected,
		NegativeBalance: r.NegativeBalance,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Side      string `json:"side,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}
