package dto

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/memledger/internal/domain"
	"github.com/iho/memledger/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	AccountID string              `json:"account_id"`
	Balance   decimal.NullDecimal `json:"balance"`
}

// ToUseCaseInput converts to use case input. A missing balance opens the
// account at zero.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	balance := decimal.Zero
	if r.Balance.Valid {
		balance = r.Balance.Decimal
	}

	return usecase.CreateAccountInput{
		ID:      strings.TrimSpace(r.AccountID),
		Balance: balance,
	}
}

// CreateTransferRequest represents a request to move funds.
type CreateTransferRequest struct {
	SenderAccountID    string              `json:"sender_account_id"`
	RecipientAccountID string              `json:"recipient_account_id"`
	Amount             decimal.NullDecimal `json:"amount"`
}

// ToUseCaseInput validates the request and converts it to use case input.
func (r *CreateTransferRequest) ToUseCaseInput() (usecase.TransferInput, error) {
	if strings.TrimSpace(r.SenderAccountID) == "" {
		return usecase.TransferInput{}, fmt.Errorf("%w: sender_account_id is required", domain.ErrInvalidAccountID)
	}
	if strings.TrimSpace(r.RecipientAccountID) == "" {
		return usecase.TransferInput{}, fmt.Errorf("%w: recipient_account_id is required", domain.ErrInvalidAccountID)
	}
	if !r.Amount.Valid {
		return usecase.TransferInput{}, fmt.Errorf("%w: amount is required", domain.ErrInvalidAmount)
	}
	if err := domain.ValidateAmount(r.Amount.Decimal); err != nil {
		return usecase.TransferInput{}, err
	}

	return usecase.TransferInput{
		SenderID:    r.SenderAccountID,
		RecipientID: r.RecipientAccountID,
		Amount:      r.Amount.Decimal,
	}, nil
}
