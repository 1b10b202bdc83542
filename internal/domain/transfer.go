package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is the record of a committed money movement between two accounts.
// SenderBalance and RecipientBalance are the balances published by the transfer.
type Transfer struct {
	CreatedAt        time.Time
	ID               string
	SenderID         string
	RecipientID      string
	Amount           decimal.Decimal
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

// IsSelfTransfer reports whether sender and recipient are the same account.
func (t *Transfer) IsSelfTransfer() bool {
	return t.SenderID == t.RecipientID
}
