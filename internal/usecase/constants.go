package usecase

import "time"

const (
	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	senderMessageFormat    = "funds transferred to account %s, amount %s"
	recipientMessageFormat = "funds received from account %s, amount %s"
)

// Failure reasons reported to the TransferRecorder.
const (
	reasonInvalidAmount       = "invalid_amount"
	reasonAccountNotFound     = "account_not_found"
	reasonInsufficientBalance = "insufficient_balance"
	reasonInternal            = "internal"
)
