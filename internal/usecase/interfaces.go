package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/memledger/internal/domain"
)

// AccountStore resolves account identifiers to the one shared Account instance.
type AccountStore interface {
	// Get returns the same *domain.Account for every lookup of id,
	// or domain.ErrAccountNotFound.
	Get(ctx context.Context, id string) (*domain.Account, error)
	// Put registers a new account. Duplicate ids fail with domain.ErrDuplicateAccount.
	Put(ctx context.Context, account *domain.Account) error
	// List returns all accounts ordered by id.
	List(ctx context.Context) ([]*domain.Account, error)
}

// Notifier delivers a best-effort message to an account holder.
// Implementations must not block on external I/O for long and report no errors.
type Notifier interface {
	Notify(ctx context.Context, account *domain.Account, message string)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// TransferRecorder observes transfer outcomes.
type TransferRecorder interface {
	TransferCompleted(amount decimal.Decimal, duration time.Duration)
	TransferFailed(reason string)
	AccountCreated()
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release removes the key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}

type nopRecorder struct{}

func (nopRecorder) TransferCompleted(decimal.Decimal, time.Duration) {}
func (nopRecorder) TransferFailed(string)                            {}
func (nopRecorder) AccountCreated()                                  {}
