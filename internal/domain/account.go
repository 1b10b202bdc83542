package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a ledger entry holding a non-negative balance.
//
// The balance is guarded by the account's own mutex. Balance, SetBalance and the
// debit helpers must only be called by a goroutine holding that lock; the account
// does not synchronize them itself.
type Account struct {
	mu sync.Mutex

	id        string
	balance   decimal.Decimal
	opening   decimal.Decimal
	createdAt time.Time
}

// AccountView is a point-in-time copy of an account, safe to hand out.
type AccountView struct {
	ID        string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// NewAccount creates an account with the given opening balance.
func NewAccount(id string, openingBalance decimal.Decimal) (*Account, error) {
	if err := ValidateAccountID(id); err != nil {
		return nil, err
	}

	if openingBalance.IsNegative() {
		return nil, ErrNegativeBalance
	}

	return &Account{
		id:        id,
		balance:   openingBalance,
		opening:   openingBalance,
		createdAt: time.Now().UTC(),
	}, nil
}

// ID returns the immutable account identifier.
func (a *Account) ID() string {
	return a.id
}

// CreatedAt returns the creation time.
func (a *Account) CreatedAt() time.Time {
	return a.createdAt
}

// OpeningBalance returns the balance the account was created with.
func (a *Account) OpeningBalance() decimal.Decimal {
	return a.opening
}

// Lock acquires the account lock.
func (a *Account) Lock() {
	a.mu.Lock()
}

// Unlock releases the account lock.
func (a *Account) Unlock() {
	a.mu.Unlock()
}

// Balance returns the current balance. Caller must hold the lock.
func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// SetBalance replaces the balance. Caller must hold the lock.
func (a *Account) SetBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return ErrNegativeBalance
	}

	a.balance = balance
	return nil
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.balance.Add(amount)
}

// Snapshot copies the account under its lock.
func (a *Account) Snapshot() AccountView {
	a.mu.Lock()
	defer a.mu.Unlock()

	return AccountView{
		ID:        a.id,
		Balance:   a.balance,
		CreatedAt: a.createdAt,
	}
}
