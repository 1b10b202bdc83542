package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInconsistentLedger is returned when the ledger is not balanced.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: balances do not sum to opening total")
)

// LedgerReport is the result of a consistency check.
type LedgerReport struct {
	Consistent      bool
	Accounts        int
	Total           decimal.Decimal
	Expected        decimal.Decimal
	NegativeBalance bool
}

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	store AccountStore
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(store AccountStore) *LedgerUseCase {
	return &LedgerUseCase{
		store: store,
	}
}

// CheckConsistency verifies that money was neither created nor destroyed.
//
// All accounts are locked together, in the same id order transfers use, so the
// sum is taken over one instant with no transfer half applied.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (LedgerReport, error) {
	accounts, err := uc.store.List(ctx)
	if err != nil {
		return LedgerReport{}, err
	}

	report := LedgerReport{
		Accounts: len(accounts),
		Total:    decimal.Zero,
		Expected: decimal.Zero,
	}

	unlock := lockAll(accounts)
	for _, account := range accounts {
		balance := account.Balance()
		if balance.IsNegative() {
			report.NegativeBalance = true
		}
		report.Total = report.Total.Add(balance)
		report.Expected = report.Expected.Add(account.OpeningBalance())
	}
	unlock()

	report.Consistent = report.Total.Equal(report.Expected) && !report.NegativeBalance
	if !report.Consistent {
		return report, ErrInconsistentLedger
	}

	return report, nil
}
