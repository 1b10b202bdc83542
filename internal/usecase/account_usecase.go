package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/memledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	store    AccountStore
	idGen    IDGenerator
	recorder TransferRecorder
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(store AccountStore, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		store:    store,
		idGen:    idGen,
		recorder: nopRecorder{},
	}
}

// WithRecorder sets the metrics observer.
func (uc *AccountUseCase) WithRecorder(recorder TransferRecorder) *AccountUseCase {
	if recorder != nil {
		uc.recorder = recorder
	}
	return uc
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	ID      string
	Balance decimal.Decimal
}

// CreateAccount creates a new account. An empty ID is replaced by a generated one.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (domain.AccountView, error) {
	id := input.ID
	if id == "" {
		id = uc.idGen.Generate()
	}

	account, err := domain.NewAccount(id, input.Balance)
	if err != nil {
		return domain.AccountView{}, err
	}

	if err := uc.store.Put(ctx, account); err != nil {
		return domain.AccountView{}, err
	}

	uc.recorder.AccountCreated()

	return account.Snapshot(), nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (domain.AccountView, error) {
	account, err := uc.store.Get(ctx, id)
	if err != nil {
		return domain.AccountView{}, err
	}
	return account.Snapshot(), nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]domain.AccountView, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	accounts, err := uc.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if offset >= len(accounts) {
		return []domain.AccountView{}, nil
	}

	end := min(offset+limit, len(accounts))

	views := make([]domain.AccountView, 0, end-offset)
	for _, account := range accounts[offset:end] {
		views = append(views, account.Snapshot())
	}

	return views, nil
}
