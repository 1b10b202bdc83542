package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/iho/memledger/internal/domain"
)

// AccountStore implements usecase.AccountStore with an in-process map.
// Each id maps to one *domain.Account for the lifetime of the store.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*domain.Account),
	}
}

// Get returns the account registered under id.
func (s *AccountStore) Get(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return account, nil
}

// Put registers a new account.
func (s *AccountStore) Put(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID()]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAccount, account.ID())
	}

	s.accounts[account.ID()] = account
	return nil
}

// List returns all accounts ordered by id.
func (s *AccountStore) List(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	accounts := make([]*domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	s.mu.RUnlock()

	slices.SortFunc(accounts, func(a, b *domain.Account) int {
		return strings.Compare(a.ID(), b.ID())
	})

	return accounts, nil
}
