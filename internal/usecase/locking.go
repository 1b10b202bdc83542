package usecase

import (
	"slices"
	"strings"

	"github.com/iho/memledger/internal/domain"
)

// lockOrder returns a and b ordered by account id. Every code path that holds
// more than one account lock acquires them in this order, so no cycle of waits
// can form between concurrent transfers.
func lockOrder(a, b *domain.Account) (first, second *domain.Account) {
	if strings.Compare(a.ID(), b.ID()) <= 0 {
		return a, b
	}
	return b, a
}

// lockPair locks both accounts in global order and returns the matching unlock.
// The same account passed twice is locked once.
func lockPair(a, b *domain.Account) (unlock func()) {
	first, second := lockOrder(a, b)

	first.Lock()
	if second == first {
		return first.Unlock
	}
	second.Lock()

	return func() {
		second.Unlock()
		first.Unlock()
	}
}

// lockAll locks every account in ascending id order.
func lockAll(accounts []*domain.Account) (unlock func()) {
	ordered := slices.Clone(accounts)
	slices.SortFunc(ordered, func(a, b *domain.Account) int {
		return strings.Compare(a.ID(), b.ID())
	})
	ordered = slices.CompactFunc(ordered, func(a, b *domain.Account) bool {
		return a == b
	})

	for _, account := range ordered {
		account.Lock()
	}

	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			ordered[i].Unlock()
		}
	}
}
