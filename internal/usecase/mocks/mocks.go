package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/iho/memledger/internal/domain"
)

// Notification is a call captured by RecordingNotifier.
type Notification struct {
	AccountID string
	Message   string
}

// RecordingNotifier is a goroutine-safe Notifier that records every call.
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification

	NotifyFunc func(ctx context.Context, account *domain.Account, message string)
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (m *RecordingNotifier) Notify(ctx context.Context, account *domain.Account, message string) {
	m.mu.Lock()
	m.calls = append(m.calls, Notification{AccountID: account.ID(), Message: message})
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		m.NotifyFunc(ctx, account, message)
	}
}

// Calls returns a copy of the recorded notifications.
func (m *RecordingNotifier) Calls() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Notification, len(m.calls))
	copy(out, m.calls)
	return out
}

// CountFor returns how many notifications were sent to accountID.
func (m *RecordingNotifier) CountFor(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		if c.AccountID == accountID {
			n++
		}
	}
	return n
}

// SequenceIDGenerator returns prefix-1, prefix-2, ...
type SequenceIDGenerator struct {
	prefix  string
	counter atomic.Int64
}

func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{prefix: prefix}
}

func (g *SequenceIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.counter.Add(1))
}
