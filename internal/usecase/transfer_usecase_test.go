package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/memledger/internal/adapter/repository/memory"
	"github.com/iho/memledger/internal/domain"
	"github.com/iho/memledger/internal/usecase"
	"github.com/iho/memledger/internal/usecase/mocks"
)

const (
	fromAccountID = "1111"
	toAccountID   = "3333"
)

func newAccount(t *testing.T, id string, balance int64) *domain.Account {
	t.Helper()

	acc, err := domain.NewAccount(id, decimal.NewFromInt(balance))
	require.NoError(t, err)
	return acc
}

func balanceOf(acc *domain.Account) decimal.Decimal {
	return acc.Snapshot().Balance
}

func newMemoryLedger(t *testing.T, accounts ...*domain.Account) *memory.AccountStore {
	t.Helper()

	store := memory.NewAccountStore()
	for _, acc := range accounts {
		require.NoError(t, store.Put(context.Background(), acc))
	}
	return store
}

func TestTransferUseCase_SenderNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)

	store := mocks.NewMockAccountStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)

	store.EXPECT().Get(gomock.Any(), fromAccountID).Return(nil, domain.ErrAccountNotFound)

	uc := usecase.NewTransferUseCase(store, notifier, mocks.NewSequenceIDGenerator("tx"))

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SenderID:    fromAccountID,
		RecipientID: toAccountID,
		Amount:      decimal.NewFromInt(10),
	})

	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	var notFound *domain.AccountNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, domain.SideSender, notFound.Side)
	assert.Equal(t, fromAccountID, notFound.AccountID)
}

func TestTransferUseCase_RecipientNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)

	store := mocks.NewMockAccountStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	from := newAccount(t, fromAccountID, 10)

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), fromAccountID).Return(from, nil),
		store.EXPECT().Get(gomock.Any(), toAccountID).Return(nil, domain.ErrAccountNotFound),
	)

	uc := usecase.NewTransferUseCase(store, notifier, mocks.NewSequenceIDGenerator("tx"))

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SenderID:    fromAccountID,
		RecipientID: toAccountID,
		Amount:      decimal.NewFromInt(5),
	})

	var notFound *domain.AccountNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, domain.SideRecipient, notFound.Side)
	assert.True(t, balanceOf(from).Equal(decimal.NewFromInt(10)))
}

func TestTransferUseCase_NilAccountTreatedAsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)

	store := mocks.NewMockAccountStore(ctrl)
	store.EXPECT().Get(gomock.Any(), fromAccountID).Return(nil, nil)

	uc := usecase.NewTransferUseCase(store, mocks.NewMockNotifier(ctrl), mocks.NewSequenceIDGenerator("tx"))

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SenderID:    fromAccountID,
		RecipientID: toAccountID,
		Amount:      decimal.NewFromInt(1),
	})

	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestTransferUseCase_StoreFailureIsWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)

	storeErr := errors.New("store unavailable")
	store := mocks.NewMockAccountStore(ctrl)
	store.EXPECT().Get(gomock.Any(), fromAccountID).Return(nil, storeErr)

	uc := usecase.NewTransferUseCase(store, mocks.NewMockNotifier(ctrl), mocks.NewSequenceIDGenerator("tx"))

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SenderID:    fromAccountID,
		RecipientID: toAccountID,
		Amount:      decimal.NewFromInt(1),
	})

	require.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestTransferUseCase_InsufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)

	store := mocks.NewMockAccountStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	recorder := mocks.NewMockTransferRecorder(ctrl)

	from := newAccount(t, fromAccountID, 1)
	to := newAccount(t, toAccountID, 10)

	store.EXPECT().Get(gomock.Any(), fromAccountID).Return(from, nil)
	store.EXPECT().Get(gomock.Any(), toAccountID).Return(to, nil)
	recorder.EXPECT().TransferFailed("insufficient_balance")

	uc := usecase.NewTransferUseCase(store, notifier, mocks.NewSequenceIDGenerator("tx")).
		WithRecorder(recorder)

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SenderID:    fromAccountID,
		RecipientID: toAccountID,
		Amount:      decimal.NewFromInt(10),
	})

	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.True(t, balanceOf(from).Equal(decimal.NewFromInt(1)))
	assert.True(t, balanceOf(to).Equal(decimal.NewFromInt(10)))
}

func TestTransferUseCase_Success(t *testing.T) {
	ctrl := gomock.NewController(t)

	store := mocks.NewMockAccountStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	recorder := mocks.NewMockTransferRecorder(ctrl)

	from := newAccount(t, fromAccountID, 1)
	to := newAccount(t, toAccountID, 10)

	store.EXPECT().Get(gomock.Any(), fromAccountID).Return(from, nil)
	store.EXPECT().Get(gomock.Any(), toAccountID).Return(to, nil)
	notifier.EXPECT().Notify(gomock.Any(), from, "funds transferred to account 3333, amount 1").Times(1)
	notifier.EXPECT().Notify(gomock.Any(), to, "funds received from account 1111, amount 1").Times(1)
	recorder.EXPECT().TransferCompleted(decimal.NewFromInt(1), gomock.Any())

	uc := usecase.NewTransferUseCase(store, notifier, mocks.NewSequenceIDGenerator("tx")).
		WithRecorder(recorder)

	transfer, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SenderID:    fromAccountID,
		RecipientID: toAccountID,
		Amount:      decimal.NewFromInt(1),
	})

	require.NoError(t, err)
	assert.Equal(t, "tx-1", transfer.ID)
	assert.True(t, transfer.SenderBalance.Equal(decimal.Zero))
	assert.True(t, transfer.RecipientBalance.Equal(decimal.NewFromInt(11)))
	assert.True(t, balanceOf(from).Equal(decimal.Zero))
	assert.True(t, balanceOf(to).Equal(decimal.NewFromInt(11)))
}

func TestTransferUseCase_RejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-3)} {
		t.Run(amount.String(), func(t *testing.T) {
			ctrl := gomock.NewController(t)

			// No store or notifier calls are expected.
			uc := usecase.NewTransferUseCase(
				mocks.NewMockAccountStore(ctrl),
				mocks.NewMockNotifier(ctrl),
				mocks.NewSequenceIDGenerator("tx"),
			)

			_, err := uc.Transfer(context.Background(), usecase.TransferInput{
				SenderID:    fromAccountID,
				RecipientID: toAccountID,
				Amount:      amount,
			})

			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		})
	}
}

func TestTransferUseCase_SelfTransfer(t *testing.T) {
	acc := newAccount(t, "solo", 5)
	notifier := mocks.NewRecordingNotifier()
	uc := usecase.NewTransferUseCase(newMemoryLedger(t, acc), notifier, mocks.NewSequenceIDGenerator("tx"))

	transfer, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SenderID:    "solo",
		RecipientID: "solo",
		Amount:      decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.True(t, transfer.IsSelfTransfer())
	assert.True(t, balanceOf(acc).Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 2, notifier.CountFor("solo"))

	_, err = uc.Transfer(context.Background(), usecase.TransferInput{
		SenderID:    "solo",
		RecipientID: "solo",
		Amount:      decimal.NewFromInt(6),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.True(t, balanceOf(acc).Equal(decimal.NewFromInt(5)))
}

func TestTransferUseCase_NotifiesOutsideLocks(t *testing.T) {
	from := newAccount(t, fromAccountID, 10)
	to := newAccount(t, toAccountID, 0)

	notifier := mocks.NewRecordingNotifier()
	notifier.NotifyFunc = func(ctx context.Context, account *domain.Account, message string) {
		// Snapshot takes the account lock; it would block forever under the engine's lock.
		from.Snapshot()
		to.Snapshot()
	}

	uc := usecase.NewTransferUseCase(newMemoryLedger(t, from, to), notifier, mocks.NewSequenceIDGenerator("tx"))

	done := make(chan error, 1)
	go func() {
		_, err := uc.Transfer(context.Background(), usecase.TransferInput{
			SenderID:    fromAccountID,
			RecipientID: toAccountID,
			Amount:      decimal.NewFromInt(4),
		})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("notifier was called while an account lock was held")
	}

	assert.Len(t, notifier.Calls(), 2)
}

func TestTransferUseCase_ConcurrentOppositeDirections(t *testing.T) {
	first := newAccount(t, fromAccountID, 10)
	second := newAccount(t, toAccountID, 10)
	notifier := mocks.NewRecordingNotifier()

	uc := usecase.NewTransferUseCase(newMemoryLedger(t, first, second), notifier, mocks.NewSequenceIDGenerator("tx"))

	const requests = 20

	var (
		wg       sync.WaitGroup
		failures atomic.Int32
		start    = make(chan struct{})
	)

	for i := range requests {
		input := usecase.TransferInput{SenderID: fromAccountID, RecipientID: toAccountID, Amount: decimal.NewFromInt(1)}
		if i%2 == 1 {
			input.SenderID, input.RecipientID = toAccountID, fromAccountID
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := uc.Transfer(context.Background(), input); err != nil {
				failures.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.True(t, balanceOf(first).Equal(decimal.NewFromInt(10)), "first balance %s", balanceOf(first))
	assert.True(t, balanceOf(second).Equal(decimal.NewFromInt(10)), "second balance %s", balanceOf(second))
	assert.Equal(t, requests, notifier.CountFor(fromAccountID))
	assert.Equal(t, requests, notifier.CountFor(toAccountID))
}

func TestTransferUseCase_NoDeadlockUnderContention(t *testing.T) {
	first := newAccount(t, "A", 1000)
	second := newAccount(t, "B", 1000)

	uc := usecase.NewTransferUseCase(newMemoryLedger(t, first, second), mocks.NewRecordingNotifier(), mocks.NewSequenceIDGenerator("tx"))

	const (
		workers    = 16
		iterations = 500
	)

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sender, recipient := "A", "B"
				if w%2 == 1 {
					sender, recipient = recipient, sender
				}
				for range iterations {
					_, _ = uc.Transfer(context.Background(), usecase.TransferInput{
						SenderID:    sender,
						RecipientID: recipient,
						Amount:      decimal.NewFromInt(3),
					})
				}
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("transfers did not complete: possible deadlock")
	}

	total := balanceOf(first).Add(balanceOf(second))
	assert.True(t, total.Equal(decimal.NewFromInt(2000)), "total %s", total)
	assert.False(t, balanceOf(first).IsNegative())
	assert.False(t, balanceOf(second).IsNegative())
}

func TestTransferUseCase_ConservationAcrossManyAccounts(t *testing.T) {
	const accountsN = 8

	accounts := make([]*domain.Account, accountsN)
	for i := range accounts {
		accounts[i] = newAccount(t, fmt.Sprintf("acc-%d", i), 50)
	}
	store := newMemoryLedger(t, accounts...)

	uc := usecase.NewTransferUseCase(store, mocks.NewRecordingNotifier(), mocks.NewSequenceIDGenerator("tx"))
	ledger := usecase.NewLedgerUseCase(store)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for w := range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), 42))
			for range 300 {
				amount := decimal.NewFromInt(int64(rng.IntN(40) + 1)).Div(decimal.NewFromInt(4))
				_, err := uc.Transfer(context.Background(), usecase.TransferInput{
					SenderID:    accounts[rng.IntN(accountsN)].ID(),
					RecipientID: accounts[rng.IntN(accountsN)].ID(),
					Amount:      amount,
				})
				if err == nil {
					succeeded.Add(1)
				} else if !errors.Is(err, domain.ErrInsufficientBalance) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}

	// Consistency checks run alongside the transfers and must never see a half-applied one.
	stop := make(chan struct{})
	checks := make(chan error, 1)
	go func() {
		for {
			select {
			case <-stop:
				checks <- nil
				return
			default:
			}
			if _, err := ledger.CheckConsistency(context.Background()); err != nil {
				checks <- err
				return
			}
		}
	}()

	wg.Wait()
	close(stop)
	require.NoError(t, <-checks)

	report, err := ledger.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Total.Equal(decimal.NewFromInt(50*accountsN)))
	assert.Positive(t, succeeded.Load())

	for _, acc := range accounts {
		assert.False(t, balanceOf(acc).IsNegative(), "account %s went negative", acc.ID())
	}
}
