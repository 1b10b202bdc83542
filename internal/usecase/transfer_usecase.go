package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/memledger/internal/domain"
)

// TransferUseCase moves funds between accounts of the shared in-memory ledger.
type TransferUseCase struct {
	store    AccountStore
	notifier Notifier
	idGen    IDGenerator
	recorder TransferRecorder
	logger   zerolog.Logger
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(store AccountStore, notifier Notifier, idGen IDGenerator) *TransferUseCase {
	return &TransferUseCase{
		store:    store,
		notifier: notifier,
		idGen:    idGen,
		recorder: nopRecorder{},
		logger:   zerolog.Nop(),
	}
}

// WithRecorder sets the observer of transfer outcomes.
func (uc *TransferUseCase) WithRecorder(recorder TransferRecorder) *TransferUseCase {
	if recorder != nil {
		uc.recorder = recorder
	}
	return uc
}

// WithLogger sets the logger.
func (uc *TransferUseCase) WithLogger(logger zerolog.Logger) *TransferUseCase {
	uc.logger = logger
	return uc
}

// TransferInput represents input for a transfer.
type TransferInput struct {
	SenderID    string
	RecipientID string
	Amount      decimal.Decimal
}

// Transfer debits the sender and credits the recipient atomically.
//
// It fails with domain.ErrInvalidAmount for a non-positive amount, with a
// *domain.AccountNotFoundError naming the side that did not resolve, or with
// domain.ErrInsufficientBalance. On failure no balance has changed and nobody
// is notified.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	start := time.Now()

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, uc.reject(input, err)
	}

	// 1. Resolve both accounts before taking any lock, sender first.
	sender, err := uc.resolve(ctx, input.SenderID, domain.SideSender)
	if err != nil {
		return nil, uc.reject(input, err)
	}

	recipient, err := uc.resolve(ctx, input.RecipientID, domain.SideRecipient)
	if err != nil {
		return nil, uc.reject(input, err)
	}

	// 2. Critical section.
	senderBalance, recipientBalance, err := move(sender, recipient, input.Amount)
	if err != nil {
		return nil, uc.reject(input, err)
	}

	transfer := &domain.Transfer{
		ID:               uc.idGen.Generate(),
		SenderID:         sender.ID(),
		RecipientID:      recipient.ID(),
		Amount:           input.Amount,
		SenderBalance:    senderBalance,
		RecipientBalance: recipientBalance,
		CreatedAt:        time.Now().UTC(),
	}

	uc.recorder.TransferCompleted(input.Amount, time.Since(start))
	uc.logger.Debug().
		Str("transfer_id", transfer.ID).
		Str("sender_id", transfer.SenderID).
		Str("recipient_id", transfer.RecipientID).
		Str("amount", transfer.Amount.String()).
		Msg("transfer committed")

	// 3. Post-commit, best-effort.
	uc.notifier.Notify(ctx, sender, fmt.Sprintf(senderMessageFormat, recipient.ID(), input.Amount))
	uc.notifier.Notify(ctx, recipient, fmt.Sprintf(recipientMessageFormat, sender.ID(), input.Amount))

	return transfer, nil
}

func (uc *TransferUseCase) resolve(ctx context.Context, id string, side domain.Side) (*domain.Account, error) {
	account, err := uc.store.Get(ctx, id)
	if errors.Is(err, domain.ErrAccountNotFound) || (err == nil && account == nil) {
		return nil, &domain.AccountNotFoundError{Side: side, AccountID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s account: %w", side, err)
	}

	return account, nil
}

func (uc *TransferUseCase) reject(input TransferInput, err error) error {
	reason := reasonInternal
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		reason = reasonInvalidAmount
	case errors.Is(err, domain.ErrAccountNotFound):
		reason = reasonAccountNotFound
	case errors.Is(err, domain.ErrInsufficientBalance):
		reason = reasonInsufficientBalance
	}

	uc.recorder.TransferFailed(reason)
	uc.logger.Warn().
		Err(err).
		Str("sender_id", input.SenderID).
		Str("recipient_id", input.RecipientID).
		Str("amount", input.Amount.String()).
		Msg("transfer rejected")

	return err
}

// move performs the debit and credit while holding both account locks and
// returns the balances it published. Sender and recipient may be the same account.
func move(sender, recipient *domain.Account, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	unlock := lockPair(sender, recipient)
	defer unlock()

	if err := sender.ValidateDebit(amount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	before := sender.Balance()
	if err := sender.SetBalance(sender.ApplyDebit(amount)); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if err := recipient.SetBalance(recipient.ApplyCredit(amount)); err != nil {
		if rbErr := sender.SetBalance(before); rbErr != nil {
			return decimal.Zero, decimal.Zero, errors.Join(err, rbErr)
		}
		return decimal.Zero, decimal.Zero, err
	}

	return sender.Balance(), recipient.Balance(), nil
}
