package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/memledger/internal/adapter/http/dto"
	"github.com/iho/memledger/internal/domain"
	"github.com/iho/memledger/internal/usecase"
)

type transferServiceStub struct {
	transferFn func(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error)
}

func (s *transferServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error) {
	return s.transferFn(ctx, input)
}

func TestTransferHandler_Create_Success(t *testing.T) {
	transfer := &domain.Transfer{
		ID:               "tx-1",
		SenderID:         "acc-1",
		RecipientID:      "acc-2",
		Amount:           decimal.NewFromInt(100),
		SenderBalance:    decimal.Zero,
		RecipientBalance: decimal.NewFromInt(100),
	}
	var captured usecase.TransferInput

	handler := NewTransferHandler(&transferServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error) {
			captured = input
			return transfer, nil
		},
	})

	body := `{"sender_account_id":"acc-1","recipient_account_id":"acc-2","amount":"100"}`
	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if captured.SenderID != "acc-1" || captured.RecipientID != "acc-2" || !captured.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.TransferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "tx-1" || !resp.RecipientBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestTransferHandler_Create_RejectsAtBoundary(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{bad json"},
		{"blank sender", `{"sender_account_id":"","recipient_account_id":"b","amount":1}`},
		{"blank recipient", `{"sender_account_id":"a","recipient_account_id":"  ","amount":1}`},
		{"missing amount", `{"sender_account_id":"a","recipient_account_id":"b"}`},
		{"zero amount", `{"sender_account_id":"a","recipient_account_id":"b","amount":0}`},
		{"negative amount", `{"sender_account_id":"a","recipient_account_id":"b","amount":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransferHandler(&transferServiceStub{
				transferFn: func(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error) {
					t.Fatal("Transfer should not be called")
					return nil, nil
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestTransferHandler_Create_MapsEngineErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantSide string
	}{
		{"sender missing", &domain.AccountNotFoundError{Side: domain.SideSender, AccountID: "a"}, http.StatusNotFound, "sender"},
		{"recipient missing", &domain.AccountNotFoundError{Side: domain.SideRecipient, AccountID: "b"}, http.StatusNotFound, "recipient"},
		{"insufficient balance", domain.ErrInsufficientBalance, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransferHandler(&transferServiceStub{
				transferFn: func(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error) {
					return nil, tt.err
				},
			})

			body := `{"sender_account_id":"a","recipient_account_id":"b","amount":10}`
			req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()

			handler.Create(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp dto.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Side != tt.wantSide {
				t.Fatalf("expected side %q, got %q", tt.wantSide, resp.Side)
			}
		})
	}
}
