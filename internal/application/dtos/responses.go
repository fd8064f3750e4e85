package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/domain/entities"
)

// WalletResponse is the public wallet shape.
type WalletResponse struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Currency  string         `json:"currency"`
	Handle    *string        `json:"handle,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// BalanceResponse reports both sides of a wallet's balance.
type BalanceResponse struct {
	WalletID  uuid.UUID `json:"wallet_id"`
	Currency  string    `json:"currency"`
	Available string    `json:"available"`
	Held      string    `json:"held"`
}

// TransferResponse is the result of a posted (or replayed) transfer.
type TransferResponse struct {
	TransferID   uuid.UUID `json:"transfer_id"`
	Status       string    `json:"status"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	FromWalletID uuid.UUID `json:"from_wallet_id"`
	ToWalletID   uuid.UUID `json:"to_wallet_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// HoldResponse is the public hold shape.
type HoldResponse struct {
	HoldID          uuid.UUID `json:"hold_id"`
	WalletID        uuid.UUID `json:"wallet_id"`
	Status          string    `json:"status"`
	Amount          string    `json:"amount"`
	RemainingAmount string    `json:"remaining_amount"`
	Currency        string    `json:"currency"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// CaptureResponse is the result of a capture, including where the hold
// stands afterwards.
type CaptureResponse struct {
	CaptureID     uuid.UUID `json:"capture_id"`
	HoldID        uuid.UUID `json:"hold_id"`
	ToWalletID    uuid.UUID `json:"to_wallet_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	HoldRemaining string    `json:"hold_remaining"`
	HoldStatus    string    `json:"hold_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReleaseResponse is the result of releasing part or all of a hold.
type ReleaseResponse struct {
	HoldID         uuid.UUID `json:"hold_id"`
	ReleasedAmount string    `json:"released_amount"`
	Currency       string    `json:"currency"`
	HoldRemaining  string    `json:"hold_remaining"`
	HoldStatus     string    `json:"hold_status"`
	CreatedAt      time.Time `json:"created_at"`
}

// PaymentIntentResponse is the public intent shape.
type PaymentIntentResponse struct {
	IntentID         uuid.UUID      `json:"intent_id"`
	MerchantWalletID uuid.UUID      `json:"merchant_wallet_id"`
	Amount           string         `json:"amount"`
	Currency         string         `json:"currency"`
	Status           string         `json:"status"`
	ExpiresAt        time.Time      `json:"expires_at"`
	Metadata         map[string]any `json:"metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

// PayIntentResponse is the result of paying an intent.
type PayIntentResponse struct {
	IntentID         uuid.UUID `json:"intent_id"`
	TransferID       uuid.UUID `json:"transfer_id"`
	Status           string    `json:"status"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	PayerWalletID    uuid.UUID `json:"payer_wallet_id"`
	MerchantWalletID uuid.UUID `json:"merchant_wallet_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// RefundResponse is the result of a refund.
type RefundResponse struct {
	RefundID       uuid.UUID `json:"refund_id"`
	CaptureID      uuid.UUID `json:"capture_id"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	RefundedTotal  string    `json:"refunded_total"`
	CreatedAt      time.Time `json:"created_at"`
}

// DepositResponse is the result of an external deposit.
type DepositResponse struct {
	EntryID   uuid.UUID `json:"entry_id"`
	WalletID  uuid.UUID `json:"wallet_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionItem is one journal entry from the caller's point of view.
// Direction is the side of the caller's own line; counterparty_wallet_id is
// nil for entries that only touch the caller's accounts.
type TransactionItem struct {
	ID                   uuid.UUID  `json:"id"`
	Type                 string     `json:"type"`
	Status               string     `json:"status"`
	Amount               string     `json:"amount"`
	Currency             string     `json:"currency"`
	Direction            string     `json:"direction"`
	CounterpartyWalletID *uuid.UUID `json:"counterparty_wallet_id"`
	CounterpartyHandle   *string    `json:"counterparty_handle,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// TransactionListResponse is one keyset page.
type TransactionListResponse struct {
	Items      []TransactionItem `json:"items"`
	NextCursor *string           `json:"next_cursor"`
}

// ResolveResponse identifies a recipient wallet.
type ResolveResponse struct {
	WalletID uuid.UUID `json:"wallet_id"`
	Type     string    `json:"type"`
	Status   string    `json:"status"`
	Handle   *string   `json:"handle,omitempty"`
}

// APIKeyResponse returns an issued key. The raw key appears exactly once,
// in the creation response.
type APIKeyResponse struct {
	APIKeyID  uuid.UUID          `json:"api_key_id"`
	WalletID  uuid.UUID          `json:"wallet_id"`
	Key       string             `json:"key,omitempty"`
	Scopes    []string           `json:"scopes"`
	Limits    entities.KeyLimits `json:"limits"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}
