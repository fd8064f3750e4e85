// Package dtos defines the wire shapes of the HTTP API and the commands the
// use cases consume. Amounts are decimal strings end to end.
package dtos

import (
	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/domain/entities"
)

// ExternalIdentityRef points at a provider-scoped external user.
type ExternalIdentityRef struct {
	Provider       string `json:"provider" binding:"required"`
	ExternalUserID string `json:"external_user_id" binding:"required"`
}

// RecipientRef names a transfer destination in one of three ways. Exactly
// one field must be set; precedence when several are set is wallet_id,
// handle, external_identity.
type RecipientRef struct {
	WalletID         *uuid.UUID           `json:"wallet_id,omitempty"`
	Handle           *string              `json:"handle,omitempty"`
	ExternalIdentity *ExternalIdentityRef `json:"external_identity,omitempty"`
}

// IsEmpty reports whether no addressing field is set.
func (r RecipientRef) IsEmpty() bool {
	return r.WalletID == nil && r.Handle == nil && r.ExternalIdentity == nil
}

// TransferRequest moves funds from the caller's wallet to a recipient.
type TransferRequest struct {
	Amount         string         `json:"amount" binding:"required"`
	Currency       string         `json:"currency,omitempty"`
	To             RecipientRef   `json:"to" binding:"required"`
	IdempotencyKey string         `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CreateHoldRequest reserves funds on the caller's wallet.
type CreateHoldRequest struct {
	Amount           string         `json:"amount" binding:"required"`
	Currency         string         `json:"currency,omitempty"`
	ExpiresInSeconds *int           `json:"expires_in_seconds,omitempty"`
	IdempotencyKey   string         `json:"idempotency_key"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// CaptureHoldRequest settles part of a hold into a destination wallet.
// An omitted amount captures the full remaining amount.
type CaptureHoldRequest struct {
	Amount         string       `json:"amount,omitempty"`
	To             RecipientRef `json:"to" binding:"required"`
	IdempotencyKey string       `json:"idempotency_key"`
}

// ReleaseHoldRequest returns held funds to available. An omitted amount
// releases the full remaining amount.
type ReleaseHoldRequest struct {
	Amount         string `json:"amount,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
}

// CreatePaymentIntentRequest asks to be paid; no funds move yet.
type CreatePaymentIntentRequest struct {
	Amount           string         `json:"amount" binding:"required"`
	Currency         string         `json:"currency,omitempty"`
	ExpiresInSeconds *int           `json:"expires_in_seconds,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// PayIntentRequest settles an intent from the caller's wallet.
type PayIntentRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// RefundRequest returns captured funds from the merchant to the payer.
// An omitted amount refunds everything still refundable on the capture.
type RefundRequest struct {
	CaptureID      uuid.UUID `json:"capture_id" binding:"required"`
	Amount         string    `json:"amount,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// ListTransactionsQuery are the query parameters of the listing endpoint.
type ListTransactionsQuery struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
	Type   string `form:"type"`
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
}

// ResolveQuery are the query parameters of GET /v1/resolve.
type ResolveQuery struct {
	Type     string `form:"type" binding:"required,oneof=wallet_id handle external_identity"`
	Value    string `form:"value" binding:"required"`
	Provider string `form:"provider"`
}

// CreateWalletRequest provisions a wallet (admin).
type CreateWalletRequest struct {
	Type             string               `json:"type" binding:"required,oneof=customer business system"`
	Currency         string               `json:"currency,omitempty"`
	Handle           *string              `json:"handle,omitempty"`
	ExternalIdentity *ExternalIdentityRef `json:"external_identity,omitempty"`
	Metadata         map[string]any       `json:"metadata,omitempty"`
}

// CreateAPIKeyRequest issues a key for a wallet (admin).
type CreateAPIKeyRequest struct {
	WalletID uuid.UUID           `json:"wallet_id" binding:"required"`
	Scopes   []string            `json:"scopes" binding:"required,min=1"`
	Limits   *entities.KeyLimits `json:"limits,omitempty"`
}

// DepositRequest credits external funds into a wallet (admin). Exactly one
// of wallet_id or handle selects the target.
type DepositRequest struct {
	WalletID       *uuid.UUID `json:"wallet_id,omitempty"`
	Handle         *string    `json:"handle,omitempty"`
	Amount         string     `json:"amount" binding:"required"`
	Currency       string     `json:"currency,omitempty"`
	IdempotencyKey string     `json:"idempotency_key"`
}
