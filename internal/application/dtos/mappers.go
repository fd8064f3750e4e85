package dtos

import (
	"github.com/agentpay/walletd/internal/domain/entities"
)

// WalletToResponse maps a wallet entity to its public shape.
func WalletToResponse(w *entities.Wallet) WalletResponse {
	meta := w.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return WalletResponse{
		ID:        w.ID,
		Type:      string(w.Type),
		Status:    string(w.Status),
		Currency:  w.Currency.String(),
		Handle:    w.Handle,
		Metadata:  meta,
		CreatedAt: w.CreatedAt,
	}
}

// HoldToResponse maps a hold entity to its public shape.
func HoldToResponse(h *entities.Hold) HoldResponse {
	return HoldResponse{
		HoldID:          h.ID,
		WalletID:        h.WalletID,
		Status:          string(h.Status),
		Amount:          h.Amount.String(),
		RemainingAmount: h.Remaining.String(),
		Currency:        h.Amount.Currency().String(),
		ExpiresAt:       h.ExpiresAt,
		CreatedAt:       h.CreatedAt,
	}
}

// IntentToResponse maps a payment intent entity to its public shape.
func IntentToResponse(pi *entities.PaymentIntent) PaymentIntentResponse {
	meta := pi.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return PaymentIntentResponse{
		IntentID:         pi.ID,
		MerchantWalletID: pi.MerchantWalletID,
		Amount:           pi.Amount.String(),
		Currency:         pi.Amount.Currency().String(),
		Status:           string(pi.Status),
		ExpiresAt:        pi.ExpiresAt,
		Metadata:         meta,
		CreatedAt:        pi.CreatedAt,
	}
}

// ResolveToResponse maps a wallet to the resolver's public shape.
func ResolveToResponse(w *entities.Wallet) ResolveResponse {
	return ResolveResponse{
		WalletID: w.ID,
		Type:     string(w.Type),
		Status:   string(w.Status),
		Handle:   w.Handle,
	}
}

// APIKeyToResponse maps an issued key; rawKey is "" except at creation.
func APIKeyToResponse(k *entities.APIKey, rawKey string) APIKeyResponse {
	return APIKeyResponse{
		APIKeyID:  k.ID,
		WalletID:  k.WalletID,
		Key:       rawKey,
		Scopes:    k.Scopes,
		Limits:    k.Limits,
		Status:    string(k.Status),
		CreatedAt: k.CreatedAt,
	}
}
