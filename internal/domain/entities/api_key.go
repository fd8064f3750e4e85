package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// APIKeyStatus is the key lifecycle state.
type APIKeyStatus string

const (
	APIKeyStatusActive  APIKeyStatus = "active"
	APIKeyStatusRevoked APIKeyStatus = "revoked"
)

// APIKeyPrefix starts every issued key, e.g. "aw_k3J9...".
const APIKeyPrefix = "aw_"

// CounterpartyRef identifies one allowed counterparty in a key's allowlist,
// by wallet id or by handle.
type CounterpartyRef struct {
	WalletID *uuid.UUID `json:"wallet_id,omitempty"`
	Handle   *string    `json:"handle,omitempty"`
}

// KeyLimits are the per-key spend restrictions, stored as the key's JSONB
// limits blob. Nil fields mean unrestricted.
type KeyLimits struct {
	PerTxMax              *decimal.Decimal  `json:"per_tx_max,omitempty"`
	DailyMax              *decimal.Decimal  `json:"daily_max,omitempty"`
	AllowedCounterparties []CounterpartyRef `json:"allowed_counterparties,omitempty"`
}

// APIKey is an authentication credential bound to exactly one wallet.
// Only the SHA-256 digest of the raw key is stored.
type APIKey struct {
	ID         uuid.UUID
	KeyHash    string
	WalletID   uuid.UUID
	Scopes     []string
	Limits     KeyLimits
	Status     APIKeyStatus
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// NewAPIKey builds an active key for a wallet.
func NewAPIKey(keyHash string, walletID uuid.UUID, scopes []string, limits KeyLimits) *APIKey {
	return &APIKey{
		ID:        uuid.New(),
		KeyHash:   keyHash,
		WalletID:  walletID,
		Scopes:    scopes,
		Limits:    limits,
		Status:    APIKeyStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

// IsActive reports whether the key may authenticate.
func (k *APIKey) IsActive() bool {
	return k.Status == APIKeyStatusActive
}

// Revoke deactivates the key.
func (k *APIKey) Revoke() {
	k.Status = APIKeyStatusRevoked
}

// HasScope reports whether the key grants the required scope.
// A stored scope ending in ":*" grants every scope sharing the prefix up to
// and including the colon: "admin:*" grants "admin:x" and "admin:x:y" but
// not "administration".
func (k *APIKey) HasScope(required string) bool {
	for _, s := range k.Scopes {
		if s == required {
			return true
		}
		if strings.HasSuffix(s, ":*") {
			prefix := s[:len(s)-1] // keep the trailing colon
			if strings.HasPrefix(required, prefix) {
				return true
			}
		}
	}
	return false
}

// CheckPerTx enforces the per-transaction ceiling.
func (k *APIKey) CheckPerTx(amount valueobjects.Money) error {
	if k.Limits.PerTxMax == nil {
		return nil
	}
	if amount.Amount().GreaterThan(*k.Limits.PerTxMax) {
		return domainerrors.New(domainerrors.CodeLimitExceeded, "amount exceeds per-transaction limit").
			WithDetails(map[string]any{
				"limit":      "per_tx_max",
				"max_amount": k.Limits.PerTxMax.String(),
				"requested":  amount.String(),
			})
	}
	return nil
}

// CheckDaily enforces the rolling UTC-day ceiling given what the key's
// wallet already spent since midnight.
func (k *APIKey) CheckDaily(spentToday decimal.Decimal, amount valueobjects.Money) error {
	if k.Limits.DailyMax == nil {
		return nil
	}
	if spentToday.Add(amount.Amount()).GreaterThan(*k.Limits.DailyMax) {
		return domainerrors.New(domainerrors.CodeLimitExceeded, "amount exceeds daily limit").
			WithDetails(map[string]any{
				"limit":       "daily_max",
				"max_amount":  k.Limits.DailyMax.String(),
				"spent_today": spentToday.String(),
				"requested":   amount.String(),
			})
	}
	return nil
}

// CheckCounterparty enforces the allowlist. An empty allowlist permits
// everyone.
func (k *APIKey) CheckCounterparty(walletID uuid.UUID, handle *string) error {
	if len(k.Limits.AllowedCounterparties) == 0 {
		return nil
	}
	for _, ref := range k.Limits.AllowedCounterparties {
		if ref.WalletID != nil && *ref.WalletID == walletID {
			return nil
		}
		if ref.Handle != nil && handle != nil && *ref.Handle == *handle {
			return nil
		}
	}
	return domainerrors.New(domainerrors.CodeCounterpartyNotAllowed, "counterparty is not on this key's allowlist")
}
