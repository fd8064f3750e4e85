package entities

import (
	"time"

	"github.com/google/uuid"
)

// ExternalIdentity links an external principal, e.g. a chat platform user,
// to a wallet. (provider, external_user_id) is unique.
type ExternalIdentity struct {
	ID             uuid.UUID
	Provider       string
	ExternalUserID string
	WalletID       uuid.UUID
	CreatedAt      time.Time
}

// NewExternalIdentity binds an external user to a wallet.
func NewExternalIdentity(provider, externalUserID string, walletID uuid.UUID) *ExternalIdentity {
	return &ExternalIdentity{
		ID:             uuid.New(),
		Provider:       provider,
		ExternalUserID: externalUserID,
		WalletID:       walletID,
		CreatedAt:      time.Now().UTC(),
	}
}
