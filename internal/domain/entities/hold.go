package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// HoldStatus is the hold lifecycle state. A hold leaves active when its
// remaining amount reaches zero (captured or released) or when the sweeper
// expires it.
type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusCaptured HoldStatus = "captured"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusExpired  HoldStatus = "expired"
)

// Hold reserves funds on a wallet by moving them from the available to the
// held account. Partial captures and the final release drain Remaining.
type Hold struct {
	ID                uuid.UUID
	WalletID          uuid.UUID
	Amount            valueobjects.Money
	Remaining         valueobjects.Money
	Status            HoldStatus
	ExpiresAt         time.Time
	CreatedByAPIKeyID uuid.UUID
	IdempotencyKey    string
	JournalEntryID    *uuid.UUID
	CreatedAt         time.Time
}

// NewHold builds an active hold reserving amount until expiresAt.
func NewHold(walletID uuid.UUID, amount valueobjects.Money, expiresAt time.Time, createdBy uuid.UUID, idempotencyKey string) *Hold {
	return &Hold{
		ID:                uuid.New(),
		WalletID:          walletID,
		Amount:            amount,
		Remaining:         amount,
		Status:            HoldStatusActive,
		ExpiresAt:         expiresAt,
		CreatedByAPIKeyID: createdBy,
		IdempotencyKey:    idempotencyKey,
		CreatedAt:         time.Now().UTC(),
	}
}

// IsExpired reports whether the hold is past its expiry at now.
func (h *Hold) IsExpired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// CanCapture reports whether a capture may be posted: active and not yet
// expired.
func (h *Hold) CanCapture(now time.Time) bool {
	return h.Status == HoldStatusActive && !h.IsExpired(now)
}

// CanRelease reports whether a release may be posted. An expired-but-active
// hold is still releasable; release is how the reserved funds get home.
func (h *Hold) CanRelease() bool {
	return h.Status == HoldStatusActive
}

// Capture is a partial or full settlement of a hold into a destination
// wallet. Its idempotency key is globally unique within the capture family.
type Capture struct {
	ID             uuid.UUID
	HoldID         uuid.UUID
	ToWalletID     uuid.UUID
	Amount         valueobjects.Money
	JournalEntryID uuid.UUID
	IdempotencyKey string
	RefundedAmount valueobjects.Money
	CreatedAt      time.Time
}

// RefundableAmount is amount minus what was already refunded.
func (c *Capture) RefundableAmount() (valueobjects.Money, error) {
	return c.Amount.Sub(c.RefundedAmount)
}

// Refund returns captured funds from the merchant back to the payer.
type Refund struct {
	ID             uuid.UUID
	CaptureID      uuid.UUID
	Amount         valueobjects.Money
	JournalEntryID uuid.UUID
	IdempotencyKey string
	CreatedAt      time.Time
}
