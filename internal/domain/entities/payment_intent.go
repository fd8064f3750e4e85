package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// IntentStatus is the payment intent lifecycle state.
type IntentStatus string

const (
	IntentStatusRequiresPayment IntentStatus = "requires_payment"
	IntentStatusPaid            IntentStatus = "paid"
	IntentStatusCancelled       IntentStatus = "cancelled"
	IntentStatusExpired         IntentStatus = "expired"
)

// PaymentIntent is a merchant's request to be paid. Creating one moves no
// money; paying it posts a transfer entry referencing the intent.
type PaymentIntent struct {
	ID               uuid.UUID
	MerchantWalletID uuid.UUID
	Amount           valueobjects.Money
	Status           IntentStatus
	ExpiresAt        time.Time
	Metadata         map[string]any
	PayerWalletID    *uuid.UUID
	JournalEntryID   *uuid.UUID
	CreatedAt        time.Time
}

// NewPaymentIntent builds an intent awaiting payment.
func NewPaymentIntent(merchantWalletID uuid.UUID, amount valueobjects.Money, expiresAt time.Time, metadata map[string]any) *PaymentIntent {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &PaymentIntent{
		ID:               uuid.New(),
		MerchantWalletID: merchantWalletID,
		Amount:           amount,
		Status:           IntentStatusRequiresPayment,
		ExpiresAt:        expiresAt,
		Metadata:         metadata,
		CreatedAt:        time.Now().UTC(),
	}
}

// IsExpired reports whether the intent is past its expiry at now.
func (pi *PaymentIntent) IsExpired(now time.Time) bool {
	return !now.Before(pi.ExpiresAt)
}

// CanPay reports whether the intent is still payable at now.
func (pi *PaymentIntent) CanPay(now time.Time) bool {
	return pi.Status == IntentStatusRequiresPayment && !pi.IsExpired(now)
}

// MarkPaid records the payer and the posting that settled the intent.
func (pi *PaymentIntent) MarkPaid(payerWalletID, journalEntryID uuid.UUID) {
	pi.Status = IntentStatusPaid
	pi.PayerWalletID = &payerWalletID
	pi.JournalEntryID = &journalEntryID
}
