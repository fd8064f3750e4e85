// Package events defines the domain events the service publishes after
// commit. Events are immutable facts; consumers must tolerate duplicates.
package events

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the common shape of every published event.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
}

// BaseEvent carries the common fields; embedded by concrete events.
type BaseEvent struct {
	eventID     uuid.UUID
	eventType   string
	occurredAt  time.Time
	aggregateID uuid.UUID
}

func newBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New(),
		eventType:   eventType,
		occurredAt:  time.Now().UTC(),
		aggregateID: aggregateID,
	}
}

func (e BaseEvent) EventID() uuid.UUID     { return e.eventID }
func (e BaseEvent) EventType() string      { return e.eventType }
func (e BaseEvent) OccurredAt() time.Time  { return e.occurredAt }
func (e BaseEvent) AggregateID() uuid.UUID { return e.aggregateID }

const (
	EventTypeEntryPosted   = "ledger.entry.posted"
	EventTypeWalletCreated = "wallet.created"
	EventTypeWalletFrozen  = "wallet.frozen"
	EventTypeHoldExpired   = "hold.expired"
	EventTypeIntentPaid    = "payment_intent.paid"
	EventTypeKeyRevoked    = "api_key.revoked"
)

// EntryPosted is raised for every committed journal entry.
type EntryPosted struct {
	BaseEvent
	EntryType string
	Amount    string
	Currency  string
}

func NewEntryPosted(entryID uuid.UUID, entryType, amount, currency string) *EntryPosted {
	return &EntryPosted{
		BaseEvent: newBaseEvent(EventTypeEntryPosted, entryID),
		EntryType: entryType,
		Amount:    amount,
		Currency:  currency,
	}
}

// WalletCreated is raised when an admin provisions a wallet.
type WalletCreated struct {
	BaseEvent
	WalletType string
	Currency   string
	Handle     string
}

func NewWalletCreated(walletID uuid.UUID, walletType, currency, handle string) *WalletCreated {
	return &WalletCreated{
		BaseEvent:  newBaseEvent(EventTypeWalletCreated, walletID),
		WalletType: walletType,
		Currency:   currency,
		Handle:     handle,
	}
}

// WalletFrozen is raised when an admin freezes a wallet.
type WalletFrozen struct {
	BaseEvent
}

func NewWalletFrozen(walletID uuid.UUID) *WalletFrozen {
	return &WalletFrozen{BaseEvent: newBaseEvent(EventTypeWalletFrozen, walletID)}
}

// HoldExpired is raised when the sweeper auto-releases an expired hold.
type HoldExpired struct {
	BaseEvent
	ReleasedAmount string
}

func NewHoldExpired(holdID uuid.UUID, releasedAmount string) *HoldExpired {
	return &HoldExpired{
		BaseEvent:      newBaseEvent(EventTypeHoldExpired, holdID),
		ReleasedAmount: releasedAmount,
	}
}

// IntentPaid is raised when a payment intent settles.
type IntentPaid struct {
	BaseEvent
	PayerWalletID uuid.UUID
	Amount        string
}

func NewIntentPaid(intentID, payerWalletID uuid.UUID, amount string) *IntentPaid {
	return &IntentPaid{
		BaseEvent:     newBaseEvent(EventTypeIntentPaid, intentID),
		PayerWalletID: payerWalletID,
		Amount:        amount,
	}
}

// KeyRevoked is raised when an admin revokes an API key.
type KeyRevoked struct {
	BaseEvent
}

func NewKeyRevoked(keyID uuid.UUID) *KeyRevoked {
	return &KeyRevoked{BaseEvent: newBaseEvent(EventTypeKeyRevoked, keyID)}
}
