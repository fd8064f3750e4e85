package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// EntryType names the business operation a journal entry records.
type EntryType string

const (
	EntryTypeDepositExternal EntryType = "deposit_external"
	EntryTypeTransfer        EntryType = "transfer"
	EntryTypeHold            EntryType = "hold"
	EntryTypeCapture         EntryType = "capture"
	EntryTypeRelease         EntryType = "release"
	EntryTypeRefund          EntryType = "refund"
	EntryTypeReversal        EntryType = "reversal"
	EntryTypeAdjustment      EntryType = "adjustment"
)

// EntryStatus is the posting state. Entries are written posted; reversal
// creates a compensating entry instead of mutating the original.
type EntryStatus string

const (
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusReversed EntryStatus = "reversed"
)

// LineDirection is the side of a journal line.
type LineDirection string

const (
	DirectionDebit  LineDirection = "debit"
	DirectionCredit LineDirection = "credit"
)

// JournalEntry is an atomic balanced posting, the sole record of value
// movement. (idempotency_key, created_by_api_key_id) is unique.
type JournalEntry struct {
	ID                uuid.UUID
	Type              EntryType
	Status            EntryStatus
	IdempotencyKey    string
	ReferenceID       *uuid.UUID
	CreatedByAPIKeyID uuid.UUID
	Metadata          map[string]any
	CreatedAt         time.Time
	Lines             []JournalLine
}

// JournalLine moves an amount in or out of one ledger account.
type JournalLine struct {
	ID              uuid.UUID
	JournalEntryID  uuid.UUID
	LedgerAccountID uuid.UUID
	Direction       LineDirection
	Amount          valueobjects.Money
}

// NewJournalEntry builds a posted entry; lines are attached by the caller
// before validation.
func NewJournalEntry(entryType EntryType, idempotencyKey string, createdBy uuid.UUID, referenceID *uuid.UUID, metadata map[string]any) *JournalEntry {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &JournalEntry{
		ID:                uuid.New(),
		Type:              entryType,
		Status:            EntryStatusPosted,
		IdempotencyKey:    idempotencyKey,
		ReferenceID:       referenceID,
		CreatedByAPIKeyID: createdBy,
		Metadata:          metadata,
		CreatedAt:         time.Now().UTC(),
	}
}

// AddLine appends a line for the given account.
func (e *JournalEntry) AddLine(accountID uuid.UUID, direction LineDirection, amount valueobjects.Money) {
	e.Lines = append(e.Lines, JournalLine{
		ID:              uuid.New(),
		JournalEntryID:  e.ID,
		LedgerAccountID: accountID,
		Direction:       direction,
		Amount:          amount,
	})
}

// Validate enforces the double-entry invariants: at least two lines, every
// amount strictly positive, one shared currency, debits equal to credits.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return domainerrors.Validation("journal entry requires at least two lines")
	}
	currency := e.Lines[0].Amount.Currency()
	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range e.Lines {
		if !line.Amount.IsPositive() {
			return domainerrors.InvalidAmount("journal line amount must be positive")
		}
		if line.Amount.Currency() != currency {
			return domainerrors.CurrencyMismatch(currency.String(), line.Amount.Currency().String())
		}
		switch line.Direction {
		case DirectionDebit:
			debits = debits.Add(line.Amount.Amount())
		case DirectionCredit:
			credits = credits.Add(line.Amount.Amount())
		default:
			return domainerrors.Validationf("unknown line direction %q", line.Direction)
		}
	}
	if !debits.Equal(credits) {
		return domainerrors.Validationf("journal entry is unbalanced: debits %s, credits %s",
			debits.String(), credits.String())
	}
	return nil
}

// Currency returns the entry currency, valid only after lines are attached.
func (e *JournalEntry) Currency() valueobjects.Currency {
	if len(e.Lines) == 0 {
		return ""
	}
	return e.Lines[0].Amount.Currency()
}
