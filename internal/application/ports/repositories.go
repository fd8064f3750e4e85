// Package ports declares the contracts between the application layer and
// the infrastructure. Use cases depend on these interfaces only; postgres
// and NATS live behind them.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/internal/domain/entities"
)

// WalletRepository persists wallets.
type WalletRepository interface {
	Create(ctx context.Context, wallet *entities.Wallet) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	FindByHandle(ctx context.Context, handle string) (*entities.Wallet, error)
	// Save persists mutable fields (status, metadata, updated_at).
	Save(ctx context.Context, wallet *entities.Wallet) error
}

// TransactionFilter narrows a wallet's transaction listing. Cursor fields
// come from the previous page's keyset token.
type TransactionFilter struct {
	Type       *entities.EntryType
	Status     *entities.EntryStatus
	From       *time.Time
	To         *time.Time
	CursorTime *time.Time
	CursorID   *uuid.UUID
	Limit      int
}

// LedgerRepository persists ledger accounts, journal entries and lines.
// It is the only repository that reads balances; every balance read under a
// posting must happen after LockAccounts.
type LedgerRepository interface {
	CreateAccounts(ctx context.Context, accounts []*entities.LedgerAccount) error
	AccountsByWallet(ctx context.Context, walletID uuid.UUID) (map[entities.AccountKind]*entities.LedgerAccount, error)
	FindAccountByID(ctx context.Context, id uuid.UUID) (*entities.LedgerAccount, error)
	// AccountWallets maps account ids to their owning wallet ids in bulk.
	AccountWallets(ctx context.Context, accountIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	// LockAccounts takes FOR UPDATE row locks in ascending id order.
	LockAccounts(ctx context.Context, ids []uuid.UUID) error
	// Balance is sum(credits) - sum(debits) over posted lines.
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	// CreateEntry inserts the entry and all its lines. A unique violation on
	// (idempotency_key, created_by_api_key_id) surfaces as ErrDuplicateKey.
	CreateEntry(ctx context.Context, entry *entities.JournalEntry) error
	FindEntryByID(ctx context.Context, id uuid.UUID) (*entities.JournalEntry, error)
	FindEntryByIdempotency(ctx context.Context, idempotencyKey string, apiKeyID uuid.UUID) (*entities.JournalEntry, error)
	// ListEntriesForAccounts pages entries that touch any of the accounts,
	// newest first, (created_at, id) keyset.
	ListEntriesForAccounts(ctx context.Context, accountIDs []uuid.UUID, filter TransactionFilter) ([]*entities.JournalEntry, error)
	// DailyDebitTotal sums posted debit lines on the account since the given
	// instant. Used for the daily spend limit.
	DailyDebitTotal(ctx context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error)
}

// HoldRepository persists holds.
type HoldRepository interface {
	Create(ctx context.Context, hold *entities.Hold) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Hold, error)
	// FindByIDForUpdate takes a FOR UPDATE row lock on the hold. Every
	// operation that drains Remaining must read through this so concurrent
	// captures, releases and sweeps serialize on the hold row.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Hold, error)
	FindByIdempotency(ctx context.Context, idempotencyKey string, apiKeyID uuid.UUID) (*entities.Hold, error)
	Save(ctx context.Context, hold *entities.Hold) error
	// FindExpiredActive returns active holds past their expiry, oldest first.
	FindExpiredActive(ctx context.Context, now time.Time, limit int) ([]*entities.Hold, error)
}

// CaptureRepository persists captures.
type CaptureRepository interface {
	Create(ctx context.Context, capture *entities.Capture) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Capture, error)
	FindByIdempotency(ctx context.Context, idempotencyKey string) (*entities.Capture, error)
	Save(ctx context.Context, capture *entities.Capture) error
}

// RefundRepository persists refunds.
type RefundRepository interface {
	Create(ctx context.Context, refund *entities.Refund) error
	FindByIdempotency(ctx context.Context, idempotencyKey string) (*entities.Refund, error)
}

// PaymentIntentRepository persists payment intents.
type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *entities.PaymentIntent) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)
	FindByJournalEntry(ctx context.Context, journalEntryID uuid.UUID) (*entities.PaymentIntent, error)
	Save(ctx context.Context, intent *entities.PaymentIntent) error
}

// APIKeyRepository persists API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *entities.APIKey) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.APIKey, error)
	FindByHash(ctx context.Context, keyHash string) (*entities.APIKey, error)
	Save(ctx context.Context, key *entities.APIKey) error
	// TouchLastUsed updates last_used_at without racing other writers.
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ExternalIdentityRepository persists provider-user-to-wallet bindings.
type ExternalIdentityRepository interface {
	Create(ctx context.Context, identity *entities.ExternalIdentity) error
	Find(ctx context.Context, provider, externalUserID string) (*entities.ExternalIdentity, error)
}

// AuditRepository persists audit records. Writes are best effort.
type AuditRepository interface {
	Create(ctx context.Context, record *entities.AuditRecord) error
}
