// Package entities holds the persistent records of the ledger domain.
// The model is deliberately flat: plain structs with foreign keys, no
// aggregate graphs. All value movement goes through journal entries.
package entities

import (
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// WalletType distinguishes who owns the wallet.
type WalletType string

const (
	WalletTypeCustomer WalletType = "customer"
	WalletTypeBusiness WalletType = "business"
	WalletTypeSystem   WalletType = "system"
)

// WalletStatus is the wallet lifecycle state.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "active"
	WalletStatusFrozen WalletStatus = "frozen"
	WalletStatusClosed WalletStatus = "closed"
)

// SystemWalletHandle is the reserved handle of the wallet that external
// deposits are debited from. Money enters the ledger only through it.
const SystemWalletHandle = "@system"

// Wallet is a funds container. Balances are never stored on the wallet;
// they are derived from the journal lines of its two ledger accounts.
type Wallet struct {
	ID        uuid.UUID
	Type      WalletType
	Status    WalletStatus
	Currency  valueobjects.Currency
	Handle    *string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWallet builds an active wallet in the given currency.
func NewWallet(walletType WalletType, currency valueobjects.Currency, handle *string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		Type:      walletType,
		Status:    WalletStatusActive,
		Currency:  currency,
		Handle:    handle,
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive reports whether the wallet can participate in operations.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// EnsureActive returns the status-specific domain error for a non-active
// wallet, or nil.
func (w *Wallet) EnsureActive() error {
	if w.IsActive() {
		return nil
	}
	return domainerrors.WalletState(string(w.Status))
}

// Freeze marks the wallet frozen. Closed wallets stay closed.
func (w *Wallet) Freeze() error {
	if w.Status == WalletStatusClosed {
		return domainerrors.WalletState(string(w.Status))
	}
	w.Status = WalletStatusFrozen
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// Unfreeze reactivates a frozen wallet.
func (w *Wallet) Unfreeze() error {
	if w.Status != WalletStatusFrozen {
		return domainerrors.WalletState(string(w.Status))
	}
	w.Status = WalletStatusActive
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// HandleOrEmpty returns the handle or "".
func (w *Wallet) HandleOrEmpty() string {
	if w.Handle == nil {
		return ""
	}
	return *w.Handle
}

// AccountKind partitions a wallet's funds.
type AccountKind string

const (
	AccountKindAvailable AccountKind = "available"
	AccountKindHeld      AccountKind = "held"
)

// LedgerAccount is one side of a wallet's balance. Every wallet has exactly
// one account per kind; rows are the unit of locking for all postings.
type LedgerAccount struct {
	ID        uuid.UUID
	WalletID  uuid.UUID
	Kind      AccountKind
	Currency  valueobjects.Currency
	CreatedAt time.Time
}

// NewLedgerAccount builds an account for a wallet.
func NewLedgerAccount(walletID uuid.UUID, kind AccountKind, currency valueobjects.Currency) *LedgerAccount {
	return &LedgerAccount{
		ID:        uuid.New(),
		WalletID:  walletID,
		Kind:      kind,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}
}
