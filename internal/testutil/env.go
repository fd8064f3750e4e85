package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// Env wires the full set of fakes the way the container wires the real
// repositories.
type Env struct {
	UoW        *FakeUnitOfWork
	Wallets    *FakeWallets
	Ledger     *FakeLedger
	Holds      *FakeHolds
	Captures   *FakeCaptures
	Refunds    *FakeRefunds
	Intents    *FakeIntents
	Keys       *FakeKeys
	Identities *FakeIdentities
	Publisher  *RecordingPublisher
	Engine     *ledger.Engine
	Resolver   *ledger.Resolver
}

func NewEnv() *Env {
	env := &Env{
		UoW:        &FakeUnitOfWork{},
		Wallets:    NewFakeWallets(),
		Ledger:     NewFakeLedger(),
		Holds:      NewFakeHolds(),
		Captures:   NewFakeCaptures(),
		Refunds:    NewFakeRefunds(),
		Intents:    NewFakeIntents(),
		Keys:       NewFakeKeys(),
		Identities: NewFakeIdentities(),
		Publisher:  &RecordingPublisher{},
	}
	env.Engine = ledger.NewEngine(env.Wallets, env.Ledger)
	env.Resolver = ledger.NewResolver(env.Wallets, env.Identities)
	return env
}

// NewWallet creates an active wallet with both ledger accounts.
func (e *Env) NewWallet(t *testing.T, walletType entities.WalletType, currency valueobjects.Currency, handle *string) *entities.Wallet {
	t.Helper()
	ctx := context.Background()
	w := entities.NewWallet(walletType, currency, handle)
	require.NoError(t, e.Wallets.Create(ctx, w))
	_, err := e.Engine.EnsureAccounts(ctx, w)
	require.NoError(t, err)
	return w
}

// NewSystemWallet provisions the reserved @system wallet.
func (e *Env) NewSystemWallet(t *testing.T, currency valueobjects.Currency) *entities.Wallet {
	t.Helper()
	h := entities.SystemWalletHandle
	return e.NewWallet(t, entities.WalletTypeSystem, currency, &h)
}

// NewKey creates an active API key bound to the wallet.
func (e *Env) NewKey(t *testing.T, walletID uuid.UUID, scopes []string, limits entities.KeyLimits) *entities.APIKey {
	t.Helper()
	key := entities.NewAPIKey("hash-"+uuid.NewString(), walletID, scopes, limits)
	require.NoError(t, e.Keys.Create(context.Background(), key))
	return key
}

// Fund credits amount into the wallet's available account, debiting the
// other side from a scratch account so the entry balances.
func (e *Env) Fund(t *testing.T, wallet *entities.Wallet, amount string) {
	t.Helper()
	ctx := context.Background()
	m, err := valueobjects.NewMoney(amount, wallet.Currency)
	require.NoError(t, err)

	accounts, err := e.Engine.EnsureAccounts(ctx, wallet)
	require.NoError(t, err)

	source := entities.NewLedgerAccount(uuid.New(), entities.AccountKindAvailable, wallet.Currency)
	require.NoError(t, e.Ledger.CreateAccounts(ctx, []*entities.LedgerAccount{source}))

	entry := entities.NewJournalEntry(entities.EntryTypeDepositExternal, "fund-"+uuid.NewString(), uuid.New(), nil, nil)
	entry.AddLine(source.ID, entities.DirectionDebit, m)
	entry.AddLine(accounts[entities.AccountKindAvailable].ID, entities.DirectionCredit, m)
	require.NoError(t, e.Ledger.CreateEntry(ctx, entry))
}

// AvailableBalance reads the wallet's available balance as a string.
func (e *Env) AvailableBalance(t *testing.T, wallet *entities.Wallet) string {
	t.Helper()
	return e.balance(t, wallet, entities.AccountKindAvailable)
}

// HeldBalance reads the wallet's held balance as a string.
func (e *Env) HeldBalance(t *testing.T, wallet *entities.Wallet) string {
	t.Helper()
	return e.balance(t, wallet, entities.AccountKindHeld)
}

func (e *Env) balance(t *testing.T, wallet *entities.Wallet, kind entities.AccountKind) string {
	t.Helper()
	ctx := context.Background()
	accounts, err := e.Engine.EnsureAccounts(ctx, wallet)
	require.NoError(t, err)
	d, err := e.Ledger.Balance(ctx, accounts[kind].ID)
	require.NoError(t, err)
	return d.String()
}

// ExpiredHold seeds an active hold already past its expiry, with the funds
// sitting in the held account as a real hold entry would leave them.
func (e *Env) ExpiredHold(t *testing.T, wallet *entities.Wallet, key *entities.APIKey, amount string) *entities.Hold {
	t.Helper()
	ctx := context.Background()
	m, err := valueobjects.NewMoney(amount, wallet.Currency)
	require.NoError(t, err)

	accounts, err := e.Engine.EnsureAccounts(ctx, wallet)
	require.NoError(t, err)
	entry := entities.NewJournalEntry(entities.EntryTypeHold, "hold-"+uuid.NewString(), key.ID, nil, nil)
	entry.AddLine(accounts[entities.AccountKindAvailable].ID, entities.DirectionDebit, m)
	entry.AddLine(accounts[entities.AccountKindHeld].ID, entities.DirectionCredit, m)
	require.NoError(t, e.Ledger.CreateEntry(ctx, entry))

	hold := entities.NewHold(wallet.ID, m, time.Now().UTC().Add(-time.Minute), key.ID, entry.IdempotencyKey)
	hold.JournalEntryID = &entry.ID
	require.NoError(t, e.Holds.Create(ctx, hold))
	return hold
}
