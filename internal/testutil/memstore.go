// Package testutil provides in-memory implementations of the persistence
// ports for use case tests. Behavior mirrors the postgres repositories:
// the same unique constraints, the same sentinel errors.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FakeUnitOfWork runs the function under a single mutex, so concurrent
// units of work serialize the way row locks serialize real transactions.
// There is no rollback; tests assert on the error path instead.
type FakeUnitOfWork struct {
	mu sync.Mutex
}

var _ ports.UnitOfWork = (*FakeUnitOfWork)(nil)

func (u *FakeUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(ctx)
}

func (u *FakeUnitOfWork) ExecuteWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(ctx)
}

func (u *FakeUnitOfWork) ExecuteWithRetry(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(ctx)
}

// RecordingPublisher collects published events.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []events.DomainEvent
}

var _ ports.EventPublisher = (*RecordingPublisher)(nil)

func (p *RecordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

func (p *RecordingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, batch...)
	return nil
}

// FakeWallets is an in-memory WalletRepository.
type FakeWallets struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*entities.Wallet
}

var _ ports.WalletRepository = (*FakeWallets)(nil)

func NewFakeWallets() *FakeWallets {
	return &FakeWallets{wallets: make(map[uuid.UUID]*entities.Wallet)}
}

func (r *FakeWallets) Create(ctx context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wallet.Handle != nil {
		for _, w := range r.wallets {
			if w.Handle != nil && *w.Handle == *wallet.Handle {
				return domainerrors.ErrDuplicateKey
			}
		}
	}
	r.wallets[wallet.ID] = wallet
	return nil
}

func (r *FakeWallets) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return w, nil
}

func (r *FakeWallets) FindByHandle(ctx context.Context, handle string) (*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.Handle != nil && *w.Handle == handle {
			return w, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *FakeWallets) Save(ctx context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[wallet.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	r.wallets[wallet.ID] = wallet
	return nil
}

// FakeLedger is an in-memory LedgerRepository. Balances are derived from
// the stored entries, exactly like the SQL implementation.
type FakeLedger struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*entities.LedgerAccount
	entries  []*entities.JournalEntry
}

var _ ports.LedgerRepository = (*FakeLedger)(nil)

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{accounts: make(map[uuid.UUID]*entities.LedgerAccount)}
}

func (r *FakeLedger) CreateAccounts(ctx context.Context, accounts []*entities.LedgerAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acc := range accounts {
		for _, existing := range r.accounts {
			if existing.WalletID == acc.WalletID && existing.Kind == acc.Kind {
				return domainerrors.ErrDuplicateKey
			}
		}
		r.accounts[acc.ID] = acc
	}
	return nil
}

func (r *FakeLedger) AccountsByWallet(ctx context.Context, walletID uuid.UUID) (map[entities.AccountKind]*entities.LedgerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[entities.AccountKind]*entities.LedgerAccount)
	for _, acc := range r.accounts {
		if acc.WalletID == walletID {
			out[acc.Kind] = acc
		}
	}
	return out, nil
}

func (r *FakeLedger) FindAccountByID(ctx context.Context, id uuid.UUID) (*entities.LedgerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return acc, nil
}

func (r *FakeLedger) AccountWallets(ctx context.Context, accountIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]uuid.UUID, len(accountIDs))
	for _, id := range accountIDs {
		if acc, ok := r.accounts[id]; ok {
			out[id] = acc.WalletID
		}
	}
	return out, nil
}

func (r *FakeLedger) LockAccounts(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.accounts[id]; !ok {
			return domainerrors.ErrNotFound
		}
	}
	return nil
}

func (r *FakeLedger) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, entry := range r.entries {
		if entry.Status != entities.EntryStatusPosted {
			continue
		}
		for _, line := range entry.Lines {
			if line.LedgerAccountID != accountID {
				continue
			}
			if line.Direction == entities.DirectionCredit {
				total = total.Add(line.Amount.Amount())
			} else {
				total = total.Sub(line.Amount.Amount())
			}
		}
	}
	return total, nil
}

func (r *FakeLedger) DailyDebitTotal(ctx context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, entry := range r.entries {
		if entry.Status != entities.EntryStatusPosted || entry.CreatedAt.Before(since) {
			continue
		}
		for _, line := range entry.Lines {
			if line.LedgerAccountID == accountID && line.Direction == entities.DirectionDebit {
				total = total.Add(line.Amount.Amount())
			}
		}
	}
	return total, nil
}

func (r *FakeLedger) CreateEntry(ctx context.Context, entry *entities.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.IdempotencyKey == entry.IdempotencyKey && existing.CreatedByAPIKeyID == entry.CreatedByAPIKeyID {
			return domainerrors.ErrDuplicateKey
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *FakeLedger) FindEntryByID(ctx context.Context, id uuid.UUID) (*entities.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *FakeLedger) FindEntryByIdempotency(ctx context.Context, idempotencyKey string, apiKeyID uuid.UUID) (*entities.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.IdempotencyKey == idempotencyKey && entry.CreatedByAPIKeyID == apiKeyID {
			return entry, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *FakeLedger) ListEntriesForAccounts(ctx context.Context, accountIDs []uuid.UUID, filter ports.TransactionFilter) ([]*entities.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[uuid.UUID]bool, len(accountIDs))
	for _, id := range accountIDs {
		ids[id] = true
	}
	var matched []*entities.JournalEntry
	for _, entry := range r.entries {
		touches := false
		for _, line := range entry.Lines {
			if ids[line.LedgerAccountID] {
				touches = true
				break
			}
		}
		if !touches {
			continue
		}
		if filter.Type != nil && entry.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && entry.Status != *filter.Status {
			continue
		}
		if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, entry)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})
	if filter.CursorTime != nil && filter.CursorID != nil {
		var after []*entities.JournalEntry
		for _, entry := range matched {
			if entry.CreatedAt.Before(*filter.CursorTime) ||
				(entry.CreatedAt.Equal(*filter.CursorTime) && entry.ID.String() < filter.CursorID.String()) {
				after = append(after, entry)
			}
		}
		matched = after
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// FakeHolds is an in-memory HoldRepository.
type FakeHolds struct {
	mu    sync.Mutex
	holds map[uuid.UUID]*entities.Hold
}

var _ ports.HoldRepository = (*FakeHolds)(nil)

func NewFakeHolds() *FakeHolds {
	return &FakeHolds{holds: make(map[uuid.UUID]*entities.Hold)}
}

func (r *FakeHolds) Create(ctx context.Context, hold *entities.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.holds {
		if h.IdempotencyKey == hold.IdempotencyKey && h.CreatedByAPIKeyID == hold.CreatedByAPIKeyID {
			return domainerrors.ErrDuplicateKey
		}
	}
	r.holds[hold.ID] = hold
	return nil
}

func (r *FakeHolds) FindByID(ctx context.Context, id uuid.UUID) (*entities.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holds[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return h, nil
}

// FindByIDForUpdate is FindByID; the serializing FakeUnitOfWork already
// gives each unit of work exclusive access.
func (r *FakeHolds) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Hold, error) {
	return r.FindByID(ctx, id)
}

func (r *FakeHolds) FindByIdempotency(ctx context.Context, idempotencyKey string, apiKeyID uuid.UUID) (*entities.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.holds {
		if h.IdempotencyKey == idempotencyKey && h.CreatedByAPIKeyID == apiKeyID {
			return h, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *FakeHolds) Save(ctx context.Context, hold *entities.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.holds[hold.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	r.holds[hold.ID] = hold
	return nil
}

func (r *FakeHolds) FindExpiredActive(ctx context.Context, now time.Time, limit int) ([]*entities.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Hold
	for _, h := range r.holds {
		if h.Status == entities.HoldStatusActive && !now.Before(h.ExpiresAt) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FakeCaptures is an in-memory CaptureRepository.
type FakeCaptures struct {
	mu       sync.Mutex
	captures map[uuid.UUID]*entities.Capture
}

var _ ports.CaptureRepository = (*FakeCaptures)(nil)

func NewFakeCaptures() *FakeCaptures {
	return &FakeCaptures{captures: make(map[uuid.UUID]*entities.Capture)}
}

func (r *FakeCaptures) Create(ctx context.Context, capture *entities.Capture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.captures {
		if c.IdempotencyKey == capture.IdempotencyKey {
			return domainerrors.ErrDuplicateKey
		}
	}
	r.captures[capture.ID] = capture
	return nil
}

func (r *FakeCaptures) FindByID(ctx context.Context, id uuid.UUID) (*entities.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.captures[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return c, nil
}

func (r *FakeCaptures) FindByIdempotency(ctx context.Context, idempotencyKey string) (*entities.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.captures {
		if c.IdempotencyKey == idempotencyKey {
			return c, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *FakeCaptures) Save(ctx context.Context, capture *entities.Capture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.captures[capture.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	r.captures[capture.ID] = capture
	return nil
}

// FakeRefunds is an in-memory RefundRepository.
type FakeRefunds struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]*entities.Refund
}

var _ ports.RefundRepository = (*FakeRefunds)(nil)

func NewFakeRefunds() *FakeRefunds {
	return &FakeRefunds{refunds: make(map[uuid.UUID]*entities.Refund)}
}

func (r *FakeRefunds) Create(ctx context.Context, refund *entities.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rf := range r.refunds {
		if rf.IdempotencyKey == refund.IdempotencyKey {
			return domainerrors.ErrDuplicateKey
		}
	}
	r.refunds[refund.ID] = refund
	return nil
}

func (r *FakeRefunds) FindByIdempotency(ctx context.Context, idempotencyKey string) (*entities.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rf := range r.refunds {
		if rf.IdempotencyKey == idempotencyKey {
			return rf, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

// FakeIntents is an in-memory PaymentIntentRepository.
type FakeIntents struct {
	mu      sync.Mutex
	intents map[uuid.UUID]*entities.PaymentIntent
}

var _ ports.PaymentIntentRepository = (*FakeIntents)(nil)

func NewFakeIntents() *FakeIntents {
	return &FakeIntents{intents: make(map[uuid.UUID]*entities.PaymentIntent)}
}

func (r *FakeIntents) Create(ctx context.Context, intent *entities.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents[intent.ID] = intent
	return nil
}

func (r *FakeIntents) FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pi, ok := r.intents[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return pi, nil
}

func (r *FakeIntents) FindByJournalEntry(ctx context.Context, journalEntryID uuid.UUID) (*entities.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pi := range r.intents {
		if pi.JournalEntryID != nil && *pi.JournalEntryID == journalEntryID {
			return pi, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *FakeIntents) Save(ctx context.Context, intent *entities.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.intents[intent.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	r.intents[intent.ID] = intent
	return nil
}

// FakeKeys is an in-memory APIKeyRepository.
type FakeKeys struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*entities.APIKey
}

var _ ports.APIKeyRepository = (*FakeKeys)(nil)

func NewFakeKeys() *FakeKeys {
	return &FakeKeys{keys: make(map[uuid.UUID]*entities.APIKey)}
}

func (r *FakeKeys) Create(ctx context.Context, key *entities.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.KeyHash == key.KeyHash {
			return domainerrors.ErrDuplicateKey
		}
	}
	r.keys[key.ID] = key
	return nil
}

func (r *FakeKeys) FindByID(ctx context.Context, id uuid.UUID) (*entities.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return k, nil
}

func (r *FakeKeys) FindByHash(ctx context.Context, keyHash string) (*entities.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.KeyHash == keyHash {
			return k, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *FakeKeys) Save(ctx context.Context, key *entities.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	r.keys[key.ID] = key
	return nil
}

func (r *FakeKeys) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	if k.LastUsedAt == nil || k.LastUsedAt.Before(at) {
		k.LastUsedAt = &at
	}
	return nil
}

// FakeIdentities is an in-memory ExternalIdentityRepository.
type FakeIdentities struct {
	mu         sync.Mutex
	identities []*entities.ExternalIdentity
}

var _ ports.ExternalIdentityRepository = (*FakeIdentities)(nil)

func NewFakeIdentities() *FakeIdentities {
	return &FakeIdentities{}
}

func (r *FakeIdentities) Create(ctx context.Context, identity *entities.ExternalIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.identities {
		if existing.Provider == identity.Provider && existing.ExternalUserID == identity.ExternalUserID {
			return domainerrors.ErrDuplicateKey
		}
	}
	r.identities = append(r.identities, identity)
	return nil
}

func (r *FakeIdentities) Find(ctx context.Context, provider, externalUserID string) (*entities.ExternalIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identity := range r.identities {
		if identity.Provider == provider && identity.ExternalUserID == externalUserID {
			return identity, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

// FakeAudits is an in-memory AuditRepository.
type FakeAudits struct {
	mu      sync.Mutex
	Records []*entities.AuditRecord
}

var _ ports.AuditRepository = (*FakeAudits)(nil)

func NewFakeAudits() *FakeAudits {
	return &FakeAudits{}
}

func (r *FakeAudits) Create(ctx context.Context, record *entities.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records = append(r.Records, record)
	return nil
}
