// Package ledger implements the posting engine shared by every operation
// that moves money. It owns account provisioning, the lock discipline, the
// idempotency probe and the balanced-entry write.
package ledger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// Engine is the posting core. All methods expect to run inside a unit of
// work; they never open transactions themselves.
type Engine struct {
	wallets ports.WalletRepository
	ledger  ports.LedgerRepository
}

func NewEngine(wallets ports.WalletRepository, ledger ports.LedgerRepository) *Engine {
	return &Engine{wallets: wallets, ledger: ledger}
}

// EnsureAccounts returns the wallet's available and held accounts, creating
// both on first touch.
func (e *Engine) EnsureAccounts(ctx context.Context, wallet *entities.Wallet) (map[entities.AccountKind]*entities.LedgerAccount, error) {
	accounts, err := e.ledger.AccountsByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	var missing []*entities.LedgerAccount
	for _, kind := range []entities.AccountKind{entities.AccountKindAvailable, entities.AccountKindHeld} {
		if _, ok := accounts[kind]; !ok {
			missing = append(missing, entities.NewLedgerAccount(wallet.ID, kind, wallet.Currency))
		}
	}
	if len(missing) > 0 {
		if err := e.ledger.CreateAccounts(ctx, missing); err != nil {
			return nil, err
		}
		for _, acc := range missing {
			accounts[acc.Kind] = acc
		}
	}
	return accounts, nil
}

// Lock takes FOR UPDATE locks on the given accounts in ascending id order.
// Ascending order across all postings is what prevents lock cycles.
func (e *Engine) Lock(ctx context.Context, accounts ...*entities.LedgerAccount) error {
	ids := make([]uuid.UUID, 0, len(accounts))
	seen := make(map[uuid.UUID]bool, len(accounts))
	for _, acc := range accounts {
		if !seen[acc.ID] {
			seen[acc.ID] = true
			ids = append(ids, acc.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return e.ledger.LockAccounts(ctx, ids)
}

// Balance reads an account balance as Money. Only meaningful under a lock
// when the caller is about to post against the account.
func (e *Engine) Balance(ctx context.Context, account *entities.LedgerAccount) (valueobjects.Money, error) {
	d, err := e.ledger.Balance(ctx, account.ID)
	if err != nil {
		return valueobjects.Money{}, err
	}
	return valueobjects.NewMoneyFromDecimal(d, account.Currency)
}

// CheckIdempotency probes for a prior entry under (key, apiKeyID).
// Returns (nil, nil) when the key is fresh, the entry when it was already
// spent on the same operation type, and IDEMPOTENCY_CONFLICT otherwise.
func (e *Engine) CheckIdempotency(ctx context.Context, idempotencyKey string, apiKeyID uuid.UUID, wantType entities.EntryType) (*entities.JournalEntry, error) {
	entry, err := e.ledger.FindEntryByIdempotency(ctx, idempotencyKey, apiKeyID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if entry.Type != wantType {
		return nil, domainerrors.IdempotencyConflict()
	}
	return entry, nil
}

// Post validates and writes a balanced entry. A duplicate-key error from
// the store surfaces unchanged so the caller can re-run its probe; that is
// the race window between probe and insert.
func (e *Engine) Post(ctx context.Context, entry *entities.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return e.ledger.CreateEntry(ctx, entry)
}

// RequireSufficient fails with INSUFFICIENT_FUNDS unless balance >= amount.
func RequireSufficient(balance, amount valueobjects.Money) error {
	if balance.LessThan(amount) {
		return domainerrors.InsufficientFunds(balance.String(), amount.String())
	}
	return nil
}

// EnforceLimits applies a key's spend limits to an outgoing amount.
// The daily total is read inside the posting transaction, after locks, so
// concurrent spenders serialize on the account row first.
func (e *Engine) EnforceLimits(ctx context.Context, key *entities.APIKey, amount valueobjects.Money, availableAccountID uuid.UUID, counterparty *entities.Wallet) error {
	if err := key.CheckPerTx(amount); err != nil {
		return err
	}
	if counterparty != nil {
		if err := key.CheckCounterparty(counterparty.ID, counterparty.Handle); err != nil {
			return err
		}
	}
	if key.Limits.DailyMax != nil {
		since := startOfUTCDay(time.Now().UTC())
		spent, err := e.ledger.DailyDebitTotal(ctx, availableAccountID, since)
		if err != nil {
			return err
		}
		if err := key.CheckDaily(spent, amount); err != nil {
			return err
		}
	}
	return nil
}

func startOfUTCDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseAmount turns a request amount string into Money in the expected
// currency, rejecting non-positive values.
func ParseAmount(amount string, currency valueobjects.Currency) (valueobjects.Money, error) {
	m, err := valueobjects.NewMoney(amount, currency)
	if err != nil {
		return valueobjects.Money{}, domainerrors.InvalidAmount(err.Error())
	}
	if !m.IsPositive() {
		return valueobjects.Money{}, domainerrors.InvalidAmount("amount must be positive")
	}
	return m, nil
}

// ResolveCurrency picks the request currency or falls back to the wallet's,
// and rejects a mismatch with the wallet.
func ResolveCurrency(requested string, wallet *entities.Wallet) (valueobjects.Currency, error) {
	if requested == "" {
		return wallet.Currency, nil
	}
	c, err := valueobjects.NewCurrency(requested)
	if err != nil {
		return "", domainerrors.Validation(err.Error())
	}
	if c != wallet.Currency {
		return "", domainerrors.CurrencyMismatch(wallet.Currency.String(), c.String())
	}
	return c, nil
}

// EntryAmount is the total debit side of a balanced entry, which for the
// two-line entries this service posts equals the operation amount.
func EntryAmount(entry *entities.JournalEntry) decimal.Decimal {
	total := decimal.Zero
	for _, line := range entry.Lines {
		if line.Direction == entities.DirectionDebit {
			total = total.Add(line.Amount.Amount())
		}
	}
	return total
}

// WalletOfAccount resolves the owning wallet of a ledger account id.
// Used when replaying a response from a stored entry.
func (e *Engine) WalletOfAccount(ctx context.Context, accountID uuid.UUID) (*entities.Wallet, error) {
	account, err := e.ledger.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return e.wallets.FindByID(ctx, account.WalletID)
}

// LineByDirection returns the first line on the given side of an entry.
func LineByDirection(entry *entities.JournalEntry, direction entities.LineDirection) (entities.JournalLine, bool) {
	for _, line := range entry.Lines {
		if line.Direction == direction {
			return line, true
		}
	}
	return entities.JournalLine{}, false
}
