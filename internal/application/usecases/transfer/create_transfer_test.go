package transfer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
	"github.com/agentpay/walletd/internal/testutil"
)

func newTransferUseCase(env *testutil.Env) *CreateTransferUseCase {
	return NewCreateTransferUseCase(env.UoW, env.Wallets, env.Engine, env.Resolver, env.Publisher, testutil.Logger())
}

func TestCreateTransfer_Success(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, []string{"transfer:create"}, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	resp, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "25.50",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "25.5", resp.Amount)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, source.ID, resp.FromWalletID)
	assert.Equal(t, recipient.ID, resp.ToWalletID)
	assert.Equal(t, string(entities.EntryStatusPosted), resp.Status)

	assert.Equal(t, "74.5", env.AvailableBalance(t, source))
	assert.Equal(t, "25.5", env.AvailableBalance(t, recipient))
	assert.Len(t, env.Publisher.Events, 1)
}

func TestCreateTransfer_IdempotentReplay(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	req := dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-dup",
	}
	first, err := uc.Execute(context.Background(), key, req)
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(), key, req)
	require.NoError(t, err)
	assert.Equal(t, first.TransferID, second.TransferID)

	// Money moved once.
	assert.Equal(t, "90", env.AvailableBalance(t, source))
	assert.Equal(t, "10", env.AvailableBalance(t, recipient))
}

func TestCreateTransfer_IdempotencyConflict(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	// Spend the key on a hold-typed entry first.
	accounts, err := env.Engine.EnsureAccounts(context.Background(), source)
	require.NoError(t, err)
	amount, _ := valueobjects.NewMoney("1.00", valueobjects.USD)
	entry := entities.NewJournalEntry(entities.EntryTypeHold, "shared-key", key.ID, nil, nil)
	entry.AddLine(accounts[entities.AccountKindAvailable].ID, entities.DirectionDebit, amount)
	entry.AddLine(accounts[entities.AccountKindHeld].ID, entities.DirectionCredit, amount)
	require.NoError(t, env.Ledger.CreateEntry(context.Background(), entry))

	uc := newTransferUseCase(env)
	_, err = uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "shared-key",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeIdempotencyConflict, domainerrors.CodeOf(err))
}

func TestCreateTransfer_ReplayOfIntentPaymentConflicts(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	// Spend the key on a transfer-typed entry that references an intent.
	ctx := context.Background()
	srcAccounts, err := env.Engine.EnsureAccounts(ctx, source)
	require.NoError(t, err)
	dstAccounts, err := env.Engine.EnsureAccounts(ctx, recipient)
	require.NoError(t, err)
	amount, _ := valueobjects.NewMoney("10.00", valueobjects.USD)
	intentID := uuid.New()
	entry := entities.NewJournalEntry(entities.EntryTypeTransfer, "intent-key", key.ID, &intentID, nil)
	entry.AddLine(srcAccounts[entities.AccountKindAvailable].ID, entities.DirectionDebit, amount)
	entry.AddLine(dstAccounts[entities.AccountKindAvailable].ID, entities.DirectionCredit, amount)
	require.NoError(t, env.Ledger.CreateEntry(ctx, entry))

	_, err = newTransferUseCase(env).Execute(ctx, key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "intent-key",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeIdempotencyConflict, domainerrors.CodeOf(err))
}

func TestCreateTransfer_ConcurrentSpenders(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "1000.00")

	// Five concurrent 300 transfers against a 1000 balance: the account
	// serializes them, so exactly three commit and two fail on funds.
	uc := newTransferUseCase(env)
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func(i int) {
			_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
				Amount:         "300.00",
				To:             dtos.RecipientRef{WalletID: &recipient.ID},
				IdempotencyKey: "tr-race-" + string(rune('a'+i)),
			})
			errs <- err
		}(i)
	}

	var committed, refused int
	for i := 0; i < 5; i++ {
		err := <-errs
		if err == nil {
			committed++
			continue
		}
		assert.Equal(t, domainerrors.CodeInsufficientFunds, domainerrors.CodeOf(err))
		refused++
	}
	assert.Equal(t, 3, committed)
	assert.Equal(t, 2, refused)
	assert.Equal(t, "100", env.AvailableBalance(t, source))
	assert.Equal(t, "900", env.AvailableBalance(t, recipient))
}

func TestCreateTransfer_InsufficientFunds(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "5.00")

	uc := newTransferUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-broke",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeInsufficientFunds, domainerrors.CodeOf(err))
	assert.Equal(t, "5", env.AvailableBalance(t, source))
}

func TestCreateTransfer_SelfTransfer(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &source.ID},
		IdempotencyKey: "tr-self",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeSelfTransfer, domainerrors.CodeOf(err))
}

func TestCreateTransfer_RecipientByHandle(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	handle := "@shop"
	recipient := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, &handle)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	resp, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{Handle: &handle},
		IdempotencyKey: "tr-handle",
	})
	require.NoError(t, err)
	assert.Equal(t, recipient.ID, resp.ToWalletID)

	// A handle without the "@" prefix reaches the same wallet.
	bare := "shop"
	resp, err = uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{Handle: &bare},
		IdempotencyKey: "tr-handle-bare",
	})
	require.NoError(t, err)
	assert.Equal(t, recipient.ID, resp.ToWalletID)
}

func TestCreateTransfer_RecipientNotFound(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	missing := uuid.New()
	uc := newTransferUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &missing},
		IdempotencyKey: "tr-missing",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeRecipientNotFound, domainerrors.CodeOf(err))
}

func TestCreateTransfer_FrozenRecipient(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	require.NoError(t, recipient.Freeze())
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-frozen",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeWalletFrozen, domainerrors.CodeOf(err))
}

func TestCreateTransfer_PerTxLimit(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	max := decimal.RequireFromString("50.00")
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{PerTxMax: &max})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "50.01",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-limit",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeLimitExceeded, domainerrors.CodeOf(err))
}

func TestCreateTransfer_DailyLimit(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	daily := decimal.RequireFromString("60.00")
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{DailyMax: &daily})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "40.00",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-day-1",
	})
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "25.00",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-day-2",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeLimitExceeded, domainerrors.CodeOf(err))
}

func TestCreateTransfer_CounterpartyAllowlist(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	allowed := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	blocked := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{
		AllowedCounterparties: []entities.CounterpartyRef{{WalletID: &allowed.ID}},
	})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &allowed.ID},
		IdempotencyKey: "tr-cp-ok",
	})
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &blocked.ID},
		IdempotencyKey: "tr-cp-no",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeCounterpartyNotAllowed, domainerrors.CodeOf(err))
}

func TestCreateTransfer_CurrencyMismatch(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.EUR, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-ccy",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeCurrencyMismatch, domainerrors.CodeOf(err))

	_, err = uc.Execute(context.Background(), key, dtos.TransferRequest{
		Amount:         "10.00",
		Currency:       "EUR",
		To:             dtos.RecipientRef{WalletID: &recipient.ID},
		IdempotencyKey: "tr-ccy-2",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeCurrencyMismatch, domainerrors.CodeOf(err))
}

func TestCreateTransfer_InvalidAmount(t *testing.T) {
	env := testutil.NewEnv()
	source := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	recipient := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, source.ID, nil, entities.KeyLimits{})
	env.Fund(t, source, "100.00")

	uc := newTransferUseCase(env)
	for _, amount := range []string{"0", "-5", "abc", "1.23456"} {
		_, err := uc.Execute(context.Background(), key, dtos.TransferRequest{
			Amount:         amount,
			To:             dtos.RecipientRef{WalletID: &recipient.ID},
			IdempotencyKey: "tr-bad-" + amount,
		})
		require.Error(t, err, "amount %q", amount)
		assert.Equal(t, domainerrors.CodeInvalidAmount, domainerrors.CodeOf(err), "amount %q", amount)
	}
}
