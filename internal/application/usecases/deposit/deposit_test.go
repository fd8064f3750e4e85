package deposit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
	"github.com/agentpay/walletd/internal/testutil"
)

func newDepositUseCase(env *testutil.Env) *DepositUseCase {
	return NewDepositUseCase(env.UoW, env.Wallets, env.Engine, env.Publisher, testutil.Logger())
}

func TestDeposit_Success(t *testing.T) {
	env := testutil.NewEnv()
	system := env.NewSystemWallet(t, valueobjects.USD)
	target := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, system.ID, []string{"admin:*"}, entities.KeyLimits{})

	resp, err := newDepositUseCase(env).Execute(context.Background(), key, dtos.DepositRequest{
		WalletID:       &target.ID,
		Amount:         "250.00",
		IdempotencyKey: "dep-1",
	})
	require.NoError(t, err)
	assert.Equal(t, target.ID, resp.WalletID)
	assert.Equal(t, "250", resp.Amount)

	assert.Equal(t, "250", env.AvailableBalance(t, target))
	// The system wallet absorbs the debit and goes negative.
	assert.Equal(t, "-250", env.AvailableBalance(t, system))
}

func TestDeposit_ByHandle(t *testing.T) {
	env := testutil.NewEnv()
	env.NewSystemWallet(t, valueobjects.USD)
	handle := "@alice"
	target := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, &handle)
	key := env.NewKey(t, target.ID, nil, entities.KeyLimits{})

	resp, err := newDepositUseCase(env).Execute(context.Background(), key, dtos.DepositRequest{
		Handle:         &handle,
		Amount:         "10.00",
		IdempotencyKey: "dep-handle",
	})
	require.NoError(t, err)
	assert.Equal(t, target.ID, resp.WalletID)
}

func TestDeposit_Replay(t *testing.T) {
	env := testutil.NewEnv()
	system := env.NewSystemWallet(t, valueobjects.USD)
	target := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, system.ID, nil, entities.KeyLimits{})

	uc := newDepositUseCase(env)
	req := dtos.DepositRequest{WalletID: &target.ID, Amount: "100.00", IdempotencyKey: "dep-dup"}
	first, err := uc.Execute(context.Background(), key, req)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), key, req)
	require.NoError(t, err)
	assert.Equal(t, first.EntryID, second.EntryID)
	assert.Equal(t, "100", env.AvailableBalance(t, target))
}

func TestDeposit_MissingSystemWallet(t *testing.T) {
	env := testutil.NewEnv()
	target := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, target.ID, nil, entities.KeyLimits{})

	_, err := newDepositUseCase(env).Execute(context.Background(), key, dtos.DepositRequest{
		WalletID:       &target.ID,
		Amount:         "10.00",
		IdempotencyKey: "dep-nosys",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeInternal, domainerrors.CodeOf(err))
}

func TestDeposit_TargetNotFound(t *testing.T) {
	env := testutil.NewEnv()
	system := env.NewSystemWallet(t, valueobjects.USD)
	key := env.NewKey(t, system.ID, nil, entities.KeyLimits{})

	missing := uuid.New()
	_, err := newDepositUseCase(env).Execute(context.Background(), key, dtos.DepositRequest{
		WalletID:       &missing,
		Amount:         "10.00",
		IdempotencyKey: "dep-missing",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeWalletNotFound, domainerrors.CodeOf(err))
}

func TestDeposit_NoTarget(t *testing.T) {
	env := testutil.NewEnv()
	system := env.NewSystemWallet(t, valueobjects.USD)
	key := env.NewKey(t, system.ID, nil, entities.KeyLimits{})

	_, err := newDepositUseCase(env).Execute(context.Background(), key, dtos.DepositRequest{
		Amount:         "10.00",
		IdempotencyKey: "dep-notarget",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeValidationError, domainerrors.CodeOf(err))
}

func TestDeposit_CurrencyMismatch(t *testing.T) {
	env := testutil.NewEnv()
	env.NewSystemWallet(t, valueobjects.USD)
	target := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.EUR, nil)
	key := env.NewKey(t, target.ID, nil, entities.KeyLimits{})

	_, err := newDepositUseCase(env).Execute(context.Background(), key, dtos.DepositRequest{
		WalletID:       &target.ID,
		Amount:         "10.00",
		IdempotencyKey: "dep-eur",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeCurrencyMismatch, domainerrors.CodeOf(err))
}

func TestDeposit_FrozenTarget(t *testing.T) {
	env := testutil.NewEnv()
	system := env.NewSystemWallet(t, valueobjects.USD)
	target := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	require.NoError(t, target.Freeze())
	key := env.NewKey(t, system.ID, nil, entities.KeyLimits{})

	_, err := newDepositUseCase(env).Execute(context.Background(), key, dtos.DepositRequest{
		WalletID:       &target.ID,
		Amount:         "10.00",
		IdempotencyKey: "dep-frozen",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeWalletFrozen, domainerrors.CodeOf(err))
}
