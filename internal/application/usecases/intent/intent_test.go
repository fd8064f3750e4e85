package intent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
	"github.com/agentpay/walletd/internal/testutil"
)

func newCreateUseCase(env *testutil.Env) *CreateIntentUseCase {
	return NewCreateIntentUseCase(env.UoW, env.Wallets, env.Intents)
}

func newPayUseCase(env *testutil.Env) *PayIntentUseCase {
	return NewPayIntentUseCase(env.UoW, env.Wallets, env.Intents, env.Engine, env.Publisher, testutil.Logger())
}

func TestCreateIntent_Success(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})

	resp, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreatePaymentIntentRequest{
		Amount: "9.99",
	})
	require.NoError(t, err)
	assert.Equal(t, merchant.ID, resp.MerchantWalletID)
	assert.Equal(t, "9.99", resp.Amount)
	assert.Equal(t, string(entities.IntentStatusRequiresPayment), resp.Status)

	// Default expiry applies when the request omits it.
	expectedExpiry := time.Now().UTC().Add(DefaultExpirySeconds * time.Second)
	assert.WithinDuration(t, expectedExpiry, resp.ExpiresAt, 5*time.Second)
}

func TestCreateIntent_ExpiryBounds(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})

	uc := newCreateUseCase(env)
	for _, seconds := range []int{MinExpirySeconds - 1, MaxExpirySeconds + 1} {
		s := seconds
		_, err := uc.Execute(context.Background(), key, dtos.CreatePaymentIntentRequest{
			Amount:           "9.99",
			ExpiresInSeconds: &s,
		})
		require.Error(t, err)
		assert.Equal(t, domainerrors.CodeValidationError, domainerrors.CodeOf(err))
	}
}

func TestPayIntent_Success(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchantKey := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})
	payerKey := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "50.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), merchantKey, dtos.CreatePaymentIntentRequest{
		Amount: "20.00",
	})
	require.NoError(t, err)

	resp, err := newPayUseCase(env).Execute(context.Background(), payerKey, created.IntentID, dtos.PayIntentRequest{
		IdempotencyKey: "pay-1",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entities.IntentStatusPaid), resp.Status)
	assert.Equal(t, payer.ID, resp.PayerWalletID)
	assert.Equal(t, merchant.ID, resp.MerchantWalletID)

	assert.Equal(t, "30", env.AvailableBalance(t, payer))
	assert.Equal(t, "20", env.AvailableBalance(t, merchant))
}

func TestPayIntent_Replay(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchantKey := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})
	payerKey := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "50.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), merchantKey, dtos.CreatePaymentIntentRequest{
		Amount: "20.00",
	})
	require.NoError(t, err)

	pay := newPayUseCase(env)
	first, err := pay.Execute(context.Background(), payerKey, created.IntentID, dtos.PayIntentRequest{IdempotencyKey: "pay-dup"})
	require.NoError(t, err)
	second, err := pay.Execute(context.Background(), payerKey, created.IntentID, dtos.PayIntentRequest{IdempotencyKey: "pay-dup"})
	require.NoError(t, err)
	assert.Equal(t, first.TransferID, second.TransferID)
	assert.Equal(t, "30", env.AvailableBalance(t, payer))
}

func TestPayIntent_AlreadyPaid(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	other := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchantKey := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})
	payerKey := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	otherKey := env.NewKey(t, other.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "50.00")
	env.Fund(t, other, "50.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), merchantKey, dtos.CreatePaymentIntentRequest{
		Amount: "20.00",
	})
	require.NoError(t, err)

	pay := newPayUseCase(env)
	_, err = pay.Execute(context.Background(), payerKey, created.IntentID, dtos.PayIntentRequest{IdempotencyKey: "pay-1"})
	require.NoError(t, err)

	_, err = pay.Execute(context.Background(), otherKey, created.IntentID, dtos.PayIntentRequest{IdempotencyKey: "pay-2"})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeIntentNotPayable, domainerrors.CodeOf(err))
}

func TestPayIntent_SelfPayment(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})
	env.Fund(t, merchant, "50.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreatePaymentIntentRequest{
		Amount: "20.00",
	})
	require.NoError(t, err)

	_, err = newPayUseCase(env).Execute(context.Background(), key, created.IntentID, dtos.PayIntentRequest{IdempotencyKey: "pay-self"})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeSelfPayment, domainerrors.CodeOf(err))
}

// Paying a past-due intent refuses the payment but commits the expired
// status, so the flip survives the error response.
func TestPayIntent_ExpiredFlipsStatus(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	payerKey := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "50.00")

	amount, _ := valueobjects.NewMoney("20.00", valueobjects.USD)
	pi := entities.NewPaymentIntent(merchant.ID, amount, time.Now().UTC().Add(-time.Minute), nil)
	require.NoError(t, env.Intents.Create(context.Background(), pi))

	_, err := newPayUseCase(env).Execute(context.Background(), payerKey, pi.ID, dtos.PayIntentRequest{IdempotencyKey: "pay-late"})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeIntentExpired, domainerrors.CodeOf(err))

	stored, err := env.Intents.FindByID(context.Background(), pi.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.IntentStatusExpired, stored.Status)
	assert.Equal(t, "50", env.AvailableBalance(t, payer))
}

func TestPayIntent_InsufficientFunds(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchantKey := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})
	payerKey := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "5.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), merchantKey, dtos.CreatePaymentIntentRequest{
		Amount: "20.00",
	})
	require.NoError(t, err)

	_, err = newPayUseCase(env).Execute(context.Background(), payerKey, created.IntentID, dtos.PayIntentRequest{IdempotencyKey: "pay-broke"})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeInsufficientFunds, domainerrors.CodeOf(err))
}

func TestPayIntent_NotFound(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	payerKey := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})

	_, err := newPayUseCase(env).Execute(context.Background(), payerKey, uuid.New(), dtos.PayIntentRequest{IdempotencyKey: "pay-none"})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeIntentNotFound, domainerrors.CodeOf(err))
}

func TestCancelIntent(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreatePaymentIntentRequest{
		Amount: "9.99",
	})
	require.NoError(t, err)

	cancel := NewCancelIntentUseCase(env.UoW, env.Intents)
	resp, err := cancel.Execute(context.Background(), key, created.IntentID)
	require.NoError(t, err)
	assert.Equal(t, string(entities.IntentStatusCancelled), resp.Status)

	// Cancelling again is a no-op.
	resp, err = cancel.Execute(context.Background(), key, created.IntentID)
	require.NoError(t, err)
	assert.Equal(t, string(entities.IntentStatusCancelled), resp.Status)
}

func TestCancelIntent_WrongOwner(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	other := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchantKey := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})
	otherKey := env.NewKey(t, other.ID, nil, entities.KeyLimits{})

	created, err := newCreateUseCase(env).Execute(context.Background(), merchantKey, dtos.CreatePaymentIntentRequest{
		Amount: "9.99",
	})
	require.NoError(t, err)

	_, err = NewCancelIntentUseCase(env.UoW, env.Intents).Execute(context.Background(), otherKey, created.IntentID)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeForbidden, domainerrors.CodeOf(err))
}

func TestCancelIntent_Paid(t *testing.T) {
	env := testutil.NewEnv()
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchantKey := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})
	payerKey := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "50.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), merchantKey, dtos.CreatePaymentIntentRequest{
		Amount: "20.00",
	})
	require.NoError(t, err)
	_, err = newPayUseCase(env).Execute(context.Background(), payerKey, created.IntentID, dtos.PayIntentRequest{IdempotencyKey: "pay-1"})
	require.NoError(t, err)

	_, err = NewCancelIntentUseCase(env.UoW, env.Intents).Execute(context.Background(), merchantKey, created.IntentID)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeIntentNotPayable, domainerrors.CodeOf(err))
}
