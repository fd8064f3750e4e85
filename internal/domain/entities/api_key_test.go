package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

func TestAPIKey_HasScope(t *testing.T) {
	key := NewAPIKey("hash", uuid.New(), []string{"wallet:read", "transfer:create"}, KeyLimits{})

	assert.True(t, key.HasScope("wallet:read"))
	assert.True(t, key.HasScope("transfer:create"))
	assert.False(t, key.HasScope("hold:create"))
	assert.False(t, key.HasScope("wallet"))
}

func TestAPIKey_HasScope_Wildcard(t *testing.T) {
	key := NewAPIKey("hash", uuid.New(), []string{"admin:*"}, KeyLimits{})

	assert.True(t, key.HasScope("admin:wallets"))
	assert.True(t, key.HasScope("admin:api_keys"))
	assert.True(t, key.HasScope("admin:wallets:freeze"))
	// Prefix match stops at the colon.
	assert.False(t, key.HasScope("administration"))
	assert.False(t, key.HasScope("admin"))
	assert.False(t, key.HasScope("wallet:read"))
}

func TestAPIKey_CheckPerTx(t *testing.T) {
	max := decimal.RequireFromString("100.00")
	key := NewAPIKey("hash", uuid.New(), nil, KeyLimits{PerTxMax: &max})

	ok, _ := valueobjects.NewMoney("100.00", valueobjects.USD)
	assert.NoError(t, key.CheckPerTx(ok))

	over, _ := valueobjects.NewMoney("100.01", valueobjects.USD)
	err := key.CheckPerTx(over)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeLimitExceeded, domainerrors.CodeOf(err))

	unlimited := NewAPIKey("hash2", uuid.New(), nil, KeyLimits{})
	assert.NoError(t, unlimited.CheckPerTx(over))
}

func TestAPIKey_CheckDaily(t *testing.T) {
	max := decimal.RequireFromString("500.00")
	key := NewAPIKey("hash", uuid.New(), nil, KeyLimits{DailyMax: &max})

	amount, _ := valueobjects.NewMoney("100.00", valueobjects.USD)
	assert.NoError(t, key.CheckDaily(decimal.RequireFromString("400.00"), amount))

	err := key.CheckDaily(decimal.RequireFromString("400.01"), amount)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeLimitExceeded, domainerrors.CodeOf(err))
}

func TestAPIKey_CheckCounterparty(t *testing.T) {
	allowedID := uuid.New()
	allowedHandle := "@shop"
	key := NewAPIKey("hash", uuid.New(), nil, KeyLimits{
		AllowedCounterparties: []CounterpartyRef{
			{WalletID: &allowedID},
			{Handle: &allowedHandle},
		},
	})

	assert.NoError(t, key.CheckCounterparty(allowedID, nil))

	h := "@shop"
	assert.NoError(t, key.CheckCounterparty(uuid.New(), &h))

	other := "@someone"
	err := key.CheckCounterparty(uuid.New(), &other)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeCounterpartyNotAllowed, domainerrors.CodeOf(err))

	// Empty allowlist permits everyone.
	open := NewAPIKey("hash2", uuid.New(), nil, KeyLimits{})
	assert.NoError(t, open.CheckCounterparty(uuid.New(), nil))
}

func TestAPIKey_Revoke(t *testing.T) {
	key := NewAPIKey("hash", uuid.New(), nil, KeyLimits{})
	assert.True(t, key.IsActive())
	key.Revoke()
	assert.False(t, key.IsActive())
	assert.Equal(t, APIKeyStatusRevoked, key.Status)
}
