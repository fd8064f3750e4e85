package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

func TestWallet_FreezeUnfreeze(t *testing.T) {
	w := NewWallet(WalletTypeCustomer, valueobjects.USD, nil)
	assert.True(t, w.IsActive())
	assert.NoError(t, w.EnsureActive())

	require.NoError(t, w.Freeze())
	assert.Equal(t, WalletStatusFrozen, w.Status)

	err := w.EnsureActive()
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeWalletFrozen, domainerrors.CodeOf(err))

	require.NoError(t, w.Unfreeze())
	assert.True(t, w.IsActive())
}

func TestWallet_FreezeClosed(t *testing.T) {
	w := NewWallet(WalletTypeCustomer, valueobjects.USD, nil)
	w.Status = WalletStatusClosed

	err := w.Freeze()
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeWalletClosed, domainerrors.CodeOf(err))

	err = w.Unfreeze()
	require.Error(t, err)

	err = w.EnsureActive()
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeWalletClosed, domainerrors.CodeOf(err))
}

func TestWallet_UnfreezeActive(t *testing.T) {
	w := NewWallet(WalletTypeCustomer, valueobjects.USD, nil)
	assert.Error(t, w.Unfreeze())
}

func TestWallet_Handle(t *testing.T) {
	h := "@alice"
	w := NewWallet(WalletTypeCustomer, valueobjects.USD, &h)
	assert.Equal(t, "@alice", w.HandleOrEmpty())

	anon := NewWallet(WalletTypeCustomer, valueobjects.USD, nil)
	assert.Equal(t, "", anon.HandleOrEmpty())
}
