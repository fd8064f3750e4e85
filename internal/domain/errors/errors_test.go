package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInsufficientFunds, CodeOf(InsufficientFunds("5", "10")))
	assert.Equal(t, CodeNotFound, CodeOf(ErrNotFound))
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("lookup: %w", ErrNotFound)))
	assert.Equal(t, CodeUnauthorized, CodeOf(ErrUnauthorized))
	assert.Equal(t, CodeIdempotencyConflict, CodeOf(ErrIdempotencyConflict))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain error")))
}

func TestDomainError_Unwrap(t *testing.T) {
	err := IdempotencyConflict()
	assert.Equal(t, CodeIdempotencyConflict, err.Code)

	de, ok := AsDomain(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, CodeIdempotencyConflict, de.Code)
}

func TestWithDetails(t *testing.T) {
	base := New(CodeLimitExceeded, "over limit")
	detailed := base.WithDetails(map[string]any{"max_amount": "100"})

	assert.Nil(t, base.Details)
	assert.Equal(t, "100", detailed.Details["max_amount"])
	assert.Equal(t, base.Code, detailed.Code)
}

func TestWalletState(t *testing.T) {
	assert.Equal(t, CodeWalletFrozen, WalletState("frozen").Code)
	assert.Equal(t, CodeWalletClosed, WalletState("closed").Code)
	assert.Equal(t, CodeWalletNotActive, WalletState("pending").Code)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(WalletNotFound()))
	assert.True(t, IsNotFound(New(CodeRecipientNotFound, "recipient not found")))
	assert.True(t, IsNotFound(New(CodeHoldNotFound, "hold not found")))
	assert.False(t, IsNotFound(New(CodeInsufficientFunds, "broke")))
	assert.False(t, IsNotFound(fmt.Errorf("boom")))
}
