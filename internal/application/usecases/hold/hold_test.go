package hold

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
	"github.com/agentpay/walletd/internal/testutil"
)

func newCreateUseCase(env *testutil.Env) *CreateHoldUseCase {
	return NewCreateHoldUseCase(env.UoW, env.Wallets, env.Holds, env.Engine, env.Publisher, testutil.Logger())
}

func newCaptureUseCase(env *testutil.Env) *CaptureHoldUseCase {
	return NewCaptureHoldUseCase(env.UoW, env.Holds, env.Captures, env.Wallets, env.Engine, env.Resolver, env.Publisher, testutil.Logger())
}

func newReleaseUseCase(env *testutil.Env) *ReleaseHoldUseCase {
	return NewReleaseHoldUseCase(env.UoW, env.Holds, env.Wallets, env.Engine, env.Publisher, testutil.Logger())
}

func TestCreateHold_Success(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	uc := newCreateUseCase(env)
	resp, err := uc.Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "30.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "30", resp.Amount)
	assert.Equal(t, "30", resp.RemainingAmount)
	assert.Equal(t, string(entities.HoldStatusActive), resp.Status)

	assert.Equal(t, "70", env.AvailableBalance(t, wallet))
	assert.Equal(t, "30", env.HeldBalance(t, wallet))
}

func TestCreateHold_Replay(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	uc := newCreateUseCase(env)
	req := dtos.CreateHoldRequest{Amount: "30.00", IdempotencyKey: "hold-dup"}
	first, err := uc.Execute(context.Background(), key, req)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), key, req)
	require.NoError(t, err)
	assert.Equal(t, first.HoldID, second.HoldID)
	assert.Equal(t, "70", env.AvailableBalance(t, wallet))
}

func TestCreateHold_InsufficientFunds(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "10.00")

	uc := newCreateUseCase(env)
	_, err := uc.Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "10.01",
		IdempotencyKey: "hold-broke",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeInsufficientFunds, domainerrors.CodeOf(err))
}

func TestCreateHold_ExpiryBounds(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	uc := newCreateUseCase(env)
	for _, seconds := range []int{MinExpirySeconds - 1, MaxExpirySeconds + 1, 0, -5} {
		s := seconds
		_, err := uc.Execute(context.Background(), key, dtos.CreateHoldRequest{
			Amount:           "1.00",
			ExpiresInSeconds: &s,
			IdempotencyKey:   "hold-exp",
		})
		require.Error(t, err, "seconds %d", seconds)
		assert.Equal(t, domainerrors.CodeValidationError, domainerrors.CodeOf(err))
	}
}

func TestCaptureHold_Partial(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "40.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	capture := newCaptureUseCase(env)
	resp, err := capture.Execute(context.Background(), key, created.HoldID, dtos.CaptureHoldRequest{
		Amount:         "15.00",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "15", resp.Amount)
	assert.Equal(t, "25", resp.HoldRemaining)
	assert.Equal(t, string(entities.HoldStatusActive), resp.HoldStatus)

	assert.Equal(t, "60", env.AvailableBalance(t, payer))
	assert.Equal(t, "25", env.HeldBalance(t, payer))
	assert.Equal(t, "15", env.AvailableBalance(t, merchant))

	// Capturing the remainder closes the hold.
	resp, err = capture.Execute(context.Background(), key, created.HoldID, dtos.CaptureHoldRequest{
		Amount:         "25.00",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "0", resp.HoldRemaining)
	assert.Equal(t, string(entities.HoldStatusCaptured), resp.HoldStatus)
	assert.Equal(t, "0", env.HeldBalance(t, payer))
	assert.Equal(t, "40", env.AvailableBalance(t, merchant))
}

func TestCaptureHold_Replay(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "40.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	capture := newCaptureUseCase(env)
	req := dtos.CaptureHoldRequest{
		Amount:         "15.00",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-dup",
	}
	first, err := capture.Execute(context.Background(), key, created.HoldID, req)
	require.NoError(t, err)
	second, err := capture.Execute(context.Background(), key, created.HoldID, req)
	require.NoError(t, err)
	assert.Equal(t, first.CaptureID, second.CaptureID)
	assert.Equal(t, "15", env.AvailableBalance(t, merchant))
}

func TestCaptureHold_ExceedsRemaining(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "40.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	_, err = newCaptureUseCase(env).Execute(context.Background(), key, created.HoldID, dtos.CaptureHoldRequest{
		Amount:         "40.01",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-over",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeAmountExceedsHold, domainerrors.CodeOf(err))
}

func TestCaptureHold_Expired(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "100.00")
	hold := env.ExpiredHold(t, payer, key, "40.00")

	_, err := newCaptureUseCase(env).Execute(context.Background(), key, hold.ID, dtos.CaptureHoldRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-late",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeHoldExpired, domainerrors.CodeOf(err))

	// The hold stays active with its funds held; the sweeper owns the
	// release and the status flip.
	stored, err := env.Holds.FindByID(context.Background(), hold.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.HoldStatusActive, stored.Status)
	assert.Equal(t, "40", env.HeldBalance(t, payer))
}

func TestCaptureHold_PerTxLimit(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	perTx := decimal.RequireFromString("5")
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{PerTxMax: &perTx})
	env.Fund(t, payer, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "40.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	_, err = newCaptureUseCase(env).Execute(context.Background(), key, created.HoldID, dtos.CaptureHoldRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-big",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeLimitExceeded, domainerrors.CodeOf(err))
	assert.Equal(t, "0", env.AvailableBalance(t, merchant))
}

func TestCaptureHold_CounterpartyAllowlist(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	other := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{
		AllowedCounterparties: []entities.CounterpartyRef{{WalletID: &other.ID}},
	})
	env.Fund(t, payer, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "40.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	capture := newCaptureUseCase(env)
	_, err = capture.Execute(context.Background(), key, created.HoldID, dtos.CaptureHoldRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-unlisted",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeCounterpartyNotAllowed, domainerrors.CodeOf(err))

	// The listed counterparty goes through.
	_, err = capture.Execute(context.Background(), key, created.HoldID, dtos.CaptureHoldRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &other.ID},
		IdempotencyKey: "cap-listed",
	})
	require.NoError(t, err)
	assert.Equal(t, "10", env.AvailableBalance(t, other))
}

func TestCaptureHold_DefaultsToRemaining(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "40.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	resp, err := newCaptureUseCase(env).Execute(context.Background(), key, created.HoldID, dtos.CaptureHoldRequest{
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-all",
	})
	require.NoError(t, err)
	assert.Equal(t, "40", resp.Amount)
	assert.Equal(t, "0", resp.HoldRemaining)
	assert.Equal(t, string(entities.HoldStatusCaptured), resp.HoldStatus)
	assert.Equal(t, "40", env.AvailableBalance(t, merchant))
}

func TestCaptureHold_WrongOwner(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	otherKey := env.NewKey(t, merchant.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "40.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	_, err = newCaptureUseCase(env).Execute(context.Background(), otherKey, created.HoldID, dtos.CaptureHoldRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-foreign",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeForbidden, domainerrors.CodeOf(err))
}

func TestCaptureHold_NotFound(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})

	_, err := newCaptureUseCase(env).Execute(context.Background(), key, uuid.New(), dtos.CaptureHoldRequest{
		Amount:         "10.00",
		To:             dtos.RecipientRef{WalletID: &wallet.ID},
		IdempotencyKey: "cap-none",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeHoldNotFound, domainerrors.CodeOf(err))
}

func TestReleaseHold_Success(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "30.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	resp, err := newReleaseUseCase(env).Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{
		IdempotencyKey: "rel-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "30", resp.ReleasedAmount)
	assert.Equal(t, string(entities.HoldStatusReleased), resp.HoldStatus)

	assert.Equal(t, "100", env.AvailableBalance(t, wallet))
	assert.Equal(t, "0", env.HeldBalance(t, wallet))
}

func TestReleaseHold_PartialAfterCapture(t *testing.T) {
	env := testutil.NewEnv()
	payer := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	merchant := env.NewWallet(t, entities.WalletTypeBusiness, valueobjects.USD, nil)
	key := env.NewKey(t, payer.ID, nil, entities.KeyLimits{})
	env.Fund(t, payer, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "40.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	_, err = newCaptureUseCase(env).Execute(context.Background(), key, created.HoldID, dtos.CaptureHoldRequest{
		Amount:         "15.00",
		To:             dtos.RecipientRef{WalletID: &merchant.ID},
		IdempotencyKey: "cap-1",
	})
	require.NoError(t, err)

	resp, err := newReleaseUseCase(env).Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{
		IdempotencyKey: "rel-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "25", resp.ReleasedAmount)

	assert.Equal(t, "85", env.AvailableBalance(t, payer))
	assert.Equal(t, "0", env.HeldBalance(t, payer))
}

func TestReleaseHold_Partial(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "30.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	release := newReleaseUseCase(env)
	resp, err := release.Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{
		Amount:         "10.00",
		IdempotencyKey: "rel-part",
	})
	require.NoError(t, err)
	assert.Equal(t, "10", resp.ReleasedAmount)
	assert.Equal(t, "20", resp.HoldRemaining)
	assert.Equal(t, string(entities.HoldStatusActive), resp.HoldStatus)
	assert.Equal(t, "80", env.AvailableBalance(t, wallet))
	assert.Equal(t, "20", env.HeldBalance(t, wallet))

	// Releasing the rest without an amount closes the hold.
	resp, err = release.Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{
		IdempotencyKey: "rel-rest",
	})
	require.NoError(t, err)
	assert.Equal(t, "20", resp.ReleasedAmount)
	assert.Equal(t, "0", resp.HoldRemaining)
	assert.Equal(t, string(entities.HoldStatusReleased), resp.HoldStatus)
	assert.Equal(t, "100", env.AvailableBalance(t, wallet))
	assert.Equal(t, "0", env.HeldBalance(t, wallet))
}

func TestReleaseHold_ExceedsRemaining(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "30.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	_, err = newReleaseUseCase(env).Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{
		Amount:         "30.01",
		IdempotencyKey: "rel-over",
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeAmountExceedsHold, domainerrors.CodeOf(err))
	assert.Equal(t, "30", env.HeldBalance(t, wallet))
}

func TestReleaseHold_ConcurrentFullReleases(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "30.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	// Two full releases under distinct idempotency keys race; the hold row
	// serializes them and the loser fails on state instead of double-posting.
	release := newReleaseUseCase(env)
	errs := make(chan error, 2)
	for _, idem := range []string{"rel-a", "rel-b"} {
		go func(idem string) {
			_, err := release.Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{
				IdempotencyKey: idem,
			})
			errs <- err
		}(idem)
	}

	var succeeded, refused int
	for i := 0; i < 2; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, domainerrors.CodeHoldNotReleasable, domainerrors.CodeOf(err))
		refused++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, refused)
	assert.Equal(t, "100", env.AvailableBalance(t, wallet))
	assert.Equal(t, "0", env.HeldBalance(t, wallet))
}

func TestReleaseHold_AlreadyReleased(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	created, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "30.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	release := newReleaseUseCase(env)
	_, err = release.Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{IdempotencyKey: "rel-1"})
	require.NoError(t, err)

	// Same idempotency key replays; a fresh key fails on state.
	replayed, err := release.Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{IdempotencyKey: "rel-1"})
	require.NoError(t, err)
	assert.Equal(t, "30", replayed.ReleasedAmount)

	_, err = release.Execute(context.Background(), key, created.HoldID, dtos.ReleaseHoldRequest{IdempotencyKey: "rel-2"})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeHoldNotReleasable, domainerrors.CodeOf(err))
	assert.Equal(t, "100", env.AvailableBalance(t, wallet))
}

func TestSweeper_ReleasesExpiredHolds(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")
	hold := env.ExpiredHold(t, wallet, key, "40.00")

	sweeper := NewSweeper(env.UoW, env.Holds, env.Wallets, env.Engine, env.Publisher, testutil.Logger(), time.Second)
	require.NoError(t, sweeper.SweepOnce(context.Background()))

	stored, err := env.Holds.FindByID(context.Background(), hold.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.HoldStatusExpired, stored.Status)
	assert.True(t, stored.Remaining.IsZero())

	assert.Equal(t, "100", env.AvailableBalance(t, wallet))
	assert.Equal(t, "0", env.HeldBalance(t, wallet))

	var sawExpiry bool
	for _, ev := range env.Publisher.Events {
		if ev.EventType() == events.EventTypeHoldExpired {
			sawExpiry = true
		}
	}
	assert.True(t, sawExpiry)
}

func TestSweeper_SkipsActiveHolds(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")

	_, err := newCreateUseCase(env).Execute(context.Background(), key, dtos.CreateHoldRequest{
		Amount:         "30.00",
		IdempotencyKey: "hold-1",
	})
	require.NoError(t, err)

	sweeper := NewSweeper(env.UoW, env.Holds, env.Wallets, env.Engine, env.Publisher, testutil.Logger(), time.Second)
	require.NoError(t, sweeper.SweepOnce(context.Background()))

	assert.Equal(t, "30", env.HeldBalance(t, wallet))
}

func TestSweeper_IdempotentAcrossRuns(t *testing.T) {
	env := testutil.NewEnv()
	wallet := env.NewWallet(t, entities.WalletTypeCustomer, valueobjects.USD, nil)
	key := env.NewKey(t, wallet.ID, nil, entities.KeyLimits{})
	env.Fund(t, wallet, "100.00")
	env.ExpiredHold(t, wallet, key, "40.00")

	sweeper := NewSweeper(env.UoW, env.Holds, env.Wallets, env.Engine, env.Publisher, testutil.Logger(), time.Second)
	require.NoError(t, sweeper.SweepOnce(context.Background()))
	require.NoError(t, sweeper.SweepOnce(context.Background()))

	assert.Equal(t, "100", env.AvailableBalance(t, wallet))
}
