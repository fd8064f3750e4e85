// Package intent implements the payment-intent lifecycle: a merchant asks
// to be paid, a payer settles or the intent lapses.
package intent

import (
	"context"
	"time"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// Expiry bounds for payment intents.
const (
	MinExpirySeconds     = 60
	MaxExpirySeconds     = 24 * 3600
	DefaultExpirySeconds = 900
)

// CreateIntentUseCase records a merchant's request to be paid. No funds
// move until the intent is paid.
type CreateIntentUseCase struct {
	uow     ports.UnitOfWork
	wallets ports.WalletRepository
	intents ports.PaymentIntentRepository
}

func NewCreateIntentUseCase(uow ports.UnitOfWork, wallets ports.WalletRepository, intents ports.PaymentIntentRepository) *CreateIntentUseCase {
	return &CreateIntentUseCase{uow: uow, wallets: wallets, intents: intents}
}

func (uc *CreateIntentUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.CreatePaymentIntentRequest) (*dtos.PaymentIntentResponse, error) {
	expiresIn := DefaultExpirySeconds
	if req.ExpiresInSeconds != nil {
		expiresIn = *req.ExpiresInSeconds
	}
	if expiresIn < MinExpirySeconds || expiresIn > MaxExpirySeconds {
		return nil, domainerrors.Validationf("expires_in_seconds must be between %d and %d", MinExpirySeconds, MaxExpirySeconds)
	}

	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		merchant, err := uc.wallets.FindByID(ctx, apiKey.WalletID)
		if err != nil {
			return nil, err
		}
		if err := merchant.EnsureActive(); err != nil {
			return nil, err
		}
		currency, err := ledger.ResolveCurrency(req.Currency, merchant)
		if err != nil {
			return nil, err
		}
		amount, err := ledger.ParseAmount(req.Amount, currency)
		if err != nil {
			return nil, err
		}

		expiresAt := time.Now().UTC().Add(time.Duration(expiresIn) * time.Second)
		pi := entities.NewPaymentIntent(merchant.ID, amount, expiresAt, req.Metadata)
		if err := uc.intents.Create(ctx, pi); err != nil {
			return nil, err
		}
		resp := dtos.IntentToResponse(pi)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*dtos.PaymentIntentResponse), nil
}
