package intent

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// CancelIntentUseCase lets the merchant withdraw an unpaid intent.
type CancelIntentUseCase struct {
	uow     ports.UnitOfWork
	intents ports.PaymentIntentRepository
}

func NewCancelIntentUseCase(uow ports.UnitOfWork, intents ports.PaymentIntentRepository) *CancelIntentUseCase {
	return &CancelIntentUseCase{uow: uow, intents: intents}
}

func (uc *CancelIntentUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, intentID uuid.UUID) (*dtos.PaymentIntentResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		pi, err := uc.intents.FindByID(ctx, intentID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeIntentNotFound, "payment intent not found")
			}
			return nil, err
		}
		if pi.MerchantWalletID != apiKey.WalletID {
			return nil, domainerrors.Forbidden("payment intent belongs to another wallet")
		}
		if pi.Status == entities.IntentStatusCancelled {
			// Cancel is naturally idempotent.
			resp := dtos.IntentToResponse(pi)
			return &resp, nil
		}
		if pi.Status != entities.IntentStatusRequiresPayment {
			return nil, domainerrors.Newf(domainerrors.CodeIntentNotPayable, "payment intent is %s", pi.Status)
		}
		pi.Status = entities.IntentStatusCancelled
		if err := uc.intents.Save(ctx, pi); err != nil {
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
