package admin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
	"github.com/agentpay/walletd/internal/pkg/apikey"
)

// KeyDefaults are the limits applied when a creation request sets none.
type KeyDefaults struct {
	PerTxMax decimal.Decimal
	DailyMax decimal.Decimal
}

// CreateAPIKeyUseCase issues a key for a wallet. The raw key is returned
// once and never stored.
type CreateAPIKeyUseCase struct {
	uow      ports.UnitOfWork
	wallets  ports.WalletRepository
	keys     ports.APIKeyRepository
	defaults KeyDefaults
	logger   *slog.Logger
}

func NewCreateAPIKeyUseCase(
	uow ports.UnitOfWork,
	wallets ports.WalletRepository,
	keys ports.APIKeyRepository,
	defaults KeyDefaults,
	logger *slog.Logger,
) *CreateAPIKeyUseCase {
	return &CreateAPIKeyUseCase{
		uow:      uow,
		wallets:  wallets,
		keys:     keys,
		defaults: defaults,
		logger:   logger,
	}
}

func (uc *CreateAPIKeyUseCase) Execute(ctx context.Context, req dtos.CreateAPIKeyRequest) (*dtos.APIKeyResponse, error) {
	raw, err := apikey.Generate(entities.APIKeyPrefix)
	if err != nil {
		return nil, err
	}

	limits := entities.KeyLimits{}
	if req.Limits != nil {
		limits = *req.Limits
	}
	if limits.PerTxMax == nil {
		v := uc.defaults.PerTxMax
		limits.PerTxMax = &v
	}
	if limits.DailyMax == nil {
		v := uc.defaults.DailyMax
		limits.DailyMax = &v
	}

	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		if _, err := uc.wallets.FindByID(ctx, req.WalletID); err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.WalletNotFound()
			}
			return nil, err
		}
		key := entities.NewAPIKey(apikey.Hash(raw), req.WalletID, req.Scopes, limits)
		if err := uc.keys.Create(ctx, key); err != nil {
			return nil, err
		}
		resp := dtos.APIKeyToResponse(key, raw)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*dtos.APIKeyResponse), nil
}

// RevokeAPIKeyUseCase deactivates a key.
type RevokeAPIKeyUseCase struct {
	uow       ports.UnitOfWork
	keys      ports.APIKeyRepository
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewRevokeAPIKeyUseCase(uow ports.UnitOfWork, keys ports.APIKeyRepository, publisher ports.EventPublisher, logger *slog.Logger) *RevokeAPIKeyUseCase {
	return &RevokeAPIKeyUseCase{uow: uow, keys: keys, publisher: publisher, logger: logger}
}

func (uc *RevokeAPIKeyUseCase) Execute(ctx context.Context, keyID uuid.UUID) (*dtos.APIKeyResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		key, err := uc.keys.FindByID(ctx, keyID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeNotFound, "api key not found")
			}
			return nil, err
		}
		key.Revoke()
		if err := uc.keys.Save(ctx, key); err != nil {
			return nil, err
		}
		resp := dtos.APIKeyToResponse(key, "")
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*dtos.APIKeyResponse)
	if err := uc.publisher.Publish(ctx, events.NewKeyRevoked(resp.APIKeyID)); err != nil {
		uc.logger.Warn("failed to publish key revoked event", slog.String("error", err.Error()))
	}
	return resp, nil
}
