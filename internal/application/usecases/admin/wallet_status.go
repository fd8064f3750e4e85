package admin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
)

// SetWalletStatusUseCase freezes and unfreezes wallets.
type SetWalletStatusUseCase struct {
	uow       ports.UnitOfWork
	wallets   ports.WalletRepository
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewSetWalletStatusUseCase(uow ports.UnitOfWork, wallets ports.WalletRepository, publisher ports.EventPublisher, logger *slog.Logger) *SetWalletStatusUseCase {
	return &SetWalletStatusUseCase{uow: uow, wallets: wallets, publisher: publisher, logger: logger}
}

func (uc *SetWalletStatusUseCase) Freeze(ctx context.Context, walletID uuid.UUID) (*dtos.WalletResponse, error) {
	resp, err := uc.mutate(ctx, walletID, true)
	if err != nil {
		return nil, err
	}
	if err := uc.publisher.Publish(ctx, events.NewWalletFrozen(resp.ID)); err != nil {
		uc.logger.Warn("failed to publish wallet frozen event", slog.String("error", err.Error()))
	}
	return resp, nil
}

func (uc *SetWalletStatusUseCase) Unfreeze(ctx context.Context, walletID uuid.UUID) (*dtos.WalletResponse, error) {
	return uc.mutate(ctx, walletID, false)
}

func (uc *SetWalletStatusUseCase) mutate(ctx context.Context, walletID uuid.UUID, freeze bool) (*dtos.WalletResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		wallet, err := uc.wallets.FindByID(ctx, walletID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.WalletNotFound()
			}
			return nil, err
		}
		if freeze {
			err = wallet.Freeze()
		} else {
			err = wallet.Unfreeze()
		}
		if err != nil {
			return nil, err
		}
		if err := uc.wallets.Save(ctx, wallet); err != nil {
			return nil, err
		}
		resp := dtos.WalletToResponse(wallet)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*dtos.WalletResponse), nil
}
