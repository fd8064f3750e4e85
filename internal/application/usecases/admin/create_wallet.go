// Package admin implements the provisioning surface: wallets, API keys,
// freezes and external deposits.
package admin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// CreateWalletUseCase provisions a wallet with both ledger accounts and an
// optional external identity binding.
type CreateWalletUseCase struct {
	uow        ports.UnitOfWork
	wallets    ports.WalletRepository
	identities ports.ExternalIdentityRepository
	engine     *ledger.Engine
	publisher  ports.EventPublisher
	logger     *slog.Logger
}

func NewCreateWalletUseCase(
	uow ports.UnitOfWork,
	wallets ports.WalletRepository,
	identities ports.ExternalIdentityRepository,
	engine *ledger.Engine,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *CreateWalletUseCase {
	return &CreateWalletUseCase{
		uow:        uow,
		wallets:    wallets,
		identities: identities,
		engine:     engine,
		publisher:  publisher,
		logger:     logger,
	}
}

func (uc *CreateWalletUseCase) Execute(ctx context.Context, req dtos.CreateWalletRequest) (*dtos.WalletResponse, error) {
	currency := valueobjects.DefaultCurrency
	if req.Currency != "" {
		c, err := valueobjects.NewCurrency(req.Currency)
		if err != nil {
			return nil, domainerrors.Validation(err.Error())
		}
		currency = c
	}

	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		wallet := entities.NewWallet(entities.WalletType(req.Type), currency, req.Handle)
		if req.Metadata != nil {
			wallet.Metadata = req.Metadata
		}
		if err := uc.wallets.Create(ctx, wallet); err != nil {
			if errors.Is(err, domainerrors.ErrDuplicateKey) {
				return nil, domainerrors.New(domainerrors.CodeHandleTaken, "handle is already taken")
			}
			return nil, err
		}
		if _, err := uc.engine.EnsureAccounts(ctx, wallet); err != nil {
			return nil, err
		}
		if req.ExternalIdentity != nil {
			identity := entities.NewExternalIdentity(req.ExternalIdentity.Provider, req.ExternalIdentity.ExternalUserID, wallet.ID)
			if err := uc.identities.Create(ctx, identity); err != nil {
				if errors.Is(err, domainerrors.ErrDuplicateKey) {
					return nil, domainerrors.New(domainerrors.CodeIdentityTaken, "external identity is already bound to a wallet")
				}
				return nil, err
			}
		}
		resp := dtos.WalletToResponse(wallet)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*dtos.WalletResponse)
	event := events.NewWalletCreated(resp.ID, resp.Type, resp.Currency, derefHandle(resp.Handle))
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish wallet created event", slog.String("error", err.Error()))
	}
	return resp, nil
}

func derefHandle(h *string) string {
	if h == nil {
		return ""
	}
	return *h
}
