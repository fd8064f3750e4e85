// Package wallet implements the caller-facing read side: wallet info,
// balances, transaction history and recipient resolution.
package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
)

// GetWalletUseCase returns the caller's wallet.
type GetWalletUseCase struct {
	wallets ports.WalletRepository
}

func NewGetWalletUseCase(wallets ports.WalletRepository) *GetWalletUseCase {
	return &GetWalletUseCase{wallets: wallets}
}

func (uc *GetWalletUseCase) Execute(ctx context.Context, apiKey *entities.APIKey) (*dtos.WalletResponse, error) {
	wallet, err := uc.wallets.FindByID(ctx, apiKey.WalletID)
	if err != nil {
		return nil, err
	}
	resp := dtos.WalletToResponse(wallet)
	return &resp, nil
}

// GetBalanceUseCase reads both sides of the caller's balance. Plain reads,
// no locks: a point-in-time answer is all a balance query promises.
type GetBalanceUseCase struct {
	wallets ports.WalletRepository
	engine  *ledger.Engine
	uow     ports.UnitOfWork
}

func NewGetBalanceUseCase(uow ports.UnitOfWork, wallets ports.WalletRepository, engine *ledger.Engine) *GetBalanceUseCase {
	return &GetBalanceUseCase{uow: uow, wallets: wallets, engine: engine}
}

func (uc *GetBalanceUseCase) Execute(ctx context.Context, apiKey *entities.APIKey) (*dtos.BalanceResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		wallet, err := uc.wallets.FindByID(ctx, apiKey.WalletID)
		if err != nil {
			return nil, err
		}
		accounts, err := uc.engine.EnsureAccounts(ctx, wallet)
		if err != nil {
			return nil, err
		}
		available := decimal.Zero
		held := decimal.Zero
		if m, err := uc.engine.Balance(ctx, accounts[entities.AccountKindAvailable]); err == nil {
			available = m.Amount()
		} else {
			return nil, err
		}
		if m, err := uc.engine.Balance(ctx, accounts[entities.AccountKindHeld]); err == nil {
			held = m.Amount()
		} else {
			return nil, err
		}
		return &dtos.BalanceResponse{
			WalletID:  wallet.ID,
			Currency:  wallet.Currency.String(),
			Available: available.String(),
			Held:      held.String(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*dtos.BalanceResponse), nil
}

// ResolveUseCase serves GET /v1/resolve.
type ResolveUseCase struct {
	resolver *ledger.Resolver
}

func NewResolveUseCase(resolver *ledger.Resolver) *ResolveUseCase {
	return &ResolveUseCase{resolver: resolver}
}

func (uc *ResolveUseCase) Execute(ctx context.Context, query dtos.ResolveQuery) (*dtos.ResolveResponse, error) {
	wallet, err := uc.resolver.ResolveQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	resp := dtos.ResolveToResponse(wallet)
	return &resp, nil
}
