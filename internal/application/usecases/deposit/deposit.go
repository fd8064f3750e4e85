// Package deposit implements crediting external funds into wallets. Every
// deposit debits the reserved system wallet, so the conservation invariant
// stays checkable: all money in user wallets traces back to deposit entries.
package deposit

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
)

// DepositUseCase posts a deposit_external entry: debit the system wallet's
// available account, credit the target's. The system wallet is the only
// account allowed to go negative.
type DepositUseCase struct {
	uow       ports.UnitOfWork
	wallets   ports.WalletRepository
	engine    *ledger.Engine
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewDepositUseCase(
	uow ports.UnitOfWork,
	wallets ports.WalletRepository,
	engine *ledger.Engine,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *DepositUseCase {
	return &DepositUseCase{
		uow:       uow,
		wallets:   wallets,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute deposits into the wallet named by id or handle; a repeated
// idempotency key replays the original deposit.
func (uc *DepositUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.DepositRequest) (*dtos.DepositResponse, error) {
	resp, err := uc.run(ctx, apiKey, req)
	if errors.Is(err, domainerrors.ErrDuplicateKey) {
		resp, err = uc.run(ctx, apiKey, req)
	}
	return resp, err
}

func (uc *DepositUseCase) run(ctx context.Context, apiKey *entities.APIKey, req dtos.DepositRequest) (*dtos.DepositResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		prior, err := uc.engine.CheckIdempotency(ctx, req.IdempotencyKey, apiKey.ID, entities.EntryTypeDepositExternal)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return uc.replay(ctx, prior)
		}

		target, err := uc.findTarget(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := target.EnsureActive(); err != nil {
			return nil, err
		}
		currency, err := ledger.ResolveCurrency(req.Currency, target)
		if err != nil {
			return nil, err
		}
		amount, err := ledger.ParseAmount(req.Amount, currency)
		if err != nil {
			return nil, err
		}

		system, err := uc.wallets.FindByHandle(ctx, entities.SystemWalletHandle)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeInternal, "system wallet is not provisioned")
			}
			return nil, err
		}
		if system.Currency != currency {
			return nil, domainerrors.CurrencyMismatch(system.Currency.String(), currency.String())
		}

		systemAccounts, err := uc.engine.EnsureAccounts(ctx, system)
		if err != nil {
			return nil, err
		}
		targetAccounts, err := uc.engine.EnsureAccounts(ctx, target)
		if err != nil {
			return nil, err
		}
		systemAvailable := systemAccounts[entities.AccountKindAvailable]
		targetAvailable := targetAccounts[entities.AccountKindAvailable]

		if err := uc.engine.Lock(ctx, systemAvailable, targetAvailable); err != nil {
			return nil, err
		}

		// No sufficiency check on the system side: the system wallet's
		// negative balance is the count of money in circulation.
		entry := entities.NewJournalEntry(entities.EntryTypeDepositExternal, req.IdempotencyKey, apiKey.ID, nil, nil)
		entry.AddLine(systemAvailable.ID, entities.DirectionDebit, amount)
		entry.AddLine(targetAvailable.ID, entities.DirectionCredit, amount)
		if err := uc.engine.Post(ctx, entry); err != nil {
			return nil, err
		}

		resp := dtos.DepositResponse{
			EntryID:   entry.ID,
			WalletID:  target.ID,
			Amount:    amount.String(),
			Currency:  currency.String(),
			CreatedAt: entry.CreatedAt,
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*dtos.DepositResponse)
	event := events.NewEntryPosted(resp.EntryID, string(entities.EntryTypeDepositExternal), resp.Amount, resp.Currency)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish deposit event", slog.String("error", err.Error()))
	}
	return resp, nil
}

func (uc *DepositUseCase) findTarget(ctx context.Context, req dtos.DepositRequest) (*entities.Wallet, error) {
	switch {
	case req.WalletID != nil:
		wallet, err := uc.wallets.FindByID(ctx, *req.WalletID)
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.WalletNotFound()
		}
		return wallet, err
	case req.Handle != nil:
		wallet, err := uc.wallets.FindByHandle(ctx, ledger.NormalizeHandle(*req.Handle))
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.WalletNotFound()
		}
		return wallet, err
	default:
		return nil, domainerrors.Validation("deposit requires wallet_id or handle")
	}
}

func (uc *DepositUseCase) replay(ctx context.Context, entry *entities.JournalEntry) (*dtos.DepositResponse, error) {
	credit, ok := ledger.LineByDirection(entry, entities.DirectionCredit)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeInternal, "stored deposit has no credit line")
	}
	target, err := uc.engine.WalletOfAccount(ctx, credit.LedgerAccountID)
	if err != nil {
		return nil, err
	}
	return &dtos.DepositResponse{
		EntryID:   entry.ID,
		WalletID:  target.ID,
		Amount:    credit.Amount.String(),
		Currency:  credit.Amount.Currency().String(),
		CreatedAt: entry.CreatedAt,
	}, nil
}
