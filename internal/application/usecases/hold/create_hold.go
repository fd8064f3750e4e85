// Package hold implements the reserve / capture / release lifecycle.
package hold

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
)

// Expiry bounds for holds.
const (
	MinExpirySeconds     = 60
	MaxExpirySeconds     = 7 * 24 * 3600
	DefaultExpirySeconds = 3600
)

// CreateHoldUseCase reserves funds: debit available, credit held, on the
// caller's own wallet.
type CreateHoldUseCase struct {
	uow       ports.UnitOfWork
	wallets   ports.WalletRepository
	holds     ports.HoldRepository
	engine    *ledger.Engine
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewCreateHoldUseCase(
	uow ports.UnitOfWork,
	wallets ports.WalletRepository,
	holds ports.HoldRepository,
	engine *ledger.Engine,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *CreateHoldUseCase {
	return &CreateHoldUseCase{
		uow:       uow,
		wallets:   wallets,
		holds:     holds,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute creates the hold, or replays the prior one for a repeated
// idempotency key.
func (uc *CreateHoldUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.CreateHoldRequest) (*dtos.HoldResponse, error) {
	resp, err := uc.run(ctx, apiKey, req)
	if errors.Is(err, domainerrors.ErrDuplicateKey) {
		resp, err = uc.run(ctx, apiKey, req)
	}
	return resp, err
}

func (uc *CreateHoldUseCase) run(ctx context.Context, apiKey *entities.APIKey, req dtos.CreateHoldRequest) (*dtos.HoldResponse, error) {
	expiresIn := DefaultExpirySeconds
	if req.ExpiresInSeconds != nil {
		expiresIn = *req.ExpiresInSeconds
	}
	if expiresIn < MinExpirySeconds || expiresIn > MaxExpirySeconds {
		return nil, domainerrors.Validationf("expires_in_seconds must be between %d and %d", MinExpirySeconds, MaxExpirySeconds)
	}

	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		prior, err := uc.holds.FindByIdempotency(ctx, req.IdempotencyKey, apiKey.ID)
		if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
		if prior != nil {
			resp := dtos.HoldToResponse(prior)
			return &resp, nil
		}
		// The key may still be spent on a non-hold entry.
		if _, err := uc.engine.CheckIdempotency(ctx, req.IdempotencyKey, apiKey.ID, entities.EntryTypeHold); err != nil {
			return nil, err
		}

		wallet, err := uc.wallets.FindByID(ctx, apiKey.WalletID)
		if err != nil {
			return nil, err
		}
		if err := wallet.EnsureActive(); err != nil {
			return nil, err
		}
		currency, err := ledger.ResolveCurrency(req.Currency, wallet)
		if err != nil {
			return nil, err
		}
		amount, err := ledger.ParseAmount(req.Amount, currency)
		if err != nil {
			return nil, err
		}

		accounts, err := uc.engine.EnsureAccounts(ctx, wallet)
		if err != nil {
			return nil, err
		}
		available := accounts[entities.AccountKindAvailable]
		held := accounts[entities.AccountKindHeld]

		if err := uc.engine.Lock(ctx, available, held); err != nil {
			return nil, err
		}
		if err := uc.engine.EnforceLimits(ctx, apiKey, amount, available.ID, nil); err != nil {
			return nil, err
		}
		balance, err := uc.engine.Balance(ctx, available)
		if err != nil {
			return nil, err
		}
		if err := ledger.RequireSufficient(balance, amount); err != nil {
			return nil, err
		}

		entry := entities.NewJournalEntry(entities.EntryTypeHold, req.IdempotencyKey, apiKey.ID, nil, req.Metadata)
		entry.AddLine(available.ID, entities.DirectionDebit, amount)
		entry.AddLine(held.ID, entities.DirectionCredit, amount)
		if err := uc.engine.Post(ctx, entry); err != nil {
			return nil, err
		}

		expiresAt := time.Now().UTC().Add(time.Duration(expiresIn) * time.Second)
		hold := entities.NewHold(wallet.ID, amount, expiresAt, apiKey.ID, req.IdempotencyKey)
		hold.JournalEntryID = &entry.ID
		if err := uc.holds.Create(ctx, hold); err != nil {
			return nil, err
		}

		resp := dtos.HoldToResponse(hold)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*dtos.HoldResponse)
	event := events.NewEntryPosted(resp.HoldID, string(entities.EntryTypeHold), resp.Amount, resp.Currency)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish hold event", slog.String("error", err.Error()))
	}
	return resp, nil
}
