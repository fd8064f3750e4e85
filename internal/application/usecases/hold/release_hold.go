package hold

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
)

// ReleaseHoldUseCase returns held funds to available: all of the remaining
// amount by default, or a partial amount. The hold closes when Remaining
// reaches zero. Expired-but-active holds are releasable.
type ReleaseHoldUseCase struct {
	uow       ports.UnitOfWork
	holds     ports.HoldRepository
	wallets   ports.WalletRepository
	engine    *ledger.Engine
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewReleaseHoldUseCase(
	uow ports.UnitOfWork,
	holds ports.HoldRepository,
	wallets ports.WalletRepository,
	engine *ledger.Engine,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *ReleaseHoldUseCase {
	return &ReleaseHoldUseCase{
		uow:       uow,
		holds:     holds,
		wallets:   wallets,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute releases the hold for its owner; a repeated idempotency key
// replays the original release.
func (uc *ReleaseHoldUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, holdID uuid.UUID, req dtos.ReleaseHoldRequest) (*dtos.ReleaseResponse, error) {
	resp, err := uc.run(ctx, apiKey, holdID, req)
	if errors.Is(err, domainerrors.ErrDuplicateKey) {
		resp, err = uc.run(ctx, apiKey, holdID, req)
	}
	return resp, err
}

func (uc *ReleaseHoldUseCase) run(ctx context.Context, apiKey *entities.APIKey, holdID uuid.UUID, req dtos.ReleaseHoldRequest) (*dtos.ReleaseResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		// Row-lock the hold so concurrent releases, captures and sweeps
		// serialize before Remaining is checked.
		hold, err := uc.holds.FindByIDForUpdate(ctx, holdID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeHoldNotFound, "hold not found")
			}
			return nil, err
		}
		if hold.WalletID != apiKey.WalletID {
			return nil, domainerrors.Forbidden("hold belongs to another wallet")
		}

		prior, err := uc.engine.CheckIdempotency(ctx, req.IdempotencyKey, apiKey.ID, entities.EntryTypeRelease)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			if prior.ReferenceID == nil || *prior.ReferenceID != hold.ID {
				return nil, domainerrors.IdempotencyConflict()
			}
			amount := ledger.EntryAmount(prior)
			resp := dtos.ReleaseResponse{
				HoldID:         hold.ID,
				ReleasedAmount: amount.String(),
				Currency:       hold.Amount.Currency().String(),
				HoldRemaining:  hold.Remaining.String(),
				HoldStatus:     string(hold.Status),
				CreatedAt:      prior.CreatedAt,
			}
			return &resp, nil
		}

		if !hold.CanRelease() {
			return nil, domainerrors.Newf(domainerrors.CodeHoldNotReleasable, "hold is %s", hold.Status)
		}

		// Omitted amount releases everything that remains.
		releaseAmount := hold.Remaining
		if req.Amount != "" {
			releaseAmount, err = ledger.ParseAmount(req.Amount, hold.Amount.Currency())
			if err != nil {
				return nil, err
			}
		}
		if releaseAmount.GreaterThan(hold.Remaining) {
			return nil, domainerrors.New(domainerrors.CodeAmountExceedsHold, "release amount exceeds remaining hold").
				WithDetails(map[string]any{
					"remaining": hold.Remaining.String(),
					"requested": releaseAmount.String(),
				})
		}
		wallet, err := uc.wallets.FindByID(ctx, hold.WalletID)
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

		entry := entities.NewJournalEntry(entities.EntryTypeRelease, req.IdempotencyKey, apiKey.ID, &hold.ID, nil)
		entry.AddLine(held.ID, entities.DirectionDebit, releaseAmount)
		entry.AddLine(available.ID, entities.DirectionCredit, releaseAmount)
		if err := uc.engine.Post(ctx, entry); err != nil {
			return nil, err
		}

		remaining, err := hold.Remaining.Sub(releaseAmount)
		if err != nil {
			return nil, err
		}
		hold.Remaining = remaining
		if remaining.IsZero() {
			if hold.IsExpired(time.Now().UTC()) {
				hold.Status = entities.HoldStatusExpired
			} else {
				hold.Status = entities.HoldStatusReleased
			}
		}
		if err := uc.holds.Save(ctx, hold); err != nil {
			return nil, err
		}

		resp := dtos.ReleaseResponse{
			HoldID:         hold.ID,
			ReleasedAmount: releaseAmount.String(),
			Currency:       releaseAmount.Currency().String(),
			HoldRemaining:  hold.Remaining.String(),
			HoldStatus:     string(hold.Status),
			CreatedAt:      entry.CreatedAt,
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*dtos.ReleaseResponse)
	event := events.NewEntryPosted(resp.HoldID, string(entities.EntryTypeRelease), resp.ReleasedAmount, resp.Currency)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish release event", slog.String("error", err.Error()))
	}
	return resp, nil
}
