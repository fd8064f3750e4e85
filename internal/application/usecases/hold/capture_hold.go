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
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// CaptureHoldUseCase settles part of a hold into a destination wallet:
// debit the holder's held account, credit the destination's available.
type CaptureHoldUseCase struct {
	uow       ports.UnitOfWork
	holds     ports.HoldRepository
	captures  ports.CaptureRepository
	wallets   ports.WalletRepository
	engine    *ledger.Engine
	resolver  *ledger.Resolver
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewCaptureHoldUseCase(
	uow ports.UnitOfWork,
	holds ports.HoldRepository,
	captures ports.CaptureRepository,
	wallets ports.WalletRepository,
	engine *ledger.Engine,
	resolver *ledger.Resolver,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *CaptureHoldUseCase {
	return &CaptureHoldUseCase{
		uow:       uow,
		holds:     holds,
		captures:  captures,
		wallets:   wallets,
		engine:    engine,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute captures from the hold. Only the hold's owner may capture; a
// repeated idempotency key replays the original capture.
func (uc *CaptureHoldUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, holdID uuid.UUID, req dtos.CaptureHoldRequest) (*dtos.CaptureResponse, error) {
	resp, err := uc.run(ctx, apiKey, holdID, req)
	if errors.Is(err, domainerrors.ErrDuplicateKey) {
		resp, err = uc.run(ctx, apiKey, holdID, req)
	}
	return resp, err
}

func (uc *CaptureHoldUseCase) run(ctx context.Context, apiKey *entities.APIKey, holdID uuid.UUID, req dtos.CaptureHoldRequest) (*dtos.CaptureResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		// Row-lock the hold so concurrent captures, releases and sweeps
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

		prior, err := uc.captures.FindByIdempotency(ctx, req.IdempotencyKey)
		if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
		if prior != nil {
			if prior.HoldID != hold.ID {
				return nil, domainerrors.IdempotencyConflict()
			}
			resp := uc.toResponse(prior, hold)
			return &resp, nil
		}

		now := time.Now().UTC()
		if hold.Status == entities.HoldStatusActive && hold.IsExpired(now) {
			// The hold stays active in storage; the sweeper releases the
			// funds and flips the status.
			return nil, domainerrors.New(domainerrors.CodeHoldExpired, "hold has expired")
		}
		if !hold.CanCapture(now) {
			return nil, domainerrors.Newf(domainerrors.CodeHoldNotCapturable, "hold is %s", hold.Status)
		}

		// Omitted amount captures everything that remains.
		amount := hold.Remaining
		if req.Amount != "" {
			amount, err = ledger.ParseAmount(req.Amount, hold.Amount.Currency())
			if err != nil {
				return nil, err
			}
		}
		if amount.GreaterThan(hold.Remaining) {
			return nil, domainerrors.New(domainerrors.CodeAmountExceedsHold, "capture amount exceeds remaining hold").
				WithDetails(map[string]any{
					"remaining": hold.Remaining.String(),
					"requested": amount.String(),
				})
		}

		destination, err := uc.resolver.Resolve(ctx, req.To)
		if err != nil {
			return nil, err
		}
		if destination.Currency != hold.Amount.Currency() {
			return nil, domainerrors.CurrencyMismatch(hold.Amount.Currency().String(), destination.Currency.String())
		}

		holder, err := uc.wallets.FindByID(ctx, hold.WalletID)
		if err != nil {
			return nil, err
		}
		holderAccounts, err := uc.engine.EnsureAccounts(ctx, holder)
		if err != nil {
			return nil, err
		}
		destAccounts, err := uc.engine.EnsureAccounts(ctx, destination)
		if err != nil {
			return nil, err
		}
		held := holderAccounts[entities.AccountKindHeld]
		destAvailable := destAccounts[entities.AccountKindAvailable]

		if err := uc.engine.Lock(ctx, held, destAvailable); err != nil {
			return nil, err
		}
		if err := uc.engine.EnforceLimits(ctx, apiKey, amount, holderAccounts[entities.AccountKindAvailable].ID, destination); err != nil {
			return nil, err
		}

		entry := entities.NewJournalEntry(entities.EntryTypeCapture, req.IdempotencyKey, apiKey.ID, &hold.ID, nil)
		entry.AddLine(held.ID, entities.DirectionDebit, amount)
		entry.AddLine(destAvailable.ID, entities.DirectionCredit, amount)
		if err := uc.engine.Post(ctx, entry); err != nil {
			return nil, err
		}

		remaining, err := hold.Remaining.Sub(amount)
		if err != nil {
			return nil, err
		}
		hold.Remaining = remaining
		if remaining.IsZero() {
			hold.Status = entities.HoldStatusCaptured
		}
		if err := uc.holds.Save(ctx, hold); err != nil {
			return nil, err
		}

		capture := &entities.Capture{
			ID:             uuid.New(),
			HoldID:         hold.ID,
			ToWalletID:     destination.ID,
			Amount:         amount,
			JournalEntryID: entry.ID,
			IdempotencyKey: req.IdempotencyKey,
			RefundedAmount: valueobjects.Zero(amount.Currency()),
			CreatedAt:      entry.CreatedAt,
		}
		if err := uc.captures.Create(ctx, capture); err != nil {
			return nil, err
		}

		resp := uc.toResponse(capture, hold)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*dtos.CaptureResponse)
	event := events.NewEntryPosted(resp.CaptureID, string(entities.EntryTypeCapture), resp.Amount, resp.Currency)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish capture event", slog.String("error", err.Error()))
	}
	return resp, nil
}

func (uc *CaptureHoldUseCase) toResponse(capture *entities.Capture, hold *entities.Hold) dtos.CaptureResponse {
	return dtos.CaptureResponse{
		CaptureID:     capture.ID,
		HoldID:        hold.ID,
		ToWalletID:    capture.ToWalletID,
		Amount:        capture.Amount.String(),
		Currency:      capture.Amount.Currency().String(),
		HoldRemaining: hold.Remaining.String(),
		HoldStatus:    string(hold.Status),
		CreatedAt:     capture.CreatedAt,
	}
}
