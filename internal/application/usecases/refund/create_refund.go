// Package refund implements returning captured funds to the payer.
package refund

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/application/dtos"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
)

// CreateRefundUseCase posts a refund entry: debit the merchant's available
// account, credit the payer's. Only the capture's destination wallet may
// refund, and only up to what remains refundable.
type CreateRefundUseCase struct {
	uow       ports.UnitOfWork
	captures  ports.CaptureRepository
	refunds   ports.RefundRepository
	holds     ports.HoldRepository
	wallets   ports.WalletRepository
	engine    *ledger.Engine
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewCreateRefundUseCase(
	uow ports.UnitOfWork,
	captures ports.CaptureRepository,
	refunds ports.RefundRepository,
	holds ports.HoldRepository,
	wallets ports.WalletRepository,
	engine *ledger.Engine,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *CreateRefundUseCase {
	return &CreateRefundUseCase{
		uow:       uow,
		captures:  captures,
		refunds:   refunds,
		holds:     holds,
		wallets:   wallets,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute refunds part of a capture; a repeated idempotency key replays the
// original refund.
func (uc *CreateRefundUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.RefundRequest) (*dtos.RefundResponse, error) {
	resp, err := uc.run(ctx, apiKey, req)
	if errors.Is(err, domainerrors.ErrDuplicateKey) {
		resp, err = uc.run(ctx, apiKey, req)
	}
	return resp, err
}

func (uc *CreateRefundUseCase) run(ctx context.Context, apiKey *entities.APIKey, req dtos.RefundRequest) (*dtos.RefundResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		capture, err := uc.captures.FindByID(ctx, req.CaptureID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeCaptureNotFound, "capture not found")
			}
			return nil, err
		}
		if capture.ToWalletID != apiKey.WalletID {
			return nil, domainerrors.Forbidden("capture belongs to another wallet")
		}

		prior, err := uc.refunds.FindByIdempotency(ctx, req.IdempotencyKey)
		if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
		if prior != nil {
			if prior.CaptureID != capture.ID {
				return nil, domainerrors.IdempotencyConflict()
			}
			resp := uc.toResponse(prior, capture)
			return &resp, nil
		}

		refundable, err := capture.RefundableAmount()
		if err != nil {
			return nil, err
		}
		// Omitted amount refunds everything still refundable.
		amount := refundable
		if req.Amount != "" {
			amount, err = ledger.ParseAmount(req.Amount, capture.Amount.Currency())
			if err != nil {
				return nil, err
			}
		} else if !amount.IsPositive() {
			return nil, domainerrors.InvalidAmount("capture is fully refunded")
		}
		if amount.GreaterThan(refundable) {
			return nil, domainerrors.New(domainerrors.CodeAmountExceedsRefundable, "refund amount exceeds the refundable remainder").
				WithDetails(map[string]any{
					"refundable": refundable.String(),
					"requested":  amount.String(),
				})
		}

		hold, err := uc.holds.FindByID(ctx, capture.HoldID)
		if err != nil {
			return nil, err
		}
		merchant, err := uc.wallets.FindByID(ctx, capture.ToWalletID)
		if err != nil {
			return nil, err
		}
		if err := merchant.EnsureActive(); err != nil {
			return nil, err
		}
		payer, err := uc.wallets.FindByID(ctx, hold.WalletID)
		if err != nil {
			return nil, err
		}
		if err := payer.EnsureActive(); err != nil {
			return nil, err
		}

		merchantAccounts, err := uc.engine.EnsureAccounts(ctx, merchant)
		if err != nil {
			return nil, err
		}
		payerAccounts, err := uc.engine.EnsureAccounts(ctx, payer)
		if err != nil {
			return nil, err
		}
		merchantAvailable := merchantAccounts[entities.AccountKindAvailable]
		payerAvailable := payerAccounts[entities.AccountKindAvailable]

		if err := uc.engine.Lock(ctx, merchantAvailable, payerAvailable); err != nil {
			return nil, err
		}
		balance, err := uc.engine.Balance(ctx, merchantAvailable)
		if err != nil {
			return nil, err
		}
		if err := ledger.RequireSufficient(balance, amount); err != nil {
			return nil, err
		}

		entry := entities.NewJournalEntry(entities.EntryTypeRefund, req.IdempotencyKey, apiKey.ID, &capture.ID, nil)
		entry.AddLine(merchantAvailable.ID, entities.DirectionDebit, amount)
		entry.AddLine(payerAvailable.ID, entities.DirectionCredit, amount)
		if err := uc.engine.Post(ctx, entry); err != nil {
			return nil, err
		}

		refunded, err := capture.RefundedAmount.Add(amount)
		if err != nil {
			return nil, err
		}
		capture.RefundedAmount = refunded
		if err := uc.captures.Save(ctx, capture); err != nil {
			return nil, err
		}

		refund := &entities.Refund{
			ID:             uuid.New(),
			CaptureID:      capture.ID,
			Amount:         amount,
			JournalEntryID: entry.ID,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      entry.CreatedAt,
		}
		if err := uc.refunds.Create(ctx, refund); err != nil {
			return nil, err
		}

		resp := uc.toResponse(refund, capture)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*dtos.RefundResponse)
	event := events.NewEntryPosted(resp.RefundID, string(entities.EntryTypeRefund), resp.Amount, resp.Currency)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish refund event", slog.String("error", err.Error()))
	}
	return resp, nil
}

func (uc *CreateRefundUseCase) toResponse(refund *entities.Refund, capture *entities.Capture) dtos.RefundResponse {
	return dtos.RefundResponse{
		RefundID:      refund.ID,
		CaptureID:     capture.ID,
		Amount:        refund.Amount.String(),
		Currency:      refund.Amount.Currency().String(),
		RefundedTotal: capture.RefundedAmount.String(),
		CreatedAt:     refund.CreatedAt,
	}
}
