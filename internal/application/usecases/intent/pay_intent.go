package intent

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

// expiredIntent marks a unit of work that only flipped the intent to
// expired; the caller turns it into INTENT_EXPIRED after the commit.
type expiredIntent struct{}

// PayIntentUseCase settles an intent in a single transaction: a
// transfer-typed entry from the payer to the merchant, plus the status flip.
type PayIntentUseCase struct {
	uow       ports.UnitOfWork
	wallets   ports.WalletRepository
	intents   ports.PaymentIntentRepository
	engine    *ledger.Engine
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewPayIntentUseCase(
	uow ports.UnitOfWork,
	wallets ports.WalletRepository,
	intents ports.PaymentIntentRepository,
	engine *ledger.Engine,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *PayIntentUseCase {
	return &PayIntentUseCase{
		uow:       uow,
		wallets:   wallets,
		intents:   intents,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute pays the intent from the caller's wallet; a repeated idempotency
// key replays the original settlement.
func (uc *PayIntentUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, intentID uuid.UUID, req dtos.PayIntentRequest) (*dtos.PayIntentResponse, error) {
	resp, err := uc.run(ctx, apiKey, intentID, req)
	if errors.Is(err, domainerrors.ErrDuplicateKey) {
		resp, err = uc.run(ctx, apiKey, intentID, req)
	}
	return resp, err
}

func (uc *PayIntentUseCase) run(ctx context.Context, apiKey *entities.APIKey, intentID uuid.UUID, req dtos.PayIntentRequest) (*dtos.PayIntentResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		pi, err := uc.intents.FindByID(ctx, intentID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeIntentNotFound, "payment intent not found")
			}
			return nil, err
		}

		prior, err := uc.engine.CheckIdempotency(ctx, req.IdempotencyKey, apiKey.ID, entities.EntryTypeTransfer)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			if prior.ReferenceID == nil || *prior.ReferenceID != pi.ID {
				return nil, domainerrors.IdempotencyConflict()
			}
			return uc.replay(pi, prior)
		}

		now := time.Now().UTC()
		if pi.Status == entities.IntentStatusRequiresPayment && pi.IsExpired(now) {
			// Persist the flip, then refuse outside the transaction so the
			// commit isn't rolled back with the error.
			pi.Status = entities.IntentStatusExpired
			if err := uc.intents.Save(ctx, pi); err != nil {
				return nil, err
			}
			return expiredIntent{}, nil
		}
		if !pi.CanPay(now) {
			return nil, domainerrors.Newf(domainerrors.CodeIntentNotPayable, "payment intent is %s", pi.Status)
		}

		payer, err := uc.wallets.FindByID(ctx, apiKey.WalletID)
		if err != nil {
			return nil, err
		}
		if err := payer.EnsureActive(); err != nil {
			return nil, err
		}
		if payer.ID == pi.MerchantWalletID {
			return nil, domainerrors.New(domainerrors.CodeSelfPayment, "cannot pay your own payment intent")
		}
		if payer.Currency != pi.Amount.Currency() {
			return nil, domainerrors.CurrencyMismatch(pi.Amount.Currency().String(), payer.Currency.String())
		}

		merchant, err := uc.wallets.FindByID(ctx, pi.MerchantWalletID)
		if err != nil {
			return nil, err
		}
		if err := merchant.EnsureActive(); err != nil {
			return nil, err
		}

		payerAccounts, err := uc.engine.EnsureAccounts(ctx, payer)
		if err != nil {
			return nil, err
		}
		merchantAccounts, err := uc.engine.EnsureAccounts(ctx, merchant)
		if err != nil {
			return nil, err
		}
		payerAvailable := payerAccounts[entities.AccountKindAvailable]
		merchantAvailable := merchantAccounts[entities.AccountKindAvailable]

		if err := uc.engine.Lock(ctx, payerAvailable, merchantAvailable); err != nil {
			return nil, err
		}
		if err := uc.engine.EnforceLimits(ctx, apiKey, pi.Amount, payerAvailable.ID, merchant); err != nil {
			return nil, err
		}
		balance, err := uc.engine.Balance(ctx, payerAvailable)
		if err != nil {
			return nil, err
		}
		if err := ledger.RequireSufficient(balance, pi.Amount); err != nil {
			return nil, err
		}

		entry := entities.NewJournalEntry(entities.EntryTypeTransfer, req.IdempotencyKey, apiKey.ID, &pi.ID, nil)
		entry.AddLine(payerAvailable.ID, entities.DirectionDebit, pi.Amount)
		entry.AddLine(merchantAvailable.ID, entities.DirectionCredit, pi.Amount)
		if err := uc.engine.Post(ctx, entry); err != nil {
			return nil, err
		}

		pi.MarkPaid(payer.ID, entry.ID)
		if err := uc.intents.Save(ctx, pi); err != nil {
			return nil, err
		}

		resp := dtos.PayIntentResponse{
			IntentID:         pi.ID,
			TransferID:       entry.ID,
			Status:           string(pi.Status),
			Amount:           pi.Amount.String(),
			Currency:         pi.Amount.Currency().String(),
			PayerWalletID:    payer.ID,
			MerchantWalletID: merchant.ID,
			CreatedAt:        entry.CreatedAt,
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	if _, ok := result.(expiredIntent); ok {
		return nil, domainerrors.New(domainerrors.CodeIntentExpired, "payment intent has expired")
	}

	resp := result.(*dtos.PayIntentResponse)
	event := events.NewIntentPaid(resp.IntentID, resp.PayerWalletID, resp.Amount)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish intent paid event", slog.String("error", err.Error()))
	}
	return resp, nil
}

func (uc *PayIntentUseCase) replay(pi *entities.PaymentIntent, entry *entities.JournalEntry) (*dtos.PayIntentResponse, error) {
	if pi.PayerWalletID == nil {
		return nil, domainerrors.New(domainerrors.CodeInternal, "paid intent is missing its payer")
	}
	return &dtos.PayIntentResponse{
		IntentID:         pi.ID,
		TransferID:       entry.ID,
		Status:           string(pi.Status),
		Amount:           pi.Amount.String(),
		Currency:         pi.Amount.Currency().String(),
		PayerWalletID:    *pi.PayerWalletID,
		MerchantWalletID: pi.MerchantWalletID,
		CreatedAt:        entry.CreatedAt,
	}, nil
}
