// Package transfer implements direct wallet-to-wallet payments.
package transfer

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

// CreateTransferUseCase posts a transfer entry: debit the caller's
// available account, credit the recipient's.
type CreateTransferUseCase struct {
	uow       ports.UnitOfWork
	wallets   ports.WalletRepository
	engine    *ledger.Engine
	resolver  *ledger.Resolver
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewCreateTransferUseCase(
	uow ports.UnitOfWork,
	wallets ports.WalletRepository,
	engine *ledger.Engine,
	resolver *ledger.Resolver,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *CreateTransferUseCase {
	return &CreateTransferUseCase{
		uow:       uow,
		wallets:   wallets,
		engine:    engine,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute runs the transfer for the authenticated key. Replays of the same
// idempotency key return the original transfer.
func (uc *CreateTransferUseCase) Execute(ctx context.Context, apiKey *entities.APIKey, req dtos.TransferRequest) (*dtos.TransferResponse, error) {
	resp, err := uc.run(ctx, apiKey, req)
	if errors.Is(err, domainerrors.ErrDuplicateKey) {
		// Lost the probe/insert race: the winning call committed our key.
		resp, err = uc.run(ctx, apiKey, req)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (uc *CreateTransferUseCase) run(ctx context.Context, apiKey *entities.APIKey, req dtos.TransferRequest) (*dtos.TransferResponse, error) {
	result, err := uc.uow.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		prior, err := uc.engine.CheckIdempotency(ctx, req.IdempotencyKey, apiKey.ID, entities.EntryTypeTransfer)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			if prior.ReferenceID != nil {
				// The key was spent on an intent payment, not a plain transfer.
				return nil, domainerrors.IdempotencyConflict()
			}
			return uc.replay(ctx, prior)
		}

		source, err := uc.wallets.FindByID(ctx, apiKey.WalletID)
		if err != nil {
			return nil, err
		}
		if err := source.EnsureActive(); err != nil {
			return nil, err
		}
		currency, err := ledger.ResolveCurrency(req.Currency, source)
		if err != nil {
			return nil, err
		}
		amount, err := ledger.ParseAmount(req.Amount, currency)
		if err != nil {
			return nil, err
		}

		recipient, err := uc.resolver.Resolve(ctx, req.To)
		if err != nil {
			return nil, err
		}
		if recipient.ID == source.ID {
			return nil, domainerrors.New(domainerrors.CodeSelfTransfer, "cannot transfer to your own wallet")
		}
		if recipient.Currency != currency {
			return nil, domainerrors.CurrencyMismatch(currency.String(), recipient.Currency.String())
		}

		sourceAccounts, err := uc.engine.EnsureAccounts(ctx, source)
		if err != nil {
			return nil, err
		}
		recipientAccounts, err := uc.engine.EnsureAccounts(ctx, recipient)
		if err != nil {
			return nil, err
		}
		sourceAvailable := sourceAccounts[entities.AccountKindAvailable]
		recipientAvailable := recipientAccounts[entities.AccountKindAvailable]

		if err := uc.engine.Lock(ctx, sourceAvailable, recipientAvailable); err != nil {
			return nil, err
		}
		if err := uc.engine.EnforceLimits(ctx, apiKey, amount, sourceAvailable.ID, recipient); err != nil {
			return nil, err
		}
		balance, err := uc.engine.Balance(ctx, sourceAvailable)
		if err != nil {
			return nil, err
		}
		if err := ledger.RequireSufficient(balance, amount); err != nil {
			return nil, err
		}

		entry := entities.NewJournalEntry(entities.EntryTypeTransfer, req.IdempotencyKey, apiKey.ID, nil, req.Metadata)
		entry.AddLine(sourceAvailable.ID, entities.DirectionDebit, amount)
		entry.AddLine(recipientAvailable.ID, entities.DirectionCredit, amount)
		if err := uc.engine.Post(ctx, entry); err != nil {
			return nil, err
		}

		return &dtos.TransferResponse{
			TransferID:   entry.ID,
			Status:       string(entry.Status),
			Amount:       amount.String(),
			Currency:     currency.String(),
			FromWalletID: source.ID,
			ToWalletID:   recipient.ID,
			CreatedAt:    entry.CreatedAt,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*dtos.TransferResponse)
	uc.publish(ctx, resp)
	return resp, nil
}

// replay rebuilds the original response from the stored entry.
func (uc *CreateTransferUseCase) replay(ctx context.Context, entry *entities.JournalEntry) (*dtos.TransferResponse, error) {
	debit, ok := ledger.LineByDirection(entry, entities.DirectionDebit)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeInternal, "stored transfer has no debit line")
	}
	credit, ok := ledger.LineByDirection(entry, entities.DirectionCredit)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeInternal, "stored transfer has no credit line")
	}
	from, err := uc.engine.WalletOfAccount(ctx, debit.LedgerAccountID)
	if err != nil {
		return nil, err
	}
	to, err := uc.engine.WalletOfAccount(ctx, credit.LedgerAccountID)
	if err != nil {
		return nil, err
	}
	return &dtos.TransferResponse{
		TransferID:   entry.ID,
		Status:       string(entry.Status),
		Amount:       credit.Amount.String(),
		Currency:     credit.Amount.Currency().String(),
		FromWalletID: from.ID,
		ToWalletID:   to.ID,
		CreatedAt:    entry.CreatedAt,
	}, nil
}

func (uc *CreateTransferUseCase) publish(ctx context.Context, resp *dtos.TransferResponse) {
	event := events.NewEntryPosted(resp.TransferID, string(entities.EntryTypeTransfer), resp.Amount, resp.Currency)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish transfer event",
			slog.String("transfer_id", resp.TransferID.String()),
			slog.String("error", err.Error()))
	}
}
