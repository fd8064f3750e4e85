package hold

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/events"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

const sweepBatchSize = 100

// Sweeper releases expired active holds in the background. Each swept hold
// gets a release entry under the deterministic key "hold_expiry:<id>", so a
// crashed sweep resumes without double-posting.
type Sweeper struct {
	uow       ports.UnitOfWork
	holds     ports.HoldRepository
	wallets   ports.WalletRepository
	engine    *ledger.Engine
	publisher ports.EventPublisher
	logger    *slog.Logger
	interval  time.Duration
}

func NewSweeper(
	uow ports.UnitOfWork,
	holds ports.HoldRepository,
	wallets ports.WalletRepository,
	engine *ledger.Engine,
	publisher ports.EventPublisher,
	logger *slog.Logger,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		uow:       uow,
		holds:     holds,
		wallets:   wallets,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
	}
}

// Run loops until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("hold sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// SweepOnce releases one batch of expired holds.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	expired, err := s.holds.FindExpiredActive(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return err
	}
	for _, h := range expired {
		if err := s.sweep(ctx, h.ID); err != nil {
			s.logger.Error("failed to sweep hold",
				slog.String("hold_id", h.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
	}
	return nil
}

func (s *Sweeper) sweep(ctx context.Context, holdID uuid.UUID) error {
	var released string
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		hold, err := s.holds.FindByIDForUpdate(ctx, holdID)
		if err != nil {
			return err
		}
		// Re-check under the row lock; a capture or release may have won.
		if hold.Status != entities.HoldStatusActive || !hold.IsExpired(time.Now().UTC()) {
			return nil
		}

		wallet, err := s.wallets.FindByID(ctx, hold.WalletID)
		if err != nil {
			return err
		}
		accounts, err := s.engine.EnsureAccounts(ctx, wallet)
		if err != nil {
			return err
		}
		available := accounts[entities.AccountKindAvailable]
		held := accounts[entities.AccountKindHeld]
		if err := s.engine.Lock(ctx, available, held); err != nil {
			return err
		}

		amount := hold.Remaining
		entry := entities.NewJournalEntry(
			entities.EntryTypeRelease,
			"hold_expiry:"+hold.ID.String(),
			hold.CreatedByAPIKeyID,
			&hold.ID,
			nil,
		)
		entry.AddLine(held.ID, entities.DirectionDebit, amount)
		entry.AddLine(available.ID, entities.DirectionCredit, amount)
		if err := s.engine.Post(ctx, entry); err != nil {
			if errors.Is(err, domainerrors.ErrDuplicateKey) {
				// A previous sweep posted the release but lost the hold
				// update; finish that.
				return s.closeExpired(ctx, hold)
			}
			return err
		}

		released = amount.String()
		return s.closeExpired(ctx, hold)
	})
	if err != nil || released == "" {
		return err
	}

	event := events.NewHoldExpired(holdID, released)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish hold expiry event", slog.String("error", err.Error()))
	}
	return nil
}

func (s *Sweeper) closeExpired(ctx context.Context, hold *entities.Hold) error {
	hold.Remaining = valueobjects.Zero(hold.Amount.Currency())
	hold.Status = entities.HoldStatusExpired
	return s.holds.Save(ctx, hold)
}
