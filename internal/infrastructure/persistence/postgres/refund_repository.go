package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// RefundRepository persists refunds.
type RefundRepository struct {
	pool *pgxpool.Pool
}

var _ ports.RefundRepository = (*RefundRepository)(nil)

func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{pool: pool}
}

const refundColumns = `id, capture_id, amount, currency, journal_entry_id, idempotency_key, created_at`

func (r *RefundRepository) Create(ctx context.Context, refund *entities.Refund) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO refunds (`+refundColumns+`)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)`,
		refund.ID, refund.CaptureID, refund.Amount.String(), refund.Amount.Currency(),
		refund.JournalEntryID, refund.IdempotencyKey, refund.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("refund idempotency key %q: %w", refund.IdempotencyKey, domainerrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert refund: %w", err)
	}
	return nil
}

func (r *RefundRepository) FindByIdempotency(ctx context.Context, idempotencyKey string) (*entities.Refund, error) {
	q := getQuerier(ctx, r.pool)
	var (
		ref      entities.Refund
		amount   string
		currency valueobjects.Currency
	)
	err := q.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE idempotency_key = $1`, idempotencyKey).
		Scan(&ref.ID, &ref.CaptureID, &amount, &currency,
			&ref.JournalEntryID, &ref.IdempotencyKey, &ref.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan refund: %w", err)
	}
	if ref.Amount, err = valueobjects.NewMoney(amount, currency); err != nil {
		return nil, fmt.Errorf("stored refund amount %q is invalid: %w", amount, err)
	}
	return &ref, nil
}
