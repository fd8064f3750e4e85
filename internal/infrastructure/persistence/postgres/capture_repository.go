package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// CaptureRepository persists captures.
type CaptureRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CaptureRepository = (*CaptureRepository)(nil)

func NewCaptureRepository(pool *pgxpool.Pool) *CaptureRepository {
	return &CaptureRepository{pool: pool}
}

const captureColumns = `id, hold_id, to_wallet_id, amount, currency,
	journal_entry_id, idempotency_key, refunded_amount, created_at`

func (r *CaptureRepository) Create(ctx context.Context, capture *entities.Capture) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO captures (`+captureColumns+`)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8::numeric, $9)`,
		capture.ID, capture.HoldID, capture.ToWalletID,
		capture.Amount.String(), capture.Amount.Currency(),
		capture.JournalEntryID, capture.IdempotencyKey,
		capture.RefundedAmount.String(), capture.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("capture idempotency key %q: %w", capture.IdempotencyKey, domainerrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert capture: %w", err)
	}
	return nil
}

func (r *CaptureRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Capture, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+captureColumns+` FROM captures WHERE id = $1`, id)
	return scanCapture(row)
}

func (r *CaptureRepository) FindByIdempotency(ctx context.Context, idempotencyKey string) (*entities.Capture, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+captureColumns+` FROM captures WHERE idempotency_key = $1`, idempotencyKey)
	return scanCapture(row)
}

func (r *CaptureRepository) Save(ctx context.Context, capture *entities.Capture) error {
	q := getQuerier(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE captures SET refunded_amount = $2::numeric WHERE id = $1`,
		capture.ID, capture.RefundedAmount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update capture: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func scanCapture(row pgx.Row) (*entities.Capture, error) {
	var (
		c                entities.Capture
		amount, refunded string
		currency         valueobjects.Currency
	)
	err := row.Scan(&c.ID, &c.HoldID, &c.ToWalletID, &amount, &currency,
		&c.JournalEntryID, &c.IdempotencyKey, &refunded, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan capture: %w", err)
	}
	if c.Amount, err = valueobjects.NewMoney(amount, currency); err != nil {
		return nil, fmt.Errorf("stored capture amount %q is invalid: %w", amount, err)
	}
	if c.RefundedAmount, err = valueobjects.NewMoney(refunded, currency); err != nil {
		return nil, fmt.Errorf("stored refunded amount %q is invalid: %w", refunded, err)
	}
	return &c, nil
}
