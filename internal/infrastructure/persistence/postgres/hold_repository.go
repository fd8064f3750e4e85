package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
	"github.com/agentpay/walletd/internal/domain/valueobjects"
)

// HoldRepository persists holds.
type HoldRepository struct {
	pool *pgxpool.Pool
}

var _ ports.HoldRepository = (*HoldRepository)(nil)

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

const holdColumns = `id, wallet_id, amount, currency, remaining, status, expires_at,
	created_by_api_key_id, idempotency_key, journal_entry_id, created_at`

func (r *HoldRepository) Create(ctx context.Context, hold *entities.Hold) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO holds (`+holdColumns+`)
		VALUES ($1, $2, $3::numeric, $4, $5::numeric, $6, $7, $8, $9, $10, $11)`,
		hold.ID, hold.WalletID, hold.Amount.String(), hold.Amount.Currency(),
		hold.Remaining.String(), hold.Status, hold.ExpiresAt,
		hold.CreatedByAPIKeyID, hold.IdempotencyKey, hold.JournalEntryID, hold.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("hold idempotency key %q: %w", hold.IdempotencyKey, domainerrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Hold, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = $1`, id)
	return scanHold(row)
}

func (r *HoldRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Hold, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = $1 FOR UPDATE`, id)
	return scanHold(row)
}

func (r *HoldRepository) FindByIdempotency(ctx context.Context, idempotencyKey string, apiKeyID uuid.UUID) (*entities.Hold, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `
		SELECT `+holdColumns+` FROM holds
		WHERE idempotency_key = $1 AND created_by_api_key_id = $2`,
		idempotencyKey, apiKeyID)
	return scanHold(row)
}

func (r *HoldRepository) Save(ctx context.Context, hold *entities.Hold) error {
	q := getQuerier(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE holds
		SET remaining = $2::numeric, status = $3, journal_entry_id = $4
		WHERE id = $1`,
		hold.ID, hold.Remaining.String(), hold.Status, hold.JournalEntryID,
	)
	if err != nil {
		return fmt.Errorf("failed to update hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *HoldRepository) FindExpiredActive(ctx context.Context, now time.Time, limit int) ([]*entities.Hold, error) {
	q := getQuerier(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+holdColumns+` FROM holds
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired holds: %w", err)
	}
	defer rows.Close()

	var holds []*entities.Hold
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}
	return holds, rows.Err()
}

func scanHold(row pgx.Row) (*entities.Hold, error) {
	var (
		h                 entities.Hold
		amount, remaining string
		currency          valueobjects.Currency
	)
	err := row.Scan(&h.ID, &h.WalletID, &amount, &currency, &remaining,
		&h.Status, &h.ExpiresAt, &h.CreatedByAPIKeyID, &h.IdempotencyKey,
		&h.JournalEntryID, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan hold: %w", err)
	}
	if h.Amount, err = valueobjects.NewMoney(amount, currency); err != nil {
		return nil, fmt.Errorf("stored hold amount %q is invalid: %w", amount, err)
	}
	if h.Remaining, err = valueobjects.NewMoney(remaining, currency); err != nil {
		return nil, fmt.Errorf("stored hold remaining %q is invalid: %w", remaining, err)
	}
	return &h, nil
}
