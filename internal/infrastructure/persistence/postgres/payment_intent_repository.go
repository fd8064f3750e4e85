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

// PaymentIntentRepository persists payment intents.
type PaymentIntentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.PaymentIntentRepository = (*PaymentIntentRepository)(nil)

func NewPaymentIntentRepository(pool *pgxpool.Pool) *PaymentIntentRepository {
	return &PaymentIntentRepository{pool: pool}
}

const intentColumns = `id, merchant_wallet_id, amount, currency, status, expires_at,
	metadata, payer_wallet_id, journal_entry_id, created_at`

func (r *PaymentIntentRepository) Create(ctx context.Context, intent *entities.PaymentIntent) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO payment_intents (`+intentColumns+`)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10)`,
		intent.ID, intent.MerchantWalletID, intent.Amount.String(), intent.Amount.Currency(),
		intent.Status, intent.ExpiresAt, intent.Metadata,
		intent.PayerWalletID, intent.JournalEntryID, intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment intent: %w", err)
	}
	return nil
}

func (r *PaymentIntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE id = $1`, id)
	return scanIntent(row)
}

func (r *PaymentIntentRepository) FindByJournalEntry(ctx context.Context, journalEntryID uuid.UUID) (*entities.PaymentIntent, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE journal_entry_id = $1`, journalEntryID)
	return scanIntent(row)
}

func (r *PaymentIntentRepository) Save(ctx context.Context, intent *entities.PaymentIntent) error {
	q := getQuerier(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE payment_intents
		SET status = $2, payer_wallet_id = $3, journal_entry_id = $4
		WHERE id = $1`,
		intent.ID, intent.Status, intent.PayerWalletID, intent.JournalEntryID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func scanIntent(row pgx.Row) (*entities.PaymentIntent, error) {
	var (
		pi       entities.PaymentIntent
		amount   string
		currency valueobjects.Currency
	)
	err := row.Scan(&pi.ID, &pi.MerchantWalletID, &amount, &currency,
		&pi.Status, &pi.ExpiresAt, &pi.Metadata,
		&pi.PayerWalletID, &pi.JournalEntryID, &pi.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan payment intent: %w", err)
	}
	if pi.Amount, err = valueobjects.NewMoney(amount, currency); err != nil {
		return nil, fmt.Errorf("stored intent amount %q is invalid: %w", amount, err)
	}
	return &pi, nil
}
