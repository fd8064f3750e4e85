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
)

// WalletRepository persists wallets.
type WalletRepository struct {
	pool *pgxpool.Pool
}

var _ ports.WalletRepository = (*WalletRepository)(nil)

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

const walletColumns = `id, type, status, currency, handle, metadata, created_at, updated_at`

func (r *WalletRepository) Create(ctx context.Context, wallet *entities.Wallet) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		wallet.ID, wallet.Type, wallet.Status, wallet.Currency,
		wallet.Handle, wallet.Metadata, wallet.CreatedAt, wallet.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("wallet handle %q: %w", wallet.HandleOrEmpty(), domainerrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func (r *WalletRepository) FindByHandle(ctx context.Context, handle string) (*entities.Wallet, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE handle = $1`, handle)
	return scanWallet(row)
}

func (r *WalletRepository) Save(ctx context.Context, wallet *entities.Wallet) error {
	q := getQuerier(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE wallets
		SET status = $2, metadata = $3, updated_at = $4
		WHERE id = $1`,
		wallet.ID, wallet.Status, wallet.Metadata, wallet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func scanWallet(row pgx.Row) (*entities.Wallet, error) {
	var w entities.Wallet
	err := row.Scan(&w.ID, &w.Type, &w.Status, &w.Currency, &w.Handle,
		&w.Metadata, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return &w, nil
}
