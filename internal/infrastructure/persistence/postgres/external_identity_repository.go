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
)

// ExternalIdentityRepository persists provider-user-to-wallet bindings.
type ExternalIdentityRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ExternalIdentityRepository = (*ExternalIdentityRepository)(nil)

func NewExternalIdentityRepository(pool *pgxpool.Pool) *ExternalIdentityRepository {
	return &ExternalIdentityRepository{pool: pool}
}

func (r *ExternalIdentityRepository) Create(ctx context.Context, identity *entities.ExternalIdentity) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO external_identities (id, provider, external_user_id, wallet_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.Provider, identity.ExternalUserID,
		identity.WalletID, identity.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("identity %s/%s: %w",
				identity.Provider, identity.ExternalUserID, domainerrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert external identity: %w", err)
	}
	return nil
}

func (r *ExternalIdentityRepository) Find(ctx context.Context, provider, externalUserID string) (*entities.ExternalIdentity, error) {
	q := getQuerier(ctx, r.pool)
	var identity entities.ExternalIdentity
	err := q.QueryRow(ctx, `
		SELECT id, provider, external_user_id, wallet_id, created_at
		FROM external_identities
		WHERE provider = $1 AND external_user_id = $2`,
		provider, externalUserID).
		Scan(&identity.ID, &identity.Provider, &identity.ExternalUserID,
			&identity.WalletID, &identity.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan external identity: %w", err)
	}
	return &identity, nil
}
