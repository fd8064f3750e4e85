package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// APIKeyRepository persists API keys. Scopes and limits are stored as JSONB
// blobs; the limits blob carries decimals as strings.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

var _ ports.APIKeyRepository = (*APIKeyRepository)(nil)

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

const apiKeyColumns = `id, key_hash, wallet_id, scopes, limits, status, last_used_at, created_at`

func (r *APIKeyRepository) Create(ctx context.Context, key *entities.APIKey) error {
	scopes, limits, err := marshalKeyBlobs(key)
	if err != nil {
		return err
	}
	q := getQuerier(ctx, r.pool)
	_, err = q.Exec(ctx, `
		INSERT INTO api_keys (`+apiKeyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.KeyHash, key.WalletID, scopes, limits,
		key.Status, key.LastUsedAt, key.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("api key hash: %w", domainerrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.APIKey, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	return scanAPIKey(row)
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*entities.APIKey, error) {
	q := getQuerier(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash)
	return scanAPIKey(row)
}

func (r *APIKeyRepository) Save(ctx context.Context, key *entities.APIKey) error {
	scopes, limits, err := marshalKeyBlobs(key)
	if err != nil {
		return err
	}
	q := getQuerier(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE api_keys
		SET scopes = $2, limits = $3, status = $4
		WHERE id = $1`,
		key.ID, scopes, limits, key.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $2
		WHERE id = $1 AND (last_used_at IS NULL OR last_used_at < $2)`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}

func marshalKeyBlobs(key *entities.APIKey) ([]byte, []byte, error) {
	scopes, err := json.Marshal(key.Scopes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal scopes: %w", err)
	}
	limits, err := json.Marshal(key.Limits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal limits: %w", err)
	}
	return scopes, limits, nil
}

func scanAPIKey(row pgx.Row) (*entities.APIKey, error) {
	var (
		k              entities.APIKey
		scopes, limits []byte
	)
	err := row.Scan(&k.ID, &k.KeyHash, &k.WalletID, &scopes, &limits,
		&k.Status, &k.LastUsedAt, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan api key: %w", err)
	}
	if err := json.Unmarshal(scopes, &k.Scopes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scopes: %w", err)
	}
	if err := json.Unmarshal(limits, &k.Limits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal limits: %w", err)
	}
	return &k, nil
}
