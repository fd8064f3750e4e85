package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/entities"
)

// AuditRepository persists audit records.
type AuditRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Create(ctx context.Context, record *entities.AuditRecord) error {
	q := getQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO audit_log
			(id, api_key_id, route, method, ip, user_agent, request_hash, response_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.APIKeyID, record.Route, record.Method,
		record.IP, record.UserAgent, record.RequestHash,
		record.ResponseStatus, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}
