package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txKey carries the active transaction through the context, so repositories
// join the unit of work without knowing about it.
type txKey struct{}

func injectTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func extractTx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// getQuerier returns the transaction from the context when present, the
// pool otherwise.
func getQuerier(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := extractTx(ctx); ok {
		return tx
	}
	return pool
}

// PostgreSQL error codes this layer reacts to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationError  = "40001"
	pgDeadlockDetected    = "40P01"
)

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrCode(err) == pgUniqueViolation
}

// uniqueConstraint returns the violated constraint name, or "".
func uniqueConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

func isRetryable(err error) bool {
	switch pgErrCode(err) {
	case pgSerializationError, pgDeadlockDetected:
		return true
	}
	return false
}
