package ports

import "context"

// UnitOfWork brackets a function in one database transaction. The context
// passed to fn carries the transaction; repositories pick it up from there.
// An error from fn rolls back, nil commits.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error

	// ExecuteWithResult is Execute for functions that return a value.
	ExecuteWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)

	// ExecuteWithRetry re-runs fn on serialization and deadlock failures,
	// up to maxRetries attempts with backoff.
	ExecuteWithRetry(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error
}
