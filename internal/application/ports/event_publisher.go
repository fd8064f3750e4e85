package ports

import (
	"context"

	"github.com/agentpay/walletd/internal/domain/events"
)

// EventPublisher pushes domain events to the message bus after commit.
// Delivery is at-most-once and best effort; the ledger is the source of
// truth, events are notifications.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
