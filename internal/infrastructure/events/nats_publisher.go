// Package events implements the EventPublisher port on NATS. Publishing is
// best effort: the ledger is the source of truth and consumers must tolerate
// missed or duplicated events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/domain/events"
)

// SubjectPrefix namespaces every published subject, e.g.
// "walletd.ledger.entry.posted".
const SubjectPrefix = "walletd."

// envelope is the wire shape of a published event.
type envelope struct {
	EventID     uuid.UUID `json:"event_id"`
	EventType   string    `json:"event_type"`
	AggregateID uuid.UUID `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Data        any       `json:"data"`
}

// NATSPublisher publishes domain events to NATS core subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

var _ ports.EventPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("walletd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(envelope{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Data:        event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	subject := SubjectPrefix + event.EventType()
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			p.logger.Warn("event publish failed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err)
		}
	}
	return nil
}

// Close drains the connection so in-flight publishes get out.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
	}
}

// NoopPublisher drops every event. Used when no NATS URL is configured and
// in tests that don't care about events.
type NoopPublisher struct{}

var _ ports.EventPublisher = (*NoopPublisher)(nil)

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (*NoopPublisher) Publish(context.Context, events.DomainEvent) error { return nil }

func (*NoopPublisher) PublishBatch(context.Context, []events.DomainEvent) error { return nil }
