// Package events publishes domain events (policy and claim state changes,
// payments, exports) to the message bus. Publishing is best effort: the
// database is the source of truth and a lost event never rolls back a write.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types.
const (
	PolicyCreated       = "policy.created"
	PolicyUpdated       = "policy.updated"
	PolicyStatusChanged = "policy.status_changed"
	PolicyExported      = "policy.exported"
	PolicyExportFailed  = "policy.export_failed"
	ClaimCreated        = "claim.created"
	ClaimStatusChanged  = "claim.status_changed"
	DocumentUploaded    = "claim.document_uploaded"
	PaymentCompleted    = "payment.completed"
	PaymentFailed       = "payment.failed"
	UserCreated         = "user.created"
	UserUpdated         = "user.updated"
)

// Event is the envelope put on the bus.
type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	AggregateID uint64         `json:"aggregate_id"`
	Actor       string         `json:"actor,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(typ string, aggregateID uint64, actor string, data map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        typ,
		AggregateID: aggregateID,
		Actor:       actor,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the request logger. Used when no bus is
// configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) error {
	zerolog.Ctx(ctx).Info().
		Str("event_id", e.ID).
		Str("event_type", e.Type).
		Uint64("aggregate_id", e.AggregateID).
		Str("actor", e.Actor).
		Msg("domain event")
	return nil
}

// Emit publishes e and logs, rather than returns, a delivery failure.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("event_type", e.Type).
			Uint64("aggregate_id", e.AggregateID).
			Msg("event publish failed")
	}
}
