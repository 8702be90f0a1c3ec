package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names emitted by the rental and escrow state machines. Events are
// written to the outbox inside the same transaction as the state change;
// delivery to the notification pipeline is external.
const (
	EventRentalCreated   = "rental.created"
	EventRentalAccepted  = "rental.accepted"
	EventRentalRejected  = "rental.rejected"
	EventRentalCancelled = "rental.cancelled"
	EventRentalStarted   = "rental.started"
	EventRentalCompleted = "rental.completed"
	EventEscrowHeld      = "escrow.held"
	EventEscrowReleased  = "escrow.released"
	EventEscrowRefunded  = "escrow.refunded"
	EventEscrowDisputed  = "escrow.disputed"
)

// OutboxEvent is one undelivered domain event row.
type OutboxEvent struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	AggregateID uuid.UUID       `json:"aggregate_id" db:"aggregate_id"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// NewOutboxEvent builds an event row; payload marshalling errors surface as a
// nil-payload event rather than blocking the transaction.
func NewOutboxEvent(name string, aggregateID uuid.UUID, payload interface{}) *OutboxEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return &OutboxEvent{
		ID:          uuid.New(),
		Name:        name,
		AggregateID: aggregateID,
		Payload:     raw,
	}
}
