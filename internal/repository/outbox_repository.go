package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rentloop/rental-engine/internal/domain"
)

type outboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Append(ctx context.Context, event *domain.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, name, aggregate_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		event.ID,
		event.Name,
		event.AggregateID,
		event.Payload,
		createdAt,
	)

	return err
}
