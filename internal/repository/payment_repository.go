package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentloop/rental-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, rental_id, escrow_id, counterparty_id, amount, method, direction, status, gateway_ref, created_at`

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, rental_id, escrow_id, counterparty_id, amount, method, direction, status, gateway_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		payment.ID,
		payment.RentalID,
		payment.EscrowID,
		payment.CounterpartyID,
		payment.Amount,
		payment.Method,
		payment.Direction,
		payment.Status,
		payment.GatewayRef,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) ListByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE escrow_id = $1 ORDER BY created_at`

	payments := []*domain.Payment{}
	if err := q(ctx, r.db).SelectContext(ctx, &payments, query, escrowID); err != nil {
		return nil, err
	}

	return payments, nil
}

type disputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) Create(ctx context.Context, dispute *domain.Dispute) error {
	query := `
		INSERT INTO disputes (id, escrow_id, raised_by, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		dispute.ID,
		dispute.EscrowID,
		dispute.RaisedBy,
		dispute.Reason,
		dispute.Status,
		dispute.CreatedAt,
	)

	return err
}

func (r *disputeRepository) ListByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*domain.Dispute, error) {
	query := `
		SELECT id, escrow_id, raised_by, reason, status, created_at
		FROM disputes
		WHERE escrow_id = $1
		ORDER BY created_at
	`

	disputes := []*domain.Dispute{}
	if err := q(ctx, r.db).SelectContext(ctx, &disputes, query, escrowID); err != nil {
		return nil, err
	}

	return disputes, nil
}
