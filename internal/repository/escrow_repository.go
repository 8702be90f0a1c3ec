package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentloop/rental-engine/internal/domain"
)

type escrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) EscrowRepository {
	return &escrowRepository{db: db}
}

const escrowColumns = `id, rental_id, held_amount, status, release_date, created_at, updated_at`

func (r *escrowRepository) Create(ctx context.Context, escrow *domain.EscrowPayment) error {
	query := `
		INSERT INTO escrow_payments (id, rental_id, held_amount, status, release_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		escrow.ID,
		escrow.RentalID,
		escrow.HeldAmount,
		escrow.Status,
		escrow.ReleaseDate,
		escrow.CreatedAt,
		escrow.UpdatedAt,
	)

	return err
}

func (r *escrowRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.EscrowPayment, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_payments WHERE id = $1 FOR UPDATE`

	var escrow domain.EscrowPayment
	if err := q(ctx, r.db).GetContext(ctx, &escrow, query, id); err != nil {
		return nil, err
	}

	return &escrow, nil
}

func (r *escrowRepository) GetByRentalID(ctx context.Context, rentalID uuid.UUID) (*domain.EscrowPayment, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_payments WHERE rental_id = $1`

	var escrow domain.EscrowPayment
	if err := q(ctx, r.db).GetContext(ctx, &escrow, query, rentalID); err != nil {
		return nil, err
	}

	return &escrow, nil
}

func (r *escrowRepository) MoveFromHeld(ctx context.Context, id uuid.UUID, to domain.EscrowStatus, releaseDate *time.Time, at time.Time) (bool, error) {
	// The HELD guard is the single point that prevents a double fund
	// movement; two racing callers cannot both match this row.
	query := `
		UPDATE escrow_payments
		SET status = $2, release_date = COALESCE($3, release_date), updated_at = $4
		WHERE id = $1 AND status = 'HELD'
	`

	res, err := q(ctx, r.db).ExecContext(ctx, query, id, to, releaseDate, at)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
