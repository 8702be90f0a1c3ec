package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentloop/rental-engine/internal/domain"
)

type rentalRepository struct {
	db *sqlx.DB
}

func NewRentalRepository(db *sqlx.DB) RentalRepository {
	return &rentalRepository{db: db}
}

func (r *rentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	query := `
		INSERT INTO rentals (id, product_id, renter_id, owner_id, start_time, end_time,
			duration, duration_unit, total_cost, service_fee, status, purpose, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		rental.ID,
		rental.ProductID,
		rental.RenterID,
		rental.OwnerID,
		rental.StartTime,
		rental.EndTime,
		rental.Duration,
		rental.DurationUnit,
		rental.TotalCost,
		rental.ServiceFee,
		rental.Status,
		rental.Purpose,
		rental.Notes,
		rental.CreatedAt,
		rental.UpdatedAt,
	)

	return err
}

const rentalColumns = `
	id, product_id, renter_id, owner_id, start_time, end_time,
	duration, duration_unit, total_cost, service_fee, status, purpose, notes,
	created_at, updated_at
`

func (r *rentalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`

	var rental domain.Rental
	if err := q(ctx, r.db).GetContext(ctx, &rental, query, id); err != nil {
		return nil, err
	}

	return &rental, nil
}

func (r *rentalRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 FOR UPDATE`

	var rental domain.Rental
	if err := q(ctx, r.db).GetContext(ctx, &rental, query, id); err != nil {
		return nil, err
	}

	return &rental, nil
}

func (r *rentalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.RentalStatus, at time.Time) (bool, error) {
	// The status guard makes concurrent read-modify-write serial: the second
	// caller matches zero rows.
	query := `
		UPDATE rentals
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	res, err := q(ctx, r.db).ExecContext(ctx, query, id, from, to, at)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *rentalRepository) ListActive(ctx context.Context, productID uuid.UUID) ([]*domain.Rental, error) {
	query := `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE product_id = $1
		  AND status IN ('accepted', 'in_progress')
		ORDER BY start_time
	`

	rentals := []*domain.Rental{}
	if err := q(ctx, r.db).SelectContext(ctx, &rentals, query, productID); err != nil {
		return nil, err
	}

	return rentals, nil
}

func (r *rentalRepository) ListDueToStart(ctx context.Context, now time.Time, limit int) ([]*domain.Rental, error) {
	query := `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE status = 'accepted' AND start_time <= $1
		ORDER BY start_time
		LIMIT $2
	`

	rentals := []*domain.Rental{}
	if err := q(ctx, r.db).SelectContext(ctx, &rentals, query, now, limit); err != nil {
		return nil, err
	}

	return rentals, nil
}

func (r *rentalRepository) List(ctx context.Context, filter domain.ListRentalsFilter) ([]*domain.Rental, error) {
	query := `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE ($1::uuid IS NULL OR renter_id = $1)
		  AND ($2::uuid IS NULL OR owner_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rentals := []*domain.Rental{}
	err := q(ctx, r.db).SelectContext(ctx, &rentals, query,
		filter.RenterID, filter.OwnerID, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, err
	}

	return rentals, nil
}

func (r *rentalRepository) AppendHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	// seq is assigned here rather than read-modify-written by the service so
	// the log stays gapless under the rental's row lock.
	query := `
		INSERT INTO rental_status_history (id, rental_id, seq, status, note, created_at)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5
		FROM rental_status_history
		WHERE rental_id = $2
	`

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.RentalID,
		entry.Status,
		entry.Note,
		entry.CreatedAt,
	)

	return err
}

func (r *rentalRepository) ListHistory(ctx context.Context, rentalID uuid.UUID) ([]domain.StatusHistoryEntry, error) {
	query := `
		SELECT id, rental_id, seq, status, note, created_at
		FROM rental_status_history
		WHERE rental_id = $1
		ORDER BY seq
	`

	entries := []domain.StatusHistoryEntry{}
	if err := q(ctx, r.db).SelectContext(ctx, &entries, query, rentalID); err != nil {
		return nil, err
	}

	return entries, nil
}
