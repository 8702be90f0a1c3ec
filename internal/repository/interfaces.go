package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rentloop/rental-engine/internal/domain"
)

// RentalRepository defines the interface for rental data operations
type RentalRepository interface {
	// Create persists a new rental
	Create(ctx context.Context, rental *domain.Rental) error

	// GetByID retrieves a rental by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Rental, error)

	// GetByIDForUpdate retrieves a rental and takes a row lock; must be
	// called inside a transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Rental, error)

	// UpdateStatus moves a rental between statuses, guarded by the expected
	// current status; returns false when the guard did not match
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.RentalStatus, at time.Time) (bool, error)

	// ListActive returns the product's accepted/in_progress rentals; the
	// caller applies the window overlap predicate
	ListActive(ctx context.Context, productID uuid.UUID) ([]*domain.Rental, error)

	// ListDueToStart returns accepted rentals whose start time has passed
	ListDueToStart(ctx context.Context, now time.Time, limit int) ([]*domain.Rental, error)

	// List returns rentals matching the filter
	List(ctx context.Context, filter domain.ListRentalsFilter) ([]*domain.Rental, error)

	// AppendHistory appends one entry to the rental's status log, assigning
	// the next sequence number
	AppendHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error

	// ListHistory returns the rental's status log in sequence order
	ListHistory(ctx context.Context, rentalID uuid.UUID) ([]domain.StatusHistoryEntry, error)
}

// EscrowRepository defines the interface for escrow payment data operations
type EscrowRepository interface {
	// Create persists a new escrow payment
	Create(ctx context.Context, escrow *domain.EscrowPayment) error

	// GetByIDForUpdate retrieves an escrow payment and takes a row lock
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.EscrowPayment, error)

	// GetByRentalID retrieves the escrow payment for a rental
	GetByRentalID(ctx context.Context, rentalID uuid.UUID) (*domain.EscrowPayment, error)

	// MoveFromHeld transitions the escrow out of HELD, setting the release
	// date when given; returns false when the row was no longer HELD
	MoveFromHeld(ctx context.Context, id uuid.UUID, to domain.EscrowStatus, releaseDate *time.Time, at time.Time) (bool, error)
}

// PaymentRepository defines the interface for payment data operations.
// Payments are insert-only; there is no update path.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error

	ListByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*domain.Payment, error)
}

// DisputeRepository defines the interface for dispute data operations
type DisputeRepository interface {
	Create(ctx context.Context, dispute *domain.Dispute) error

	ListByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*domain.Dispute, error)
}

// ProductRepository reads the catalog data the engine depends on: ownership,
// deposit, pricing tiers and blackout dates
type ProductRepository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// GetProductForUpdate retrieves a product and takes a row lock; accepts
	// on the same product serialize behind it
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	GetPricingTier(ctx context.Context, productID uuid.UUID, unit domain.DurationUnit) (*domain.PricingTier, error)

	ListUnavailability(ctx context.Context, productID uuid.UUID) ([]domain.UnavailableEntry, error)
}

// OutboxRepository appends domain events inside the mutating transaction; a
// separate relay process drains the table
type OutboxRepository interface {
	Append(ctx context.Context, event *domain.OutboxEvent) error
}
