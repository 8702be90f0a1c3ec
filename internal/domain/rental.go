package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusPending    RentalStatus = "pending"
	RentalStatusAccepted   RentalStatus = "accepted"
	RentalStatusRejected   RentalStatus = "rejected"
	RentalStatusCancelled  RentalStatus = "cancelled"
	RentalStatusInProgress RentalStatus = "in_progress"
	RentalStatusCompleted  RentalStatus = "completed"
)

type DurationUnit string

const (
	DurationUnitDay   DurationUnit = "day"
	DurationUnitWeek  DurationUnit = "week"
	DurationUnitMonth DurationUnit = "month"
)

// rentalTransitions is the full transition table. Anything absent is an
// invalid transition.
var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusPending:    {RentalStatusAccepted, RentalStatusRejected, RentalStatusCancelled},
	RentalStatusAccepted:   {RentalStatusInProgress, RentalStatusCancelled},
	RentalStatusInProgress: {RentalStatusCompleted},
}

// CanTransition reports whether moving from one rental status to another is
// legal.
func CanTransition(from, to RentalStatus) bool {
	for _, next := range rentalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Rental represents one rental agreement between a renter and a product owner.
// Owner and cost fields are snapshots taken from the product; they never track
// later product edits.
type Rental struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ProductID     uuid.UUID       `json:"product_id" db:"product_id"`
	RenterID      uuid.UUID       `json:"renter_id" db:"renter_id"`
	OwnerID       uuid.UUID       `json:"owner_id" db:"owner_id"`
	StartTime     time.Time       `json:"start_time" db:"start_time"`
	EndTime       time.Time       `json:"end_time" db:"end_time"`
	Duration      int             `json:"duration" db:"duration"`
	DurationUnit  DurationUnit    `json:"duration_unit" db:"duration_unit"`
	TotalCost     decimal.Decimal `json:"total_cost" db:"total_cost"`
	ServiceFee    decimal.Decimal `json:"service_fee" db:"service_fee"`
	Status        RentalStatus    `json:"status" db:"status"`
	Purpose       string          `json:"purpose" db:"purpose"`
	Notes         string          `json:"notes" db:"notes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// StatusHistoryEntry is one row of the append-only rental status log.
type StatusHistoryEntry struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	RentalID  uuid.UUID    `json:"rental_id" db:"rental_id"`
	Seq       int          `json:"seq" db:"seq"`
	Status    RentalStatus `json:"status" db:"status"`
	Note      string       `json:"note" db:"note"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// DTOs for requests and responses

type CreateRentalRequest struct {
	RenterID     uuid.UUID    `json:"renter_id" validate:"required"`
	ProductID    uuid.UUID    `json:"product_id" validate:"required"`
	StartTime    time.Time    `json:"start_time" validate:"required"`
	Duration     int          `json:"duration" validate:"required,gt=0"`
	DurationUnit DurationUnit `json:"duration_unit" validate:"required,oneof=day week month"`
	Purpose      string       `json:"purpose" validate:"max=500"`
	Notes        string       `json:"notes" validate:"max=2000"`
}

type AcceptRentalRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card bank_transfer wallet"`
}

type RejectRentalRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RentalResponse struct {
	Rental  *Rental              `json:"rental"`
	History []StatusHistoryEntry `json:"history,omitempty"`
}

type ListRentalsFilter struct {
	RenterID *uuid.UUID
	OwnerID  *uuid.UUID
	Status   RentalStatus
	Limit    int
	Offset   int
}
