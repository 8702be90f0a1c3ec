package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowStatusHeld     EscrowStatus = "HELD"
	EscrowStatusReleased EscrowStatus = "RELEASED"
	EscrowStatusRefunded EscrowStatus = "REFUNDED"
	EscrowStatusDisputed EscrowStatus = "DISPUTED"
)

// EscrowPayment holds the renter's funds between acceptance and settlement.
// Exactly one outbound movement ever leaves HELD: release, refund, or a
// dispute freeze.
type EscrowPayment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	RentalID    uuid.UUID       `json:"rental_id" db:"rental_id"`
	HeldAmount  decimal.Decimal `json:"held_amount" db:"held_amount"`
	Status      EscrowStatus    `json:"status" db:"status"`
	ReleaseDate *time.Time      `json:"release_date,omitempty" db:"release_date"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

type PaymentDirection string

const (
	PaymentDirectionFunding PaymentDirection = "funding"
	PaymentDirectionRelease PaymentDirection = "release"
	PaymentDirectionRefund  PaymentDirection = "refund"
)

// Payment is an immutable record of one money movement. A reversal is a new
// Payment, never a mutation of an existing one. CounterpartyID is the user on
// the other side of the platform: the payer for funding, the payee for
// release and refund.
type Payment struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	RentalID       uuid.UUID        `json:"rental_id" db:"rental_id"`
	EscrowID       *uuid.UUID       `json:"escrow_id,omitempty" db:"escrow_id"`
	CounterpartyID uuid.UUID        `json:"counterparty_id" db:"counterparty_id"`
	Amount         decimal.Decimal  `json:"amount" db:"amount"`
	Method         string           `json:"method" db:"method"`
	Direction      PaymentDirection `json:"direction" db:"direction"`
	Status         PaymentStatus    `json:"status" db:"status"`
	GatewayRef     string           `json:"gateway_ref,omitempty" db:"gateway_ref"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

type DisputeStatus string

const (
	DisputeStatusOpen DisputeStatus = "OPEN"
)

// Dispute freezes a held escrow until an external resolution process acts.
type Dispute struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	EscrowID  uuid.UUID     `json:"escrow_id" db:"escrow_id"`
	RaisedBy  uuid.UUID     `json:"raised_by" db:"raised_by"`
	Reason    string        `json:"reason" db:"reason"`
	Status    DisputeStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

type DisputeEscrowRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type EscrowResponse struct {
	Escrow   *EscrowPayment `json:"escrow"`
	Payments []*Payment     `json:"payments,omitempty"`
	Disputes []*Dispute     `json:"disputes,omitempty"`
}
