package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrRentalNotFound     = errors.New("rental not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrEscrowNotFound     = errors.New("escrow payment not found")
	ErrNoPricingTier      = errors.New("no pricing tier for duration unit")
	ErrDurationExceedsMax = errors.New("duration exceeds maximum rental period")
	ErrOwnRental          = errors.New("owners cannot rent their own product")
	ErrInvalidWindow      = errors.New("invalid rental time window")
	ErrStartInPast        = errors.New("rental start time is in the past")
	ErrUnavailable        = errors.New("product is not available for the requested window")
	ErrInvalidTransition  = errors.New("invalid rental status transition")
	ErrAlreadyStarted     = errors.New("rental has already started")
	ErrNotStarted         = errors.New("rental start time has not been reached")
	ErrInvariantViolation = errors.New("ledger invariant violated")
	ErrNotHeld            = errors.New("escrow is not in held status")
	ErrUnauthorizedActor  = errors.New("actor is not permitted to perform this operation")
	ErrStoreUnavailable   = errors.New("storage temporarily unavailable")
)

// Kind classifies a business error so callers can branch on retry and
// status-code policy without string matching.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindTransient  Kind = "transient"
	KindInternal   Kind = "internal"
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Kind    Kind
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the whole operation from scratch is
// safe. Only transient infrastructure failures qualify; nothing was committed.
func (e *BusinessError) Retryable() bool {
	return e.Kind == KindTransient
}

// NewBusinessError creates a new business error
func NewBusinessError(code string, kind Kind, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf extracts the kind from any error, defaulting to internal.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// Error codes
const (
	ErrCodeRentalNotFound     = "RENTAL_NOT_FOUND"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeEscrowNotFound     = "ESCROW_NOT_FOUND"
	ErrCodeNoPricingTier      = "NO_PRICING_TIER"
	ErrCodeDurationExceedsMax = "DURATION_EXCEEDS_MAX"
	ErrCodeOwnRental          = "OWN_RENTAL"
	ErrCodeInvalidWindow      = "INVALID_WINDOW"
	ErrCodeStartInPast        = "START_IN_PAST"
	ErrCodeUnavailable        = "UNAVAILABLE"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeAlreadyStarted     = "ALREADY_STARTED"
	ErrCodeNotStarted         = "NOT_STARTED"
	ErrCodeInvariantViolation = "INVARIANT_VIOLATION"
	ErrCodeNotHeld            = "ESCROW_NOT_HELD"
	ErrCodeUnauthorizedActor  = "UNAUTHORIZED_ACTOR"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeGatewayError       = "GATEWAY_ERROR"
	ErrCodeStoreTimeout       = "STORE_TIMEOUT"
)

// Wrap common errors with business context

func WrapRentalNotFound(rentalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeRentalNotFound,
		KindNotFound,
		fmt.Sprintf("Rental with ID %s not found", rentalID),
		ErrRentalNotFound,
	)
}

func WrapProductNotFound(productID string) *BusinessError {
	return NewBusinessError(
		ErrCodeProductNotFound,
		KindNotFound,
		fmt.Sprintf("Product with ID %s not found", productID),
		ErrProductNotFound,
	)
}

func WrapEscrowNotFound(escrowID string) *BusinessError {
	return NewBusinessError(
		ErrCodeEscrowNotFound,
		KindNotFound,
		fmt.Sprintf("Escrow payment with ID %s not found", escrowID),
		ErrEscrowNotFound,
	)
}

func WrapNoPricingTier(productID, durationUnit string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoPricingTier,
		KindValidation,
		fmt.Sprintf("Product %s has no pricing tier for unit %q", productID, durationUnit),
		ErrNoPricingTier,
	)
}

func WrapDurationExceedsMax(duration, maxPeriod int) *BusinessError {
	return NewBusinessError(
		ErrCodeDurationExceedsMax,
		KindValidation,
		fmt.Sprintf("Requested duration %d exceeds maximum period %d", duration, maxPeriod),
		ErrDurationExceedsMax,
	)
}

func WrapOwnRental(productID string) *BusinessError {
	return NewBusinessError(
		ErrCodeOwnRental,
		KindValidation,
		fmt.Sprintf("Renter owns product %s and cannot rent it", productID),
		ErrOwnRental,
	)
}

func WrapInvalidWindow(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidWindow,
		KindValidation,
		message,
		ErrInvalidWindow,
	)
}

func WrapStartInPast() *BusinessError {
	return NewBusinessError(
		ErrCodeStartInPast,
		KindValidation,
		"Rental start time must not be in the past",
		ErrStartInPast,
	)
}

func WrapUnavailable(productID string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnavailable,
		KindConflict,
		fmt.Sprintf("Product %s is not available for the requested window", productID),
		ErrUnavailable,
	)
}

func WrapInvalidTransition(from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		KindConflict,
		fmt.Sprintf("Cannot transition rental from %s to %s", from, to),
		ErrInvalidTransition,
	)
}

func WrapAlreadyStarted(rentalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyStarted,
		KindConflict,
		fmt.Sprintf("Rental %s has already started and cannot be cancelled", rentalID),
		ErrAlreadyStarted,
	)
}

func WrapNotStarted(rentalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotStarted,
		KindConflict,
		fmt.Sprintf("Rental %s has not reached its start time", rentalID),
		ErrNotStarted,
	)
}

// WrapInvariantViolation marks a state the precondition checks should have
// made impossible. Callers must treat it as fatal, not retry it.
func WrapInvariantViolation(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvariantViolation,
		KindInternal,
		message,
		ErrInvariantViolation,
	)
}

func WrapNotHeld(escrowID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotHeld,
		KindConflict,
		fmt.Sprintf("Escrow %s is in status %s, funds can only move from HELD", escrowID, status),
		ErrNotHeld,
	)
}

func WrapUnauthorizedActor(actorID string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnauthorizedActor,
		KindValidation,
		fmt.Sprintf("User %s is not permitted to perform this operation", actorID),
		ErrUnauthorizedActor,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		KindTransient,
		"database operation failed",
		err,
	)
}

func WrapGatewayError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeGatewayError,
		KindTransient,
		"payment gateway request failed",
		err,
	)
}

func WrapStoreTimeout(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStoreTimeout,
		KindTransient,
		"storage did not respond in time",
		errors.Join(ErrStoreUnavailable, err),
	)
}
