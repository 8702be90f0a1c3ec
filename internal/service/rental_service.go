package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/rentloop/rental-engine/internal/clock"
	"github.com/rentloop/rental-engine/internal/domain"
	"github.com/rentloop/rental-engine/internal/repository"
	customError "github.com/rentloop/rental-engine/pkg/errors"
	"github.com/rentloop/rental-engine/pkg/utils"
)

// RentalService owns the rental lifecycle. Every mutating operation runs as
// one transaction, appends one history entry and emits one domain event per
// state change; escrow movements ride the same transaction.
type RentalService struct {
	txm          repository.TxManager
	rentalRepo   repository.RentalRepository
	escrowRepo   repository.EscrowRepository
	productRepo  repository.ProductRepository
	outboxRepo   repository.OutboxRepository
	availability *AvailabilityChecker
	pricing      *CostCalculator
	escrow       *EscrowService
	gateway      PaymentGateway
	clock        clock.Clock
}

func NewRentalService(
	txm repository.TxManager,
	rentalRepo repository.RentalRepository,
	escrowRepo repository.EscrowRepository,
	productRepo repository.ProductRepository,
	outboxRepo repository.OutboxRepository,
	availability *AvailabilityChecker,
	pricing *CostCalculator,
	escrow *EscrowService,
	gateway PaymentGateway,
	clk clock.Clock,
) *RentalService {
	return &RentalService{
		txm:          txm,
		rentalRepo:   rentalRepo,
		escrowRepo:   escrowRepo,
		productRepo:  productRepo,
		outboxRepo:   outboxRepo,
		availability: availability,
		pricing:      pricing,
		escrow:       escrow,
		gateway:      gateway,
		clock:        clk,
	}
}

// CreateRental validates the request and persists a pending rental. Nothing
// is written unless every precondition holds.
func (s *RentalService) CreateRental(ctx context.Context, request *domain.CreateRentalRequest) (*domain.Rental, error) {
	product, err := s.productRepo.GetProduct(ctx, request.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapProductNotFound(request.ProductID.String())
		}
		return nil, wrapStoreError(err)
	}

	if request.RenterID == product.OwnerID {
		return nil, customError.WrapOwnRental(request.ProductID.String())
	}

	// Tier lookup doubles as the duration-unit validation: a unit the product
	// does not price is a unit it does not rent in.
	if _, err := s.pricing.Tier(ctx, request.ProductID, request.DurationUnit); err != nil {
		return nil, err
	}

	endTime := utils.ComputeEndTime(request.StartTime, request.Duration, string(request.DurationUnit))

	now := s.clock.Now()
	if request.StartTime.Before(now) {
		return nil, customError.WrapStartInPast()
	}
	if !request.StartTime.Before(endTime) {
		return nil, customError.WrapInvalidWindow("start time must be before end time")
	}

	if !s.availability.IsAvailable(ctx, request.ProductID, request.StartTime, endTime, nil) {
		return nil, customError.WrapUnavailable(request.ProductID.String())
	}

	totalCost, serviceFee, err := s.pricing.Calculate(ctx, request.ProductID, request.DurationUnit, request.Duration)
	if err != nil {
		return nil, err
	}

	rental := &domain.Rental{
		ID:           uuid.New(),
		ProductID:    request.ProductID,
		RenterID:     request.RenterID,
		OwnerID:      product.OwnerID,
		StartTime:    request.StartTime,
		EndTime:      endTime,
		Duration:     request.Duration,
		DurationUnit: request.DurationUnit,
		TotalCost:    totalCost,
		ServiceFee:   serviceFee,
		Status:       domain.RentalStatusPending,
		Purpose:      request.Purpose,
		Notes:        request.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.txm.WithTx(ctx, func(ctx context.Context) error {
		if err := s.rentalRepo.Create(ctx, rental); err != nil {
			return wrapStoreError(err)
		}
		if err := s.appendHistory(ctx, rental.ID, domain.RentalStatusPending, "created"); err != nil {
			return err
		}
		return s.emit(ctx, domain.EventRentalCreated, rental.ID, rental)
	})
	if err != nil {
		return nil, err
	}

	return rental, nil
}

// Accept moves a pending rental to accepted, re-validates availability and
// places the renter's funds in escrow, all in one transaction. On an
// availability conflict the rental stays pending so the owner can reject it.
func (s *RentalService) Accept(ctx context.Context, rentalID, actorID uuid.UUID, request *domain.AcceptRentalRequest) (*domain.Rental, error) {
	var rental *domain.Rental

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rental, err = s.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}

		if rental.OwnerID != actorID {
			return customError.WrapUnauthorizedActor(actorID.String())
		}
		if rental.Status != domain.RentalStatusPending {
			return customError.WrapInvalidTransition(string(rental.Status), string(domain.RentalStatusAccepted))
		}

		// The product row lock serializes accepts across rentals of the same
		// product: a concurrent accept blocks here until this transaction
		// commits, and its overlap re-check then sees the accepted row.
		product, err := s.productRepo.GetProductForUpdate(ctx, rental.ProductID)
		if err != nil {
			return wrapStoreError(err)
		}

		// Another rental may have been accepted for an overlapping window
		// since this one was created.
		if !s.availability.IsAvailable(ctx, rental.ProductID, rental.StartTime, rental.EndTime, &rental.ID) {
			return customError.WrapUnavailable(rental.ProductID.String())
		}

		heldAmount := rental.TotalCost.Add(product.SecurityDeposit)

		gatewayRef, err := s.gateway.Submit(ctx, heldAmount, rental.RenterID)
		if err != nil {
			return customError.WrapGatewayError(err)
		}

		if err := s.transition(ctx, rental, domain.RentalStatusAccepted, "accepted by owner"); err != nil {
			return err
		}

		now := s.clock.Now()
		escrow := &domain.EscrowPayment{
			ID:         uuid.New(),
			RentalID:   rental.ID,
			HeldAmount: heldAmount,
			Status:     domain.EscrowStatusHeld,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		funding := &domain.Payment{
			ID:             uuid.New(),
			RentalID:       rental.ID,
			CounterpartyID: rental.RenterID,
			Amount:         heldAmount,
			Method:         request.PaymentMethod,
			Direction:      domain.PaymentDirectionFunding,
			Status:         domain.PaymentStatusProcessing,
			GatewayRef:     gatewayRef,
			CreatedAt:      now,
		}
		if err := s.escrow.Hold(ctx, rental, escrow, funding); err != nil {
			return err
		}

		return s.emit(ctx, domain.EventRentalAccepted, rental.ID, rental)
	})
	if err != nil {
		return nil, err
	}

	return rental, nil
}

// Reject moves a pending rental to rejected, recording the owner's reason.
func (s *RentalService) Reject(ctx context.Context, rentalID, actorID uuid.UUID, reason string) (*domain.Rental, error) {
	var rental *domain.Rental

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rental, err = s.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}

		if rental.OwnerID != actorID {
			return customError.WrapUnauthorizedActor(actorID.String())
		}
		if rental.Status != domain.RentalStatusPending {
			return customError.WrapInvalidTransition(string(rental.Status), string(domain.RentalStatusRejected))
		}

		if err := s.transition(ctx, rental, domain.RentalStatusRejected, reason); err != nil {
			return err
		}
		return s.emit(ctx, domain.EventRentalRejected, rental.ID, rental)
	})
	if err != nil {
		return nil, err
	}

	return rental, nil
}

// Cancel lets the renter withdraw before the rental starts. An accepted
// rental's escrow is refunded in the same transaction.
func (s *RentalService) Cancel(ctx context.Context, rentalID, actorID uuid.UUID) (*domain.Rental, error) {
	var rental *domain.Rental

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rental, err = s.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}

		if rental.RenterID != actorID {
			return customError.WrapUnauthorizedActor(actorID.String())
		}
		if rental.Status != domain.RentalStatusPending && rental.Status != domain.RentalStatusAccepted {
			return customError.WrapInvalidTransition(string(rental.Status), string(domain.RentalStatusCancelled))
		}
		if !s.clock.Now().Before(rental.StartTime) {
			return customError.WrapAlreadyStarted(rental.ID.String())
		}

		if rental.Status == domain.RentalStatusAccepted {
			escrow, err := s.escrowRepo.GetByRentalID(ctx, rental.ID)
			if err != nil {
				return wrapStoreError(err)
			}
			if _, err := s.escrow.RefundToRenter(ctx, escrow.ID); err != nil {
				return err
			}
		}

		if err := s.transition(ctx, rental, domain.RentalStatusCancelled, "cancelled by renter"); err != nil {
			return err
		}
		return s.emit(ctx, domain.EventRentalCancelled, rental.ID, rental)
	})
	if err != nil {
		return nil, err
	}

	return rental, nil
}

// Begin moves an accepted rental to in_progress once its start time has
// passed. Invoked by the scheduler; safe to call early, it just refuses.
func (s *RentalService) Begin(ctx context.Context, rentalID uuid.UUID) (*domain.Rental, error) {
	var rental *domain.Rental

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rental, err = s.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}

		if rental.Status != domain.RentalStatusAccepted {
			return customError.WrapInvalidTransition(string(rental.Status), string(domain.RentalStatusInProgress))
		}
		if s.clock.Now().Before(rental.StartTime) {
			return customError.WrapNotStarted(rental.ID.String())
		}

		if err := s.transition(ctx, rental, domain.RentalStatusInProgress, "rental period started"); err != nil {
			return err
		}
		return s.emit(ctx, domain.EventRentalStarted, rental.ID, rental)
	})
	if err != nil {
		return nil, err
	}

	return rental, nil
}

// Complete closes an in-progress rental and releases the escrow to the owner
// in the same transaction.
func (s *RentalService) Complete(ctx context.Context, rentalID, actorID uuid.UUID) (*domain.Rental, error) {
	var rental *domain.Rental

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rental, err = s.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}

		if rental.OwnerID != actorID {
			return customError.WrapUnauthorizedActor(actorID.String())
		}
		if rental.Status != domain.RentalStatusInProgress {
			return customError.WrapInvalidTransition(string(rental.Status), string(domain.RentalStatusCompleted))
		}

		escrow, err := s.escrowRepo.GetByRentalID(ctx, rental.ID)
		if err != nil {
			return wrapStoreError(err)
		}
		if _, err := s.escrow.ReleaseToOwner(ctx, escrow.ID); err != nil {
			return err
		}

		if err := s.transition(ctx, rental, domain.RentalStatusCompleted, "completed by owner"); err != nil {
			return err
		}
		return s.emit(ctx, domain.EventRentalCompleted, rental.ID, rental)
	})
	if err != nil {
		return nil, err
	}

	return rental, nil
}

// StartDueRentals begins every accepted rental whose start time has passed.
// Failures are logged and left for the next scheduler tick.
func (s *RentalService) StartDueRentals(ctx context.Context, limit int) (int, error) {
	due, err := s.rentalRepo.ListDueToStart(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, wrapStoreError(err)
	}

	started := 0
	for _, rental := range due {
		if _, err := s.Begin(ctx, rental.ID); err != nil {
			log.Printf("failed to start rental %s: %v", rental.ID, err)
			continue
		}
		started++
	}

	return started, nil
}

// GetRental returns a rental with its status history.
func (s *RentalService) GetRental(ctx context.Context, rentalID uuid.UUID) (*domain.RentalResponse, error) {
	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapRentalNotFound(rentalID.String())
		}
		return nil, wrapStoreError(err)
	}

	history, err := s.rentalRepo.ListHistory(ctx, rentalID)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	return &domain.RentalResponse{Rental: rental, History: history}, nil
}

// ListRentals returns rentals matching the filter.
func (s *RentalService) ListRentals(ctx context.Context, filter domain.ListRentalsFilter) ([]*domain.Rental, error) {
	rentals, err := s.rentalRepo.List(ctx, filter)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return rentals, nil
}

// lockRental loads a rental under a row lock inside the current transaction.
func (s *RentalService) lockRental(ctx context.Context, rentalID uuid.UUID) (*domain.Rental, error) {
	rental, err := s.rentalRepo.GetByIDForUpdate(ctx, rentalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapRentalNotFound(rentalID.String())
		}
		return nil, wrapStoreError(err)
	}
	return rental, nil
}

// transition applies a guarded status update and appends the history entry.
func (s *RentalService) transition(ctx context.Context, rental *domain.Rental, to domain.RentalStatus, note string) error {
	if !domain.CanTransition(rental.Status, to) {
		return customError.WrapInvalidTransition(string(rental.Status), string(to))
	}

	now := s.clock.Now()
	ok, err := s.rentalRepo.UpdateStatus(ctx, rental.ID, rental.Status, to, now)
	if err != nil {
		return wrapStoreError(err)
	}
	if !ok {
		// Unreachable while the row lock is held; a hit means the guard and
		// the lock disagree about the row.
		return customError.WrapInvalidTransition(string(rental.Status), string(to))
	}

	rental.Status = to
	rental.UpdatedAt = now
	return s.appendHistory(ctx, rental.ID, to, note)
}

func (s *RentalService) appendHistory(ctx context.Context, rentalID uuid.UUID, status domain.RentalStatus, note string) error {
	entry := &domain.StatusHistoryEntry{
		ID:        uuid.New(),
		RentalID:  rentalID,
		Status:    status,
		Note:      note,
		CreatedAt: s.clock.Now(),
	}
	if err := s.rentalRepo.AppendHistory(ctx, entry); err != nil {
		return wrapStoreError(err)
	}
	return nil
}

func (s *RentalService) emit(ctx context.Context, name string, aggregateID uuid.UUID, payload interface{}) error {
	event := domain.NewOutboxEvent(name, aggregateID, payload)
	event.CreatedAt = s.clock.Now()
	if err := s.outboxRepo.Append(ctx, event); err != nil {
		return wrapStoreError(err)
	}
	return nil
}
