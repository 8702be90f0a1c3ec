package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rentloop/rental-engine/internal/clock"
	"github.com/rentloop/rental-engine/internal/domain"
	"github.com/rentloop/rental-engine/internal/repository"
	customError "github.com/rentloop/rental-engine/pkg/errors"
)

// EscrowService is the ledger for held rental funds. A held amount moves out
// of HELD exactly once: release to the owner, refund to the renter, or a
// dispute freeze. Every movement runs inside one transaction with the status
// change that authorizes it.
type EscrowService struct {
	txm         repository.TxManager
	escrowRepo  repository.EscrowRepository
	rentalRepo  repository.RentalRepository
	paymentRepo repository.PaymentRepository
	disputeRepo repository.DisputeRepository
	outboxRepo  repository.OutboxRepository
	clock       clock.Clock
}

func NewEscrowService(
	txm repository.TxManager,
	escrowRepo repository.EscrowRepository,
	rentalRepo repository.RentalRepository,
	paymentRepo repository.PaymentRepository,
	disputeRepo repository.DisputeRepository,
	outboxRepo repository.OutboxRepository,
	clk clock.Clock,
) *EscrowService {
	return &EscrowService{
		txm:         txm,
		escrowRepo:  escrowRepo,
		rentalRepo:  rentalRepo,
		paymentRepo: paymentRepo,
		disputeRepo: disputeRepo,
		outboxRepo:  outboxRepo,
		clock:       clk,
	}
}

// Hold creates the escrow record and the funding payment row for an accepted
// rental. Must be called inside the acceptance transaction.
func (s *EscrowService) Hold(ctx context.Context, rental *domain.Rental, escrow *domain.EscrowPayment, funding *domain.Payment) error {
	return s.txm.WithTx(ctx, func(ctx context.Context) error {
		if err := s.escrowRepo.Create(ctx, escrow); err != nil {
			return wrapStoreError(err)
		}
		funding.EscrowID = &escrow.ID
		if err := s.paymentRepo.Create(ctx, funding); err != nil {
			return wrapStoreError(err)
		}
		event := domain.NewOutboxEvent(domain.EventEscrowHeld, escrow.ID, escrow)
		event.CreatedAt = s.clock.Now()
		if err := s.outboxRepo.Append(ctx, event); err != nil {
			return wrapStoreError(err)
		}
		return nil
	})
}

// ReleaseToOwner moves the held amount to the product owner once the rental
// completes.
func (s *EscrowService) ReleaseToOwner(ctx context.Context, escrowID uuid.UUID) (*domain.Payment, error) {
	return s.settle(ctx, escrowID, domain.EscrowStatusReleased)
}

// RefundToRenter returns the held amount to the renter after a cancellation
// before the rental start.
func (s *EscrowService) RefundToRenter(ctx context.Context, escrowID uuid.UUID) (*domain.Payment, error) {
	return s.settle(ctx, escrowID, domain.EscrowStatusRefunded)
}

func (s *EscrowService) settle(ctx context.Context, escrowID uuid.UUID, to domain.EscrowStatus) (*domain.Payment, error) {
	var payment *domain.Payment

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		escrow, err := s.escrowRepo.GetByIDForUpdate(ctx, escrowID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapEscrowNotFound(escrowID.String())
			}
			return wrapStoreError(err)
		}

		if escrow.Status != domain.EscrowStatusHeld {
			return customError.WrapNotHeld(escrowID.String(), string(escrow.Status))
		}

		rental, err := s.rentalRepo.GetByID(ctx, escrow.RentalID)
		if err != nil {
			return wrapStoreError(err)
		}

		now := s.clock.Now()
		moved, err := s.escrowRepo.MoveFromHeld(ctx, escrowID, to, &now, now)
		if err != nil {
			return wrapStoreError(err)
		}
		if !moved {
			// The row lock above makes this unreachable; if it ever fires the
			// ledger state must be inspected, not retried.
			return customError.WrapInvariantViolation("escrow left HELD between lock and update")
		}

		payment = s.settlementPayment(escrow, rental, to, now)
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return wrapStoreError(err)
		}

		eventName := domain.EventEscrowReleased
		if to == domain.EscrowStatusRefunded {
			eventName = domain.EventEscrowRefunded
		}
		event := domain.NewOutboxEvent(eventName, escrow.ID, payment)
		event.CreatedAt = now
		if err := s.outboxRepo.Append(ctx, event); err != nil {
			return wrapStoreError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// settlementPayment builds the outbound Payment row for a release or refund.
// The payout method is the platform's, independent of the funding method.
func (s *EscrowService) settlementPayment(escrow *domain.EscrowPayment, rental *domain.Rental, to domain.EscrowStatus, now time.Time) *domain.Payment {
	payment := &domain.Payment{
		ID:        uuid.New(),
		RentalID:  rental.ID,
		EscrowID:  &escrow.ID,
		Amount:    escrow.HeldAmount,
		Method:    "platform_payout",
		CreatedAt: now,
	}

	if to == domain.EscrowStatusRefunded {
		payment.CounterpartyID = rental.RenterID
		payment.Direction = domain.PaymentDirectionRefund
		payment.Status = domain.PaymentStatusRefunded
	} else {
		payment.CounterpartyID = rental.OwnerID
		payment.Direction = domain.PaymentDirectionRelease
		payment.Status = domain.PaymentStatusCompleted
	}

	return payment
}

// Dispute freezes a held escrow. No payment is created; funds stay frozen
// until an external resolution process acts on the record.
func (s *EscrowService) Dispute(ctx context.Context, escrowID, raisedBy uuid.UUID, reason string) (*domain.Dispute, error) {
	var dispute *domain.Dispute

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		escrow, err := s.escrowRepo.GetByIDForUpdate(ctx, escrowID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapEscrowNotFound(escrowID.String())
			}
			return wrapStoreError(err)
		}

		if escrow.Status != domain.EscrowStatusHeld {
			return customError.WrapNotHeld(escrowID.String(), string(escrow.Status))
		}

		now := s.clock.Now()
		moved, err := s.escrowRepo.MoveFromHeld(ctx, escrowID, domain.EscrowStatusDisputed, nil, now)
		if err != nil {
			return wrapStoreError(err)
		}
		if !moved {
			return customError.WrapInvariantViolation("escrow left HELD between lock and update")
		}

		dispute = &domain.Dispute{
			ID:        uuid.New(),
			EscrowID:  escrowID,
			RaisedBy:  raisedBy,
			Reason:    reason,
			Status:    domain.DisputeStatusOpen,
			CreatedAt: now,
		}
		if err := s.disputeRepo.Create(ctx, dispute); err != nil {
			return wrapStoreError(err)
		}

		event := domain.NewOutboxEvent(domain.EventEscrowDisputed, escrowID, dispute)
		event.CreatedAt = now
		if err := s.outboxRepo.Append(ctx, event); err != nil {
			return wrapStoreError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return dispute, nil
}

// GetByRentalID returns the escrow with its payments and disputes.
func (s *EscrowService) GetByRentalID(ctx context.Context, rentalID uuid.UUID) (*domain.EscrowResponse, error) {
	escrow, err := s.escrowRepo.GetByRentalID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapEscrowNotFound(rentalID.String())
		}
		return nil, wrapStoreError(err)
	}

	payments, err := s.paymentRepo.ListByEscrowID(ctx, escrow.ID)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	disputes, err := s.disputeRepo.ListByEscrowID(ctx, escrow.ID)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	return &domain.EscrowResponse{
		Escrow:   escrow,
		Payments: payments,
		Disputes: disputes,
	}, nil
}
