package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rentloop/rental-engine/internal/clock"
	"github.com/rentloop/rental-engine/internal/domain"
	"github.com/rentloop/rental-engine/internal/service"
	customError "github.com/rentloop/rental-engine/pkg/errors"
)

type escrowFixture struct {
	escrowRepo  *MockEscrowRepository
	rentalRepo  *MockRentalRepository
	paymentRepo *MockPaymentRepository
	disputeRepo *MockDisputeRepository
	outboxRepo  *MockOutboxRepository
	svc         *service.EscrowService
}

func newEscrowFixture(now time.Time) *escrowFixture {
	f := &escrowFixture{
		escrowRepo:  new(MockEscrowRepository),
		rentalRepo:  new(MockRentalRepository),
		paymentRepo: new(MockPaymentRepository),
		disputeRepo: new(MockDisputeRepository),
		outboxRepo:  new(MockOutboxRepository),
	}
	f.svc = service.NewEscrowService(passthroughTxManager{}, f.escrowRepo, f.rentalRepo,
		f.paymentRepo, f.disputeRepo, f.outboxRepo, clock.Fixed{T: now})
	return f
}

func heldEscrow(rentalID uuid.UUID) *domain.EscrowPayment {
	return &domain.EscrowPayment{
		ID:         uuid.New(),
		RentalID:   rentalID,
		HeldAmount: decimal.RequireFromString("1700.00"),
		Status:     domain.EscrowStatusHeld,
	}
}

func TestSettle(t *testing.T) {
	ownerID := uuid.New()
	renterID := uuid.New()
	rental := &domain.Rental{ID: uuid.New(), OwnerID: ownerID, RenterID: renterID}

	tests := []struct {
		name              string
		settle            func(*service.EscrowService, context.Context, uuid.UUID) (*domain.Payment, error)
		expectedStatus    domain.EscrowStatus
		expectedPayStatus domain.PaymentStatus
		expectedDirection domain.PaymentDirection
		expectedPayee     uuid.UUID
	}{
		{
			name: "release pays the owner",
			settle: func(s *service.EscrowService, ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
				return s.ReleaseToOwner(ctx, id)
			},
			expectedStatus:    domain.EscrowStatusReleased,
			expectedPayStatus: domain.PaymentStatusCompleted,
			expectedDirection: domain.PaymentDirectionRelease,
			expectedPayee:     ownerID,
		},
		{
			name: "refund pays the renter",
			settle: func(s *service.EscrowService, ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
				return s.RefundToRenter(ctx, id)
			},
			expectedStatus:    domain.EscrowStatusRefunded,
			expectedPayStatus: domain.PaymentStatusRefunded,
			expectedDirection: domain.PaymentDirectionRefund,
			expectedPayee:     renterID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEscrowFixture(testNow)
			escrow := heldEscrow(rental.ID)

			f.escrowRepo.On("GetByIDForUpdate", mock.Anything, escrow.ID).Return(escrow, nil)
			f.rentalRepo.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
			f.escrowRepo.On("MoveFromHeld", mock.Anything, escrow.ID, tt.expectedStatus, mock.MatchedBy(func(at *time.Time) bool {
				return at != nil && at.Equal(testNow)
			}), testNow).Return(true, nil)
			f.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			f.outboxRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

			payment, err := tt.settle(f.svc, context.Background(), escrow.ID)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedPayStatus, payment.Status)
			assert.Equal(t, tt.expectedDirection, payment.Direction)
			assert.Equal(t, tt.expectedPayee, payment.CounterpartyID)
			assert.True(t, payment.Amount.Equal(escrow.HeldAmount))
			assert.Equal(t, "platform_payout", payment.Method)
			f.escrowRepo.AssertExpectations(t)
			f.paymentRepo.AssertExpectations(t)
		})
	}
}

func TestSettleRefusesNonHeldEscrow(t *testing.T) {
	rentalID := uuid.New()

	// Settled and disputed escrows alike: the held amount moves at most once.
	for _, status := range []domain.EscrowStatus{
		domain.EscrowStatusReleased,
		domain.EscrowStatusRefunded,
		domain.EscrowStatusDisputed,
	} {
		t.Run(string(status), func(t *testing.T) {
			escrow := heldEscrow(rentalID)
			escrow.Status = status

			f := newEscrowFixture(testNow)
			f.escrowRepo.On("GetByIDForUpdate", mock.Anything, escrow.ID).Return(escrow, nil)

			_, releaseErr := f.svc.ReleaseToOwner(context.Background(), escrow.ID)
			_, refundErr := f.svc.RefundToRenter(context.Background(), escrow.ID)

			assert.ErrorIs(t, releaseErr, customError.ErrNotHeld)
			assert.ErrorIs(t, refundErr, customError.ErrNotHeld)
			f.escrowRepo.AssertNotCalled(t, "MoveFromHeld", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestSettleEscrowNotFound(t *testing.T) {
	f := newEscrowFixture(testNow)
	escrowID := uuid.New()
	f.escrowRepo.On("GetByIDForUpdate", mock.Anything, escrowID).Return(nil, sql.ErrNoRows)

	_, err := f.svc.ReleaseToOwner(context.Background(), escrowID)

	assert.ErrorIs(t, err, customError.ErrEscrowNotFound)
}

func TestSettleReportsLostGuard(t *testing.T) {
	rental := &domain.Rental{ID: uuid.New(), OwnerID: uuid.New(), RenterID: uuid.New()}
	escrow := heldEscrow(rental.ID)

	f := newEscrowFixture(testNow)
	f.escrowRepo.On("GetByIDForUpdate", mock.Anything, escrow.ID).Return(escrow, nil)
	f.rentalRepo.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
	f.escrowRepo.On("MoveFromHeld", mock.Anything, escrow.ID, domain.EscrowStatusReleased, mock.Anything, testNow).
		Return(false, nil)

	_, err := f.svc.ReleaseToOwner(context.Background(), escrow.ID)

	assert.ErrorIs(t, err, customError.ErrInvariantViolation)
	f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDispute(t *testing.T) {
	rentalID := uuid.New()
	raisedBy := uuid.New()

	t.Run("Success - freezes funds without a payment", func(t *testing.T) {
		f := newEscrowFixture(testNow)
		escrow := heldEscrow(rentalID)

		f.escrowRepo.On("GetByIDForUpdate", mock.Anything, escrow.ID).Return(escrow, nil)
		f.escrowRepo.On("MoveFromHeld", mock.Anything, escrow.ID, domain.EscrowStatusDisputed, (*time.Time)(nil), testNow).
			Return(true, nil)
		f.disputeRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Dispute) bool {
			return d.EscrowID == escrow.ID && d.RaisedBy == raisedBy && d.Status == domain.DisputeStatusOpen
		})).Return(nil)
		f.outboxRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.OutboxEvent) bool {
			return e.Name == domain.EventEscrowDisputed
		})).Return(nil)

		dispute, err := f.svc.Dispute(context.Background(), escrow.ID, raisedBy, "item returned damaged")

		assert.NoError(t, err)
		assert.Equal(t, domain.DisputeStatusOpen, dispute.Status)
		assert.Equal(t, "item returned damaged", dispute.Reason)
		f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.disputeRepo.AssertExpectations(t)
	})

	t.Run("Failure - cannot dispute a settled escrow", func(t *testing.T) {
		f := newEscrowFixture(testNow)
		escrow := heldEscrow(rentalID)
		escrow.Status = domain.EscrowStatusReleased
		f.escrowRepo.On("GetByIDForUpdate", mock.Anything, escrow.ID).Return(escrow, nil)

		_, err := f.svc.Dispute(context.Background(), escrow.ID, raisedBy, "too late")

		assert.ErrorIs(t, err, customError.ErrNotHeld)
		f.disputeRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetByRentalID(t *testing.T) {
	rentalID := uuid.New()

	t.Run("Success - escrow with payments and disputes", func(t *testing.T) {
		f := newEscrowFixture(testNow)
		escrow := heldEscrow(rentalID)

		f.escrowRepo.On("GetByRentalID", mock.Anything, rentalID).Return(escrow, nil)
		f.paymentRepo.On("ListByEscrowID", mock.Anything, escrow.ID).
			Return([]*domain.Payment{{ID: uuid.New(), EscrowID: &escrow.ID}}, nil)
		f.disputeRepo.On("ListByEscrowID", mock.Anything, escrow.ID).
			Return([]*domain.Dispute{}, nil)

		response, err := f.svc.GetByRentalID(context.Background(), rentalID)

		assert.NoError(t, err)
		assert.Equal(t, escrow.ID, response.Escrow.ID)
		assert.Len(t, response.Payments, 1)
		assert.Empty(t, response.Disputes)
	})

	t.Run("Failure - no escrow for the rental", func(t *testing.T) {
		f := newEscrowFixture(testNow)
		f.escrowRepo.On("GetByRentalID", mock.Anything, rentalID).Return(nil, sql.ErrNoRows)

		_, err := f.svc.GetByRentalID(context.Background(), rentalID)

		assert.ErrorIs(t, err, customError.ErrEscrowNotFound)
	})
}
