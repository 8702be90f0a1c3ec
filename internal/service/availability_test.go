package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rentloop/rental-engine/internal/domain"
	"github.com/rentloop/rental-engine/internal/service"
)

func TestIsAvailable(t *testing.T) {
	productID := uuid.New()
	start := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 5, 12, 0, 0, 0, time.UTC)

	activeRental := func(from, to time.Time) *domain.Rental {
		return &domain.Rental{
			ID:        uuid.New(),
			ProductID: productID,
			StartTime: from,
			EndTime:   to,
			Status:    domain.RentalStatusAccepted,
		}
	}
	singleDate := func(d time.Time) domain.UnavailableEntry {
		return domain.UnavailableEntry{ID: uuid.New(), ProductID: productID, Date: &d}
	}
	rangeEntry := func(from, to time.Time) domain.UnavailableEntry {
		return domain.UnavailableEntry{ID: uuid.New(), ProductID: productID, IsRange: true, RangeStart: &from, RangeEnd: &to}
	}

	tests := []struct {
		name       string
		setupMocks func(*MockRentalRepository, *MockProductRepository)
		expected   bool
	}{
		{
			name: "available when nothing conflicts",
			setupMocks: func(rentalRepo *MockRentalRepository, productRepo *MockProductRepository) {
				productRepo.On("GetProduct", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
				rentalRepo.On("ListActive", mock.Anything, productID).Return([]*domain.Rental{}, nil)
				productRepo.On("ListUnavailability", mock.Anything, productID).Return([]domain.UnavailableEntry{}, nil)
			},
			expected: true,
		},
		{
			name: "unavailable when an accepted rental overlaps",
			setupMocks: func(rentalRepo *MockRentalRepository, productRepo *MockProductRepository) {
				productRepo.On("GetProduct", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
				rentalRepo.On("ListActive", mock.Anything, productID).
					Return([]*domain.Rental{activeRental(
						time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
						time.Date(2025, 7, 8, 0, 0, 0, 0, time.UTC),
					)}, nil)
			},
			expected: false,
		},
		{
			name: "available when an active rental ends exactly at the window start",
			setupMocks: func(rentalRepo *MockRentalRepository, productRepo *MockProductRepository) {
				productRepo.On("GetProduct", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
				rentalRepo.On("ListActive", mock.Anything, productID).
					Return([]*domain.Rental{activeRental(
						time.Date(2025, 6, 27, 12, 0, 0, 0, time.UTC),
						start,
					)}, nil)
				productRepo.On("ListUnavailability", mock.Anything, productID).Return([]domain.UnavailableEntry{}, nil)
			},
			expected: true,
		},
		{
			name: "unavailable when a blackout date falls inside the window",
			setupMocks: func(rentalRepo *MockRentalRepository, productRepo *MockProductRepository) {
				productRepo.On("GetProduct", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
				rentalRepo.On("ListActive", mock.Anything, productID).Return([]*domain.Rental{}, nil)
				productRepo.On("ListUnavailability", mock.Anything, productID).
					Return([]domain.UnavailableEntry{singleDate(time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC))}, nil)
			},
			expected: false,
		},
		{
			name: "unavailable when a blackout range intersects the window",
			setupMocks: func(rentalRepo *MockRentalRepository, productRepo *MockProductRepository) {
				productRepo.On("GetProduct", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
				rentalRepo.On("ListActive", mock.Anything, productID).Return([]*domain.Rental{}, nil)
				productRepo.On("ListUnavailability", mock.Anything, productID).
					Return([]domain.UnavailableEntry{rangeEntry(
						time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
						time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
					)}, nil)
			},
			expected: false,
		},
		{
			name: "available when blackout range ends before the window",
			setupMocks: func(rentalRepo *MockRentalRepository, productRepo *MockProductRepository) {
				productRepo.On("GetProduct", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
				rentalRepo.On("ListActive", mock.Anything, productID).Return([]*domain.Rental{}, nil)
				productRepo.On("ListUnavailability", mock.Anything, productID).
					Return([]domain.UnavailableEntry{rangeEntry(
						time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
						time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
					)}, nil)
			},
			expected: true,
		},
		{
			name: "fails closed when the product is missing",
			setupMocks: func(rentalRepo *MockRentalRepository, productRepo *MockProductRepository) {
				productRepo.On("GetProduct", mock.Anything, productID).Return(nil, errors.New("not found"))
			},
			expected: false,
		},
		{
			name: "fails closed on a store error",
			setupMocks: func(rentalRepo *MockRentalRepository, productRepo *MockProductRepository) {
				productRepo.On("GetProduct", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
				rentalRepo.On("ListActive", mock.Anything, productID).
					Return(nil, errors.New("connection reset"))
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rentalRepo := new(MockRentalRepository)
			productRepo := new(MockProductRepository)
			tt.setupMocks(rentalRepo, productRepo)

			checker := service.NewAvailabilityChecker(rentalRepo, productRepo)
			got := checker.IsAvailable(context.Background(), productID, start, end, nil)

			assert.Equal(t, tt.expected, got)
			rentalRepo.AssertExpectations(t)
			productRepo.AssertExpectations(t)
		})
	}
}

func TestIsAvailableExcludesOwnRental(t *testing.T) {
	productID := uuid.New()
	rentalID := uuid.New()
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)

	rentalRepo := new(MockRentalRepository)
	productRepo := new(MockProductRepository)

	// The only active rental covering the window is the one being re-checked.
	productRepo.On("GetProduct", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	rentalRepo.On("ListActive", mock.Anything, productID).Return([]*domain.Rental{{
		ID:        rentalID,
		ProductID: productID,
		StartTime: start,
		EndTime:   end,
		Status:    domain.RentalStatusAccepted,
	}}, nil)
	productRepo.On("ListUnavailability", mock.Anything, productID).Return([]domain.UnavailableEntry{}, nil)

	checker := service.NewAvailabilityChecker(rentalRepo, productRepo)
	assert.True(t, checker.IsAvailable(context.Background(), productID, start, end, &rentalID))

	rentalRepo.AssertExpectations(t)
}
