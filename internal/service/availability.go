package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rentloop/rental-engine/internal/repository"
	"github.com/rentloop/rental-engine/pkg/utils"
)

// AvailabilityChecker decides whether a product is free for a requested
// window. It fails closed: any lookup error reads as "not available".
type AvailabilityChecker struct {
	rentalRepo  repository.RentalRepository
	productRepo repository.ProductRepository
}

func NewAvailabilityChecker(
	rentalRepo repository.RentalRepository,
	productRepo repository.ProductRepository,
) *AvailabilityChecker {
	return &AvailabilityChecker{
		rentalRepo:  rentalRepo,
		productRepo: productRepo,
	}
}

// IsAvailable reports whether the product has no accepted/in_progress rental
// overlapping [start, end) and no blackout date inside the window. excludeID
// skips one rental, used when re-validating the rental being acted on.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, productID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) bool {
	if _, err := c.productRepo.GetProduct(ctx, productID); err != nil {
		return false
	}

	active, err := c.rentalRepo.ListActive(ctx, productID)
	if err != nil {
		return false
	}
	for _, rental := range active {
		if excludeID != nil && rental.ID == *excludeID {
			continue
		}
		if utils.WindowsOverlap(rental.StartTime, rental.EndTime, start, end) {
			return false
		}
	}

	entries, err := c.productRepo.ListUnavailability(ctx, productID)
	if err != nil {
		return false
	}

	from := utils.DateOnly(start)
	to := utils.DateOnly(end)
	for _, entry := range entries {
		if entry.Intersects(from, to) {
			return false
		}
	}

	return true
}
