package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product carries the slice of catalog data the rental engine needs: the
// owner and the deposit snapshot taken at acceptance time. The full catalog
// lives in an external service.
type Product struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OwnerID         uuid.UUID       `json:"owner_id" db:"owner_id"`
	SecurityDeposit decimal.Decimal `json:"security_deposit" db:"security_deposit"`
}

// PricingTier is a product's declared price for one duration unit plus the
// maximum rentable period in that unit.
type PricingTier struct {
	ProductID    uuid.UUID       `json:"product_id" db:"product_id"`
	DurationUnit DurationUnit    `json:"duration_unit" db:"duration_unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	MaxPeriod    int             `json:"max_period" db:"max_period"`
}

// UnavailableEntry is an owner-declared blackout: either a single date or an
// inclusive [RangeStart, RangeEnd] range.
type UnavailableEntry struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	ProductID  uuid.UUID  `json:"product_id" db:"product_id"`
	IsRange    bool       `json:"is_range" db:"is_range"`
	Date       *time.Time `json:"date,omitempty" db:"date"`
	RangeStart *time.Time `json:"range_start,omitempty" db:"range_start"`
	RangeEnd   *time.Time `json:"range_end,omitempty" db:"range_end"`
}

// Intersects reports whether the entry blocks any date in the inclusive
// [from, to] date range.
func (e UnavailableEntry) Intersects(from, to time.Time) bool {
	if e.IsRange {
		if e.RangeStart == nil || e.RangeEnd == nil {
			return false
		}
		return !e.RangeStart.After(to) && !e.RangeEnd.Before(from)
	}
	if e.Date == nil {
		return false
	}
	return !e.Date.Before(from) && !e.Date.After(to)
}
