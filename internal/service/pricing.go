package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rental-engine/internal/domain"
	"github.com/rentloop/rental-engine/internal/repository"
	customError "github.com/rentloop/rental-engine/pkg/errors"
	"github.com/rentloop/rental-engine/pkg/utils"
)

// CostCalculator computes rental cost and service fee from a product's
// pricing tiers. Tiers are cached in Redis; rental state never is.
type CostCalculator struct {
	productRepo repository.ProductRepository
	redis       *redis.Client
	cacheTTL    time.Duration
	feeRate     decimal.Decimal
}

func NewCostCalculator(
	productRepo repository.ProductRepository,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	feeRate decimal.Decimal,
) *CostCalculator {
	return &CostCalculator{
		productRepo: productRepo,
		redis:       redisClient,
		cacheTTL:    cacheTTL,
		feeRate:     feeRate,
	}
}

// Tier returns the product's pricing tier for the duration unit.
func (c *CostCalculator) Tier(ctx context.Context, productID uuid.UUID, unit domain.DurationUnit) (*domain.PricingTier, error) {
	cacheKey := fmt.Sprintf("tier:%s:%s", productID, unit)

	if c.redis != nil {
		if raw, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
			var tier domain.PricingTier
			if err := json.Unmarshal([]byte(raw), &tier); err == nil {
				return &tier, nil
			}
		}
	}

	tier, err := c.productRepo.GetPricingTier(ctx, productID, unit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNoPricingTier(productID.String(), string(unit))
		}
		return nil, wrapStoreError(err)
	}

	if c.redis != nil {
		if raw, err := json.Marshal(tier); err == nil {
			if err := c.redis.Set(ctx, cacheKey, raw, c.cacheTTL).Err(); err != nil {
				log.Printf("tier cache set failed for %s: %v", cacheKey, err)
			}
		}
	}

	return tier, nil
}

// Calculate returns (totalCost, serviceFee) for renting the product for
// durationCount units. Pure with respect to rental state; deterministic for
// a given tier.
func (c *CostCalculator) Calculate(ctx context.Context, productID uuid.UUID, unit domain.DurationUnit, durationCount int) (decimal.Decimal, decimal.Decimal, error) {
	tier, err := c.Tier(ctx, productID, unit)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if durationCount > tier.MaxPeriod {
		return decimal.Zero, decimal.Zero, customError.WrapDurationExceedsMax(durationCount, tier.MaxPeriod)
	}

	totalCost := utils.CalculateTotalCost(tier.PricePerUnit, durationCount)
	serviceFee := utils.CalculateServiceFee(totalCost, c.feeRate)

	return totalCost, serviceFee, nil
}
