package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentloop/rental-engine/internal/domain"
)

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT id, owner_id, security_deposit FROM products WHERE id = $1`

	var product domain.Product
	if err := q(ctx, r.db).GetContext(ctx, &product, query, id); err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT id, owner_id, security_deposit FROM products WHERE id = $1 FOR UPDATE`

	var product domain.Product
	if err := q(ctx, r.db).GetContext(ctx, &product, query, id); err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepository) GetPricingTier(ctx context.Context, productID uuid.UUID, unit domain.DurationUnit) (*domain.PricingTier, error) {
	query := `
		SELECT product_id, duration_unit, price_per_unit, max_period
		FROM pricing_tiers
		WHERE product_id = $1 AND duration_unit = $2
	`

	var tier domain.PricingTier
	if err := q(ctx, r.db).GetContext(ctx, &tier, query, productID, unit); err != nil {
		return nil, err
	}

	return &tier, nil
}

func (r *productRepository) ListUnavailability(ctx context.Context, productID uuid.UUID) ([]domain.UnavailableEntry, error) {
	query := `
		SELECT id, product_id, is_range, date, range_start, range_end
		FROM product_unavailability
		WHERE product_id = $1
	`

	entries := []domain.UnavailableEntry{}
	if err := q(ctx, r.db).SelectContext(ctx, &entries, query, productID); err != nil {
		return nil, err
	}

	return entries, nil
}
