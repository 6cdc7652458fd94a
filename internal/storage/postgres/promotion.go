package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/foodworks-dev/counter-pos/internal/domain/promotion"
)

const (
	listPromotionsSQL = `SELECT id, name, description, active, items_required, items_discounted, amount, percentage
		FROM promotions ORDER BY id`

	listActivePromotionsSQL = `SELECT id, name, description, active, items_required, items_discounted, amount, percentage
		FROM promotions WHERE active ORDER BY id`

	getPromotionByIDSQL = `SELECT id, name, description, active, items_required, items_discounted, amount, percentage
		FROM promotions WHERE id = $1`

	upsertPromotionSQL = `INSERT INTO promotions
		(id, name, description, active, items_required, items_discounted, amount, percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
			active = EXCLUDED.active, items_required = EXCLUDED.items_required,
			items_discounted = EXCLUDED.items_discounted,
			amount = EXCLUDED.amount, percentage = EXCLUDED.percentage`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// List returns every promotion ordered by ID.
func (r *PromotionRepository) List(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listPromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

// ListActive returns the promotions considered during pricing, ordered by ID
// so pricing sees a stable promotion order between builds.
func (r *PromotionRepository) ListActive(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

// GetByID returns a single promotion by its identifier.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrNotFound
		}
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts or updates a promotion.
func (r *PromotionRepository) Upsert(ctx context.Context, p promotion.Promotion) error {
	_, err := r.pool.Exec(ctx, upsertPromotionSQL,
		p.ID, p.Name, p.Description, p.Active,
		p.ItemsRequired, p.ItemsDiscounted, p.Amount, p.Percentage,
	)
	if err != nil {
		return fmt.Errorf("upserting promotion %q: %w", p.ID, err)
	}
	return nil
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p          promotion.Promotion
		amount     decimal.Decimal
		percentage decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Active,
		&p.ItemsRequired, &p.ItemsDiscounted, &amount, &percentage,
	)
	p.Amount = amount
	p.Percentage = percentage
	return p, err
}
