package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
)

const (
	listItemsSQL = `SELECT id, name, price, prep_time, tax_rate
		FROM items ORDER BY id`

	getItemByIDSQL = `SELECT id, name, price, prep_time, tax_rate
		FROM items WHERE id = $1`

	getItemsByIDsSQL = `SELECT id, name, price, prep_time, tax_rate
		FROM items WHERE id = ANY($1)`

	upsertItemSQL = `INSERT INTO items (id, name, price, prep_time, tax_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price,
			prep_time = EXCLUDED.prep_time, tax_rate = EXCLUDED.tax_rate`
)

var _ catalog.ItemRepository = (*ItemRepository)(nil)

// ItemRepository implements catalog.ItemRepository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// List returns all catalog items ordered by ID.
func (r *ItemRepository) List(ctx context.Context) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetByID returns a single catalog item by its identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %q: %w", id, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting item %q: %w", id, err)
	}
	return &it, nil
}

// GetByIDs returns items matching any of the given IDs.
func (r *ItemRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getItemsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting items by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// Upsert inserts or updates a catalog item.
func (r *ItemRepository) Upsert(ctx context.Context, item catalog.Item) error {
	_, err := r.pool.Exec(ctx, upsertItemSQL,
		item.ID, item.Name, item.Price, item.PrepTime, item.TaxRate,
	)
	if err != nil {
		return fmt.Errorf("upserting item %q: %w", item.ID, err)
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var (
		it       catalog.Item
		price    decimal.Decimal
		taxRate  decimal.Decimal
		prepTime int32
	)
	err := row.Scan(&it.ID, &it.Name, &price, &prepTime, &taxRate)
	it.Price = price
	it.TaxRate = taxRate
	it.PrepTime = int(prepTime)
	return it, err
}
