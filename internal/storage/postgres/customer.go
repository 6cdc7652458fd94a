package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
)

const (
	getCustomerByIDSQL = `SELECT id, name, email FROM customers WHERE id = $1`

	upsertCustomerSQL = `INSERT INTO customers (id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email`
)

var _ catalog.CustomerRepository = (*CustomerRepository)(nil)

// CustomerRepository implements catalog.CustomerRepository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a single customer by its identifier.
// Returns catalog.ErrCustomerNotFound when no matching customer exists.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*catalog.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[catalog.Customer])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// Upsert inserts or updates a customer.
func (r *CustomerRepository) Upsert(ctx context.Context, customer catalog.Customer) error {
	_, err := r.pool.Exec(ctx, upsertCustomerSQL, customer.ID, customer.Name, customer.Email)
	if err != nil {
		return fmt.Errorf("upserting customer %q: %w", customer.ID, err)
	}
	return nil
}
