package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/foodworks-dev/counter-pos/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, customer_id, items, promotions, total, tax_total, preparation_time,
		 payment_status, preparation_status, payment_timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getOrderByIDSQL = `SELECT id, customer_id, items, promotions, total, tax_total,
		preparation_time, payment_status, preparation_status, payment_timestamp, created_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, customer_id, items, promotions, total, tax_total,
		preparation_time, payment_status, preparation_status, payment_timestamp, created_at
		FROM orders ORDER BY created_at`

	// Every state-changing write below is guarded on the current state. That
	// per-order serialization is what keeps a concurrent Pay from racing a
	// Replace, Delete, or second Pay that read the order while it was still
	// unpaid: only one transition can win.
	replaceOrderSQL = `UPDATE orders
		SET customer_id = $2, items = $3, promotions = $4, total = $5, tax_total = $6,
			preparation_time = $7, payment_status = $8, preparation_status = $9,
			payment_timestamp = $10
		WHERE id = $1 AND payment_status = 'AWAITING_PAYMENT'`

	deleteOrderSQL = `DELETE FROM orders
		WHERE id = $1 AND payment_status = 'AWAITING_PAYMENT'`

	markOrderPaidSQL = `UPDATE orders
		SET payment_status = 'PAID', preparation_status = 'PREPARING', payment_timestamp = $2
		WHERE id = $1 AND payment_status = 'AWAITING_PAYMENT'`

	markOrderDoneSQL = `UPDATE orders
		SET preparation_status = 'DONE'
		WHERE id = $1 AND preparation_status = 'PREPARING'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order in its initial state.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.Items, o.Promotions, o.Total, o.TaxTotal,
		o.PreparationTime, string(o.PaymentStatus), string(o.PreparationStatus),
		o.PaymentTimestamp, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
// Returns order.ErrNotFound when no matching order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// List returns all orders, oldest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Replace overwrites the stored order with a rebuilt one, provided it is
// still awaiting payment. Returns order.ErrNotFound when the order is gone
// and order.ErrConflict when a concurrent payment won.
func (r *OrderRepository) Replace(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, replaceOrderSQL,
		o.ID, o.CustomerID, o.Items, o.Promotions, o.Total, o.TaxTotal,
		o.PreparationTime, string(o.PaymentStatus), string(o.PreparationStatus),
		o.PaymentTimestamp,
	)
	if err != nil {
		return fmt.Errorf("replacing order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.resolveNoRows(ctx, o.ID)
	}
	return nil
}

// Delete removes an order that is still awaiting payment, with the same
// error contract as Replace.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.resolveNoRows(ctx, id)
	}
	return nil
}

// MarkPaid flips an awaiting-payment order to (PAID, PREPARING) and stamps
// the payment time. A guarded update matching no row means a concurrent call
// got there first: order.ErrConflict when the order advanced past the initial
// state, order.ErrNotFound when it was deleted.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	tag, err := r.pool.Exec(ctx, markOrderPaidSQL, id, paidAt)
	if err != nil {
		return fmt.Errorf("marking order %q paid: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.resolveNoRows(ctx, id)
	}
	return nil
}

// resolveNoRows classifies a guarded write that matched nothing: the row is
// either gone (ErrNotFound) or no longer awaiting payment (ErrConflict).
func (r *OrderRepository) resolveNoRows(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return order.ErrConflict
}

// MarkDone flips a preparing order to DONE. Matching no row means the order
// already finished; that is not an error, so repeated polls stay idempotent.
func (r *OrderRepository) MarkDone(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, markOrderDoneSQL, id)
	if err != nil {
		return fmt.Errorf("marking order %q done: %w", id, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                 order.Order
		total             decimal.Decimal
		taxTotal          decimal.Decimal
		prepTime          int32
		paymentStatus     string
		preparationStatus string
		paidAt            *time.Time
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Items, &o.Promotions, &total, &taxTotal,
		&prepTime, &paymentStatus, &preparationStatus, &paidAt, &o.CreatedAt,
	)
	o.Total = total
	o.TaxTotal = taxTotal
	o.PreparationTime = int(prepTime)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.PreparationStatus = order.PreparationStatus(preparationStatus)
	o.PaymentTimestamp = paidAt
	return o, err
}
