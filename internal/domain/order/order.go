package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether an order has been paid for.
type PaymentStatus string

const (
	PaymentAwaiting PaymentStatus = "AWAITING_PAYMENT"
	PaymentPaid     PaymentStatus = "PAID"
)

// PreparationStatus tracks kitchen progress. It may only leave
// AWAITING_PAYMENT once the order is paid.
type PreparationStatus string

const (
	PreparationAwaitingPayment PreparationStatus = "AWAITING_PAYMENT"
	PreparationPreparing       PreparationStatus = "PREPARING"
	PreparationDone            PreparationStatus = "DONE"
)

// Sentinel errors for the order lifecycle.
var (
	// ErrNotFound is returned when the referenced order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrConflict is returned when an order is modified, deleted, or paid
	// outside the initial awaiting-payment state.
	ErrConflict = errors.New("order has already been paid")
	// ErrPaymentRequired is returned when progress is polled on an order
	// that exists but has not been paid.
	ErrPaymentRequired = errors.New("order has not been paid")
	// ErrEmptyItems is returned when an order is built with no items.
	ErrEmptyItems = errors.New("items required")
)

// Order is a priced customer order moving through the payment and
// preparation lifecycle. Total, TaxTotal, Promotions, and PreparationTime are
// computed once when the order is built and never adjusted incrementally;
// editing an order means rebuilding it from scratch.
type Order struct {
	ID         string
	CustomerID string
	// Items holds the purchased item ids, duplicates allowed.
	Items []string
	// Promotions is the snapshot of promotion ids applied at build time.
	Promotions []string
	// Total is the final price after discounts, tax included.
	Total decimal.Decimal
	// TaxTotal is the portion of Total attributable to tax.
	TaxTotal decimal.Decimal
	// PreparationTime is the seconds needed to prepare the whole order.
	PreparationTime   int
	PaymentStatus     PaymentStatus
	PreparationStatus PreparationStatus
	// PaymentTimestamp is set exactly once, when the order is paid.
	PaymentTimestamp *time.Time
	CreatedAt        time.Time
}

// Editable reports whether the order is still in its initial state, the only
// state in which it may be replaced, deleted, or paid.
func (o *Order) Editable() bool {
	return o.PaymentStatus == PaymentAwaiting && o.PreparationStatus == PreparationAwaitingPayment
}

// Progress is the payload returned by Pay and CheckProgress. NextPollSecs is
// the suggested delay before the client polls again; zero means the order is
// ready.
type Progress struct {
	PaymentStatus     PaymentStatus
	PreparationStatus PreparationStatus
	NextPollSecs      float64
}

// Repository defines persistence operations for orders.
//
// Replace, Delete, MarkPaid, and MarkDone must be atomic compare-and-updates
// keyed by the current state; that per-order serialization is what keeps a
// concurrent Pay from racing a Replace, Delete, or second Pay that read the
// order while it was still unpaid.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	// Replace overwrites every computed field of an order that is still
	// awaiting payment. Returns ErrNotFound when the order is gone and
	// ErrConflict when it has been paid in the meantime.
	Replace(ctx context.Context, o *Order) error
	// Delete removes an order that is still awaiting payment, with the same
	// error contract as Replace.
	Delete(ctx context.Context, id string) error
	// MarkPaid transitions AWAITING_PAYMENT -> (PAID, PREPARING) and stamps
	// the payment time. Returns ErrConflict when the order is no longer
	// awaiting payment and ErrNotFound when it no longer exists.
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
	// MarkDone transitions PREPARING -> DONE. A no-op when the order is
	// already done, which keeps progress polling idempotent.
	MarkDone(ctx context.Context, id string) error
}
