package promotion

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested promotion does not exist.
var ErrNotFound = errors.New("promotion not found")

// Promotion is a bundling rule: when an order contains the multiset of items
// in ItemsRequired, the items listed in ItemsDiscounted get a price reduction.
//
// Amount and Percentage are both optional; a zero value means the discount
// kind is not set. When both are set they compose sequentially: the fixed
// amount is subtracted first, then the percentage is applied to the reduced
// price.
type Promotion struct {
	ID          string
	Name        string
	Description string
	// Active promotions are the only ones considered during pricing.
	Active bool
	// ItemsRequired is an ordered sequence of item ids, repeats allowed.
	// One match consumes exactly this multiset of items.
	ItemsRequired []string
	// ItemsDiscounted is the subset of ItemsRequired ids whose price is
	// reduced. Required items outside this set are consumed at full price.
	ItemsDiscounted []string
	// Amount is a fixed absolute discount per discounted item.
	Amount decimal.Decimal
	// Percentage is a fractional discount in [0,1] per discounted item,
	// applied after Amount.
	Percentage decimal.Decimal
}

// Repository defines read and seed operations for promotions.
type Repository interface {
	List(ctx context.Context) ([]Promotion, error)
	ListActive(ctx context.Context) ([]Promotion, error)
	GetByID(ctx context.Context, id string) (*Promotion, error)
	Upsert(ctx context.Context, p Promotion) error
}
