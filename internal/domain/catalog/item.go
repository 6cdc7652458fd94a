package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when a requested catalog item does not exist.
var ErrItemNotFound = errors.New("item not found")

// Item is a purchasable catalog entry. Items are owned by the catalog and
// treated as read-only input everywhere else: pricing never mutates them.
type Item struct {
	ID   string
	Name string
	// Price is the undiscounted unit price, tax excluded.
	Price decimal.Decimal
	// PrepTime is the preparation time in seconds.
	PrepTime int
	// TaxRate is a fraction, e.g. 0.2 for 20% tax.
	TaxRate decimal.Decimal
}

// ItemRepository defines read and seed operations for the item catalog.
type ItemRepository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
	Upsert(ctx context.Context, item Item) error
}
