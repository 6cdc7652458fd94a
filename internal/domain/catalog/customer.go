package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrCustomerNotFound is returned when a referenced customer does not exist.
var ErrCustomerNotFound = errors.New("customer not found")

// Customer identifies who placed an order.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// CustomerRepository defines read and seed operations for customers.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
	Upsert(ctx context.Context, customer Customer) error
}
