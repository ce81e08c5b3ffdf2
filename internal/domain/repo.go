package domain

import (
	"context"
)

type CustomerRepository interface {
	// FindByID returns ErrNotFound when the customer does not exist.
	FindByID(ctx context.Context, id string) (*Customer, error)
}

type ProductRepository interface {
	// FindAllByID returns the products matching ids in any order. Unknown ids
	// are omitted; callers reconcile counts themselves.
	FindAllByID(ctx context.Context, ids []string) ([]Product, error)
	// UpdateQuantity overwrites the stock of every listed product. A product
	// without a stored record fails with ErrInternalInconsistency.
	UpdateQuantity(ctx context.Context, updates []StockUpdate) error
}

type OrderRepository interface {
	// Create assigns a new id and stores the order with its lines.
	Create(ctx context.Context, customer Customer, lines []OrderLine) (*Order, error)
	// FindByID loads the order with its customer and lines, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Order, error)
	RecentOrderIDs(ctx context.Context, limit int) ([]string, error)
}

// Repositories is the set of stores bound to one unit of work.
type Repositories struct {
	Customers CustomerRepository
	Products  ProductRepository
	Orders    OrderRepository
}

// UnitOfWork runs fn so that either every write it makes is applied or none is.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
