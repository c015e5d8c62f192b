package products

import "context"

// Repo defines persistence operations for the product catalog.
type Repo interface {
	Create(ctx context.Context, product Product) error
	GetByID(ctx context.Context, productID string) (Product, error)
	List(ctx context.Context, limit, offset int) ([]Product, error)
	// FindOne returns the first product matching the filter.
	FindOne(ctx context.Context, filter Filter) (Product, error)
}
