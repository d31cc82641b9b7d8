package application

import (
	"context"

	"github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
)

type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Search(ctx context.Context, term string) ([]domain.Product, error)
	PriceRange(ctx context.Context, minCents, maxCents int64) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	// Snapshot returns point-in-time products for the given ids, omitting
	// unknown ones. Also serves the order coordinator's catalog port.
	Snapshot(ctx context.Context, ids []string) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) error
	Update(ctx context.Context, id string, upd domain.ProductUpdate) (domain.Product, error)
	Delete(ctx context.Context, id string) (domain.Product, error)
}

// Restocker adjusts stock through the ledger's unconditional increment.
type Restocker interface {
	Restock(ctx context.Context, productID string, qty int) (int, error)
}
