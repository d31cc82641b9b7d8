package application

import (
	"context"

	catalogdomain "github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
	"github.com/dvelasquez124/shopping-cart-app/internal/order/domain"
)

// OrderRepository is the coordinator's persistence port. PlaceWithOutbox
// and DeleteRestockingWithOutbox are all-or-nothing: stock movement, the
// order row, and the outbox event commit or discard together.
type OrderRepository interface {
	// PlaceWithOutbox conditionally decrements stock for every line and
	// inserts the order in one transaction. A failed decrement aborts the
	// whole attempt and surfaces as domain.InsufficientStockError.
	PlaceWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// ListByUser returns the user's orders newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatusWithOutbox(ctx context.Context, id string, status domain.OrderStatus, eventType string, payload []byte, traceparent string) (domain.Order, error)
	// DeleteRestockingWithOutbox increments stock for every line and
	// deletes the order in one transaction, returning post-restock levels.
	DeleteRestockingWithOutbox(ctx context.Context, id string, eventType string, payload []byte, traceparent string) ([]domain.RestockedItem, error)
}

// CatalogReader resolves product snapshots for pricing and the advisory
// stock check. Unknown ids are omitted from the result.
type CatalogReader interface {
	Snapshot(ctx context.Context, productIDs []string) ([]catalogdomain.Product, error)
}
