package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvelasquez124/shopping-cart-app/internal/order/domain"
	"github.com/dvelasquez124/shopping-cart-app/pkg/metrics"
	"github.com/dvelasquez124/shopping-cart-app/pkg/tracing"
)

// ItemInput is one requested line of a placement: which product, how many.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Service coordinates order placement and lifecycle. Placement resolves a
// catalog snapshot, runs an advisory stock check, then hands the repository
// an order whose stock reservation must commit atomically with it. The
// advisory check is best-effort only; the repository's conditional
// decrements are the real guard against overselling.
type Service struct {
	log     *slog.Logger
	repo    OrderRepository
	catalog CatalogReader
	met     *metrics.OrderMetrics
	tracer  trace.Tracer
}

func NewService(log *slog.Logger, repo OrderRepository, catalog CatalogReader, met *metrics.OrderMetrics) *Service {
	return &Service{
		log:     log,
		repo:    repo,
		catalog: catalog,
		met:     met,
		tracer:  otel.Tracer("order-service"),
	}
}

// PlaceOrder validates the request, snapshots prices and names, and
// commits the order together with its stock decrements. No side effects
// remain on any error path.
func (s *Service) PlaceOrder(ctx context.Context, userID string, items []ItemInput) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder")
	defer span.End()

	if userID == "" {
		return domain.Order{}, domain.ValidationError{Msg: "user id is required"}
	}
	if len(items) == 0 {
		return domain.Order{}, domain.ValidationError{Msg: "items array is required"}
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, err := uuid.Parse(it.ProductID); err != nil {
			return domain.Order{}, domain.ValidationError{Msg: "invalid product id: " + it.ProductID}
		}
		if it.Quantity < 1 {
			return domain.Order{}, domain.ValidationError{Msg: fmt.Sprintf("quantity must be >= 1 for product %s", it.ProductID)}
		}
		if _, dup := seen[it.ProductID]; dup {
			return domain.Order{}, domain.ValidationError{Msg: "duplicate product id: " + it.ProductID}
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}

	products, err := s.catalog.Snapshot(ctx, ids)
	if err != nil {
		return domain.Order{}, domain.PersistenceError{Op: "catalog snapshot", Err: err}
	}
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	// Snapshot name and price per line; any unresolved id fails the whole
	// request before anything is written.
	lines := make([]domain.OrderLine, 0, len(items))
	for _, it := range items {
		i, ok := byID[it.ProductID]
		if !ok {
			return domain.Order{}, domain.ValidationError{Msg: "unknown product id: " + it.ProductID}
		}
		p := products[i]
		if p.QuantityInStock < it.Quantity {
			// Advisory fast-fail. The observed level may already be stale,
			// which is fine: the transaction below enforces the invariant.
			s.met.StockConflicts.Inc()
			return domain.Order{}, domain.InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: it.Quantity}
		}
		lines = append(lines, domain.OrderLine{
			ProductID:  p.ID,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Quantity:   it.Quantity,
		})
	}

	o := domain.NewOrder(uuid.NewString(), userID, lines)

	payload, err := json.Marshal(domain.OrderPlaced{
		OrderID:       o.ID,
		UserID:        o.UserID,
		SubtotalCents: o.SubtotalCents,
		Lines:         o.Lines,
	})
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.repo.PlaceWithOutbox(ctx, o, "OrderPlaced", payload, tracing.Traceparent(ctx)); err != nil {
		var ise domain.InsufficientStockError
		if errors.As(err, &ise) {
			s.met.StockConflicts.Inc()
			s.log.Info("placement lost stock race", "order_id", o.ID, "product_id", ise.ProductID)
		}
		return domain.Order{}, err
	}

	s.met.OrdersPlaced.Inc()
	s.log.Info("order placed", "order_id", o.ID, "user_id", userID, "subtotal_cents", o.SubtotalCents)
	return o, nil
}

// ListOrdersForUser returns the user's orders newest first.
func (s *Service) ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ValidationError{Msg: "user id is required"}
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

// SetStatus moves an order to any member of the closed status set. No
// transition graph is enforced.
func (s *Service) SetStatus(ctx context.Context, orderID, status string) (domain.Order, error) {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Order{}, err
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return domain.Order{}, domain.ValidationError{Msg: "invalid order id: " + orderID}
	}

	payload, err := json.Marshal(domain.OrderStatusChanged{OrderID: orderID, Status: st})
	if err != nil {
		return domain.Order{}, err
	}
	return s.repo.UpdateStatusWithOutbox(ctx, orderID, st, "OrderStatusChanged", payload, tracing.Traceparent(ctx))
}

// DeleteAndRestock removes the order and returns its reserved stock. The
// restock increments and the delete commit in one transaction (see the
// repository), so a crash cannot strand restored stock next to a live
// order record.
func (s *Service) DeleteAndRestock(ctx context.Context, orderID string) ([]domain.RestockedItem, error) {
	ctx, span := s.tracer.Start(ctx, "DeleteAndRestock")
	defer span.End()

	if _, err := uuid.Parse(orderID); err != nil {
		return nil, domain.NotFoundError{Kind: "order", ID: orderID}
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(domain.OrderDeleted{OrderID: o.ID, UserID: o.UserID, Lines: o.Lines})
	if err != nil {
		return nil, err
	}

	restocked, err := s.repo.DeleteRestockingWithOutbox(ctx, orderID, "OrderDeleted", payload, tracing.Traceparent(ctx))
	if err != nil {
		return nil, err
	}

	s.met.OrdersDeleted.Inc()
	s.log.Info("order deleted with restock", "order_id", orderID, "lines", len(restocked))
	return restocked, nil
}
