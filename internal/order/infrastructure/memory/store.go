// Package memory implements the order repository and catalog reader
// against in-process maps. One mutex stands in for the database
// transaction: placement checks every line before mutating anything, so
// the all-or-nothing guarantee matches the postgres repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	catalogdomain "github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
	"github.com/dvelasquez124/shopping-cart-app/internal/order/domain"
)

// RecordedEvent captures what would have been an outbox row.
type RecordedEvent struct {
	AggregateID string
	Type        string
	Payload     []byte
	Traceparent string
}

type Store struct {
	mu       sync.Mutex
	products map[string]catalogdomain.Product
	orders   map[string]domain.Order
	seq      map[string]int
	nextSeq  int
	events   []RecordedEvent
}

func NewStore() *Store {
	return &Store{
		products: make(map[string]catalogdomain.Product),
		orders:   make(map[string]domain.Order),
		seq:      make(map[string]int),
	}
}

func (s *Store) SeedProduct(p catalogdomain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// StockOf reports current stock, or -1 for an unknown product.
func (s *Store) StockOf(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return -1
	}
	return p.QuantityInStock
}

func (s *Store) Events() []RecordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Snapshot(ctx context.Context, productIDs []string) ([]catalogdomain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalogdomain.Product
	for _, id := range productIDs {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) PlaceWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every line before touching anything.
	for _, ln := range o.Lines {
		p, ok := s.products[ln.ProductID]
		if !ok || p.QuantityInStock < ln.Quantity {
			return domain.InsufficientStockError{ProductID: ln.ProductID, Name: ln.Name, Requested: ln.Quantity}
		}
	}
	for _, ln := range o.Lines {
		p := s.products[ln.ProductID]
		p.QuantityInStock -= ln.Quantity
		s.products[ln.ProductID] = p
	}
	s.orders[o.ID] = o
	s.nextSeq++
	s.seq[o.ID] = s.nextSeq
	s.events = append(s.events, RecordedEvent{AggregateID: o.ID, Type: eventType, Payload: payload, Traceparent: traceparent})
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.NotFoundError{Kind: "order", ID: id}
	}
	return o, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (s *Store) UpdateStatusWithOutbox(ctx context.Context, id string, status domain.OrderStatus, eventType string, payload []byte, traceparent string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.NotFoundError{Kind: "order", ID: id}
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	s.events = append(s.events, RecordedEvent{AggregateID: id, Type: eventType, Payload: payload, Traceparent: traceparent})
	return o, nil
}

func (s *Store) DeleteRestockingWithOutbox(ctx context.Context, id string, eventType string, payload []byte, traceparent string) ([]domain.RestockedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.NotFoundError{Kind: "order", ID: id}
	}

	restocked := make([]domain.RestockedItem, 0, len(o.Lines))
	for _, ln := range o.Lines {
		p, ok := s.products[ln.ProductID]
		if !ok {
			continue
		}
		p.QuantityInStock += ln.Quantity
		s.products[ln.ProductID] = p
		restocked = append(restocked, domain.RestockedItem{ProductID: ln.ProductID, Name: ln.Name, NewQuantity: p.QuantityInStock})
	}
	delete(s.orders, id)
	delete(s.seq, id)
	s.events = append(s.events, RecordedEvent{AggregateID: id, Type: eventType, Payload: payload, Traceparent: traceparent})
	return restocked, nil
}
