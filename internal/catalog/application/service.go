package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
)

type Service struct {
	log     *slog.Logger
	repo    ProductRepository
	restock Restocker
}

func NewService(log *slog.Logger, repo ProductRepository, restock Restocker) *Service {
	return &Service{log: log, repo: repo, restock: restock}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

// Search matches name or description, case-insensitive. An empty term
// returns an empty list rather than the whole catalog.
func (s *Service) Search(ctx context.Context, term string) ([]domain.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.Product{}, nil
	}
	return s.repo.Search(ctx, term)
}

// PriceRange filters by price; reversed bounds are swapped rather than
// rejected.
func (s *Service) PriceRange(ctx context.Context, minCents, maxCents int64) ([]domain.Product, error) {
	if minCents > maxCents {
		minCents, maxCents = maxCents, minCents
	}
	return s.repo.PriceRange(ctx, minCents, maxCents)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, domain.ValidationError{Msg: "invalid product id: " + id}
	}
	return s.repo.Get(ctx, id)
}

type CreateProductInput struct {
	Name            string
	Description     string
	PriceCents      int64
	QuantityInStock int
}

func (s *Service) Create(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	if in.Name == "" {
		return domain.Product{}, domain.ValidationError{Msg: "name is required"}
	}
	if in.PriceCents < 0 {
		return domain.Product{}, domain.ValidationError{Msg: "price must be non-negative"}
	}
	if in.QuantityInStock < 0 {
		return domain.Product{}, domain.ValidationError{Msg: "quantityInStock must be >= 0"}
	}

	p := domain.Product{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Description:     in.Description,
		PriceCents:      in.PriceCents,
		QuantityInStock: in.QuantityInStock,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product created", "product_id", p.ID, "name", p.Name)
	return s.repo.Get(ctx, p.ID)
}

func (s *Service) Update(ctx context.Context, id string, upd domain.ProductUpdate) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, domain.ValidationError{Msg: "invalid product id: " + id}
	}
	if upd.PriceCents != nil && *upd.PriceCents < 0 {
		return domain.Product{}, domain.ValidationError{Msg: "price must be non-negative"}
	}
	if upd.Name != nil && *upd.Name == "" {
		return domain.Product{}, domain.ValidationError{Msg: "name must not be empty"}
	}
	return s.repo.Update(ctx, id, upd)
}

func (s *Service) Delete(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, domain.ValidationError{Msg: "invalid product id: " + id}
	}
	return s.repo.Delete(ctx, id)
}

// Restock raises a product's stock through the ledger and returns the new
// level. This is the only admin path that touches quantity_in_stock.
func (s *Service) Restock(ctx context.Context, id string, qty int) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, domain.ValidationError{Msg: "invalid product id: " + id}
	}
	if qty < 1 {
		return 0, domain.ValidationError{Msg: "quantity must be >= 1"}
	}
	return s.restock.Restock(ctx, id, qty)
}
