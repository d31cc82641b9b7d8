package application

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
)

type fakeRepo struct {
	products map[string]domain.Product
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: make(map[string]domain.Product)}
}

func (f *fakeRepo) all() []domain.Product {
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeRepo) List(ctx context.Context) ([]domain.Product, error) { return f.all(), nil }

func (f *fakeRepo) Search(ctx context.Context, term string) ([]domain.Product, error) {
	term = strings.ToLower(term)
	var out []domain.Product
	for _, p := range f.all() {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Description), term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) PriceRange(ctx context.Context, minCents, maxCents int64) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.all() {
		if p.PriceCents >= minCents && p.PriceCents <= maxCents {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.NotFoundError{ID: id}
	}
	return p, nil
}

func (f *fakeRepo) Snapshot(ctx context.Context, ids []string) ([]domain.Product, error) {
	var out []domain.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(ctx context.Context, p domain.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, upd domain.ProductUpdate) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.NotFoundError{ID: id}
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.PriceCents != nil {
		p.PriceCents = *upd.PriceCents
	}
	f.products[id] = p
	return p, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.NotFoundError{ID: id}
	}
	delete(f.products, id)
	return p, nil
}

func (f *fakeRepo) Restock(ctx context.Context, productID string, qty int) (int, error) {
	p, ok := f.products[productID]
	if !ok {
		return 0, domain.NotFoundError{ID: productID}
	}
	p.QuantityInStock += qty
	f.products[productID] = p
	return p.QuantityInStock, nil
}

func newCatalogService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, repo, repo), repo
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newCatalogService()

	p, err := svc.Create(context.Background(), CreateProductInput{Name: "mug", PriceCents: 1250, QuantityInStock: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 10, p.QuantityInStock)

	var verr domain.ValidationError
	_, err = svc.Create(context.Background(), CreateProductInput{Name: "", PriceCents: 10})
	require.ErrorAs(t, err, &verr)
	_, err = svc.Create(context.Background(), CreateProductInput{Name: "x", PriceCents: -1})
	require.ErrorAs(t, err, &verr)
	_, err = svc.Create(context.Background(), CreateProductInput{Name: "x", PriceCents: 1, QuantityInStock: -2})
	require.ErrorAs(t, err, &verr)
}

func TestSearchEmptyTermReturnsNothing(t *testing.T) {
	svc, _ := newCatalogService()
	_, err := svc.Create(context.Background(), CreateProductInput{Name: "mug", PriceCents: 1250})
	require.NoError(t, err)

	out, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = svc.Search(context.Background(), "MU")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestPriceRangeSwapsReversedBounds(t *testing.T) {
	svc, _ := newCatalogService()
	_, err := svc.Create(context.Background(), CreateProductInput{Name: "mug", PriceCents: 1250})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateProductInput{Name: "pen", PriceCents: 300})
	require.NoError(t, err)

	out, err := svc.PriceRange(context.Background(), 2000, 100)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestUpdateProductPartial(t *testing.T) {
	svc, _ := newCatalogService()
	p, err := svc.Create(context.Background(), CreateProductInput{Name: "mug", Description: "ceramic", PriceCents: 1250, QuantityInStock: 3})
	require.NoError(t, err)

	price := int64(1500)
	got, err := svc.Update(context.Background(), p.ID, domain.ProductUpdate{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.PriceCents)
	assert.Equal(t, "mug", got.Name)
	assert.Equal(t, 3, got.QuantityInStock, "CRUD update never touches stock")

	var verr domain.ValidationError
	neg := int64(-5)
	_, err = svc.Update(context.Background(), p.ID, domain.ProductUpdate{PriceCents: &neg})
	require.ErrorAs(t, err, &verr)
}

func TestRestock(t *testing.T) {
	svc, _ := newCatalogService()
	p, err := svc.Create(context.Background(), CreateProductInput{Name: "mug", PriceCents: 1250, QuantityInStock: 2})
	require.NoError(t, err)

	newQty, err := svc.Restock(context.Background(), p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, newQty)

	var verr domain.ValidationError
	_, err = svc.Restock(context.Background(), p.ID, 0)
	require.ErrorAs(t, err, &verr)
}
