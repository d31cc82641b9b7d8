package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
	invpg "github.com/dvelasquez124/shopping-cart-app/internal/inventory/infrastructure/postgres"
)

const productColumns = `id, name, description, price_cents, quantity_in_stock, created_at, updated_at`

type Repository struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	ledger *invpg.Ledger
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, ledger *invpg.Ledger) *Repository {
	return &Repository{log: log, pool: pool, ledger: ledger}
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		quantity_in_stock INT NOT NULL CHECK (quantity_in_stock >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`)
	return err
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
}

func (r *Repository) Search(ctx context.Context, term string) ([]domain.Product, error) {
	pattern := "%" + escapeLike(term) + "%"
	return r.query(ctx, `SELECT `+productColumns+` FROM products
		WHERE name ILIKE $1 OR description ILIKE $1 ORDER BY name, id`, pattern)
}

func (r *Repository) PriceRange(ctx context.Context, minCents, maxCents int64) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products
		WHERE price_cents BETWEEN $1 AND $2 ORDER BY price_cents, id`, minCents, maxCents)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.QuantityInStock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.NotFoundError{ID: id}
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *Repository) Snapshot(ctx context.Context, ids []string) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, name, description, price_cents, quantity_in_stock)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.QuantityInStock)
	return err
}

func (r *Repository) Update(ctx context.Context, id string, upd domain.ProductUpdate) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price_cents = COALESCE($4, price_cents),
			updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns, id, upd.Name, upd.Description, upd.PriceCents).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.QuantityInStock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.NotFoundError{ID: id}
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `DELETE FROM products WHERE id=$1 RETURNING `+productColumns, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.QuantityInStock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.NotFoundError{ID: id}
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// Restock routes the admin stock adjustment through the ledger's
// unconditional increment.
func (r *Repository) Restock(ctx context.Context, productID string, qty int) (int, error) {
	newQty, err := r.ledger.Increment(ctx, r.pool, productID, qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.NotFoundError{ID: productID}
	}
	return newQty, err
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.QuantityInStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// escapeLike neutralizes LIKE metacharacters in user input, same idea as
// the regex escaping the storefront UI search always did.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
