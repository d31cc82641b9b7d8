package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dvelasquez124/shopping-cart-app/internal/inventory/domain"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and
// pgx.Tx, so ledger primitives can run standalone or join a caller's
// transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger owns all stock mutation. Callers never read-modify-write
// quantity_in_stock; the compare-and-set in TryDecrement is the sole
// synchronization primitive for concurrent placements.
type Ledger struct {
	log *slog.Logger
}

func NewLedger(log *slog.Logger) *Ledger {
	return &Ledger{log: log}
}

// TryDecrement lowers stock by qty only if at least qty remains. Returns
// false, with no mutation, when a competing order already consumed the
// stock.
func (l *Ledger) TryDecrement(ctx context.Context, q Querier, productID string, qty int) (bool, error) {
	ct, err := q.Exec(ctx, `
		UPDATE products
		SET quantity_in_stock = quantity_in_stock - $2, updated_at = now()
		WHERE id = $1 AND quantity_in_stock >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Increment is the unconditional restock primitive. It returns the new
// quantity so deletion flows can report post-restock levels.
func (l *Ledger) Increment(ctx context.Context, q Querier, productID string, qty int) (int, error) {
	var newQty int
	err := q.QueryRow(ctx, `
		UPDATE products
		SET quantity_in_stock = quantity_in_stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING quantity_in_stock`, productID, qty).Scan(&newQty)
	if err != nil {
		return 0, err
	}
	return newQty, nil
}

// Snapshot reads current levels for the given ids. Unknown ids are
// omitted. The result is advisory only; it may be stale by the time a
// caller acts on it.
func (l *Ledger) Snapshot(ctx context.Context, q Querier, productIDs []string) ([]domain.StockLevel, error) {
	rows, err := q.Query(ctx, `SELECT id, quantity_in_stock FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []domain.StockLevel
	for rows.Next() {
		var lv domain.StockLevel
		if err := rows.Scan(&lv.ProductID, &lv.QuantityInStock); err != nil {
			return nil, err
		}
		levels = append(levels, lv)
	}
	return levels, rows.Err()
}
