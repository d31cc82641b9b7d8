package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invpg "github.com/dvelasquez124/shopping-cart-app/internal/inventory/infrastructure/postgres"
	"github.com/dvelasquez124/shopping-cart-app/internal/order/domain"
)

type Repository struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	ledger *invpg.Ledger
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, ledger *invpg.Ledger) *Repository {
	return &Repository{log: log, pool: pool, ledger: ledger}
}

// PlaceWithOutbox reserves stock and persists the order as one unit. Each
// line's conditional decrement runs inside the transaction; the first
// failed decrement aborts the attempt, rolling back decrements already
// applied, and the order row is only written once every line reserved.
func (r *Repository) PlaceWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.PersistenceError{Op: "begin place tx", Err: err}
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, ln := range o.Lines {
		ok, err := r.ledger.TryDecrement(ctx, tx, ln.ProductID, ln.Quantity)
		if err != nil {
			return domain.PersistenceError{Op: "decrement stock", Err: err}
		}
		if !ok {
			return domain.InsufficientStockError{ProductID: ln.ProductID, Name: ln.Name, Requested: ln.Quantity}
		}
	}

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, user_id, subtotal_cents, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.UserID, o.SubtotalCents, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return domain.PersistenceError{Op: "insert order", Err: err}
	}

	batch := &pgx.Batch{}
	for _, ln := range o.Lines {
		batch.Queue(`INSERT INTO order_lines (order_id, product_id, name, price_cents, quantity)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, ln.ProductID, ln.Name, ln.PriceCents, ln.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.PersistenceError{Op: "insert order lines", Err: err}
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"order", o.ID, eventType, payload, traceparent)
	if err != nil {
		return domain.PersistenceError{Op: "insert outbox", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PersistenceError{Op: "commit place tx", Err: err}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, subtotal_cents, status, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.SubtotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.NotFoundError{Kind: "order", ID: id}
	}
	if err != nil {
		return domain.Order{}, domain.PersistenceError{Op: "select order", Err: err}
	}

	rows, err := r.pool.Query(ctx, `SELECT product_id, name, price_cents, quantity
		FROM order_lines WHERE order_id=$1 ORDER BY product_id`, id)
	if err != nil {
		return domain.Order{}, domain.PersistenceError{Op: "select order lines", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var ln domain.OrderLine
		if err := rows.Scan(&ln.ProductID, &ln.Name, &ln.PriceCents, &ln.Quantity); err != nil {
			return domain.Order{}, domain.PersistenceError{Op: "scan order line", Err: err}
		}
		o.Lines = append(o.Lines, ln)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, domain.PersistenceError{Op: "select order lines", Err: err}
	}
	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, subtotal_cents, status, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, domain.PersistenceError{Op: "select orders", Err: err}
	}
	defer rows.Close()

	var orders []domain.Order
	index := map[string]int{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.SubtotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, domain.PersistenceError{Op: "scan order", Err: err}
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError{Op: "select orders", Err: err}
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	lineRows, err := r.pool.Query(ctx, `SELECT order_id, product_id, name, price_cents, quantity
		FROM order_lines WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return nil, domain.PersistenceError{Op: "select order lines", Err: err}
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var orderID string
		var ln domain.OrderLine
		if err := lineRows.Scan(&orderID, &ln.ProductID, &ln.Name, &ln.PriceCents, &ln.Quantity); err != nil {
			return nil, domain.PersistenceError{Op: "scan order line", Err: err}
		}
		i := index[orderID]
		orders[i].Lines = append(orders[i].Lines, ln)
	}
	if err := lineRows.Err(); err != nil {
		return nil, domain.PersistenceError{Op: "select order lines", Err: err}
	}
	return orders, nil
}

func (r *Repository) UpdateStatusWithOutbox(ctx context.Context, id string, status domain.OrderStatus, eventType string, payload []byte, traceparent string) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, domain.PersistenceError{Op: "begin status tx", Err: err}
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return domain.Order{}, domain.PersistenceError{Op: "update status", Err: err}
	}
	if ct.RowsAffected() == 0 {
		return domain.Order{}, domain.NotFoundError{Kind: "order", ID: id}
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"order", id, eventType, payload, traceparent)
	if err != nil {
		return domain.Order{}, domain.PersistenceError{Op: "insert outbox", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, domain.PersistenceError{Op: "commit status tx", Err: err}
	}
	return r.Get(ctx, id)
}

// DeleteRestockingWithOutbox returns every line's reserved units to stock
// and deletes the order in one transaction, so no crash window exists
// where stock is restored while the order record survives.
func (r *Repository) DeleteRestockingWithOutbox(ctx context.Context, id string, eventType string, payload []byte, traceparent string) ([]domain.RestockedItem, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.PersistenceError{Op: "begin delete tx", Err: err}
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `SELECT product_id, name, quantity FROM order_lines WHERE order_id=$1 FOR UPDATE`, id)
	if err != nil {
		return nil, domain.PersistenceError{Op: "select order lines", Err: err}
	}
	var lines []domain.OrderLine
	for rows.Next() {
		var ln domain.OrderLine
		if err := rows.Scan(&ln.ProductID, &ln.Name, &ln.Quantity); err != nil {
			rows.Close()
			return nil, domain.PersistenceError{Op: "scan order line", Err: err}
		}
		lines = append(lines, ln)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError{Op: "select order lines", Err: err}
	}
	if len(lines) == 0 {
		return nil, domain.NotFoundError{Kind: "order", ID: id}
	}

	restocked := make([]domain.RestockedItem, 0, len(lines))
	for _, ln := range lines {
		newQty, err := r.ledger.Increment(ctx, tx, ln.ProductID, ln.Quantity)
		if err != nil {
			// The product may have been removed from the catalog since the
			// order was placed; its units have nowhere to return.
			if errors.Is(err, pgx.ErrNoRows) {
				r.log.Warn("restock skipped, product gone", "order_id", id, "product_id", ln.ProductID)
				continue
			}
			return nil, domain.PersistenceError{Op: "restock", Err: err}
		}
		restocked = append(restocked, domain.RestockedItem{ProductID: ln.ProductID, Name: ln.Name, NewQuantity: newQty})
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id=$1`, id); err != nil {
		return nil, domain.PersistenceError{Op: "delete order lines", Err: err}
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return nil, domain.PersistenceError{Op: "delete order", Err: err}
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.NotFoundError{Kind: "order", ID: id}
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"order", id, eventType, payload, traceparent)
	if err != nil {
		return nil, domain.PersistenceError{Op: "insert outbox", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.PersistenceError{Op: "commit delete tx", Err: err}
	}
	return restocked, nil
}
