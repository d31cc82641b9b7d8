package domain

import "fmt"

// ValidationError means the request itself was malformed. Nothing was
// mutated; retrying the same payload will fail the same way.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// NotFoundError means a referenced id does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.Kind, e.ID) }

// InsufficientStockError means a conditional decrement lost to a
// competing order or the product is genuinely out of stock. No stock was
// consumed; safe to retry after a fresh read.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (requested %d)", e.Name, e.Requested)
}

// PersistenceError wraps a storage or transaction infrastructure failure.
// State is unknown without inspection and the operation is not auto-retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e PersistenceError) Unwrap() error { return e.Err }
