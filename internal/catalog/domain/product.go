package domain

import "time"

// Product is the catalog's view of an item. QuantityInStock is mutated
// only through the inventory ledger's primitives, never by catalog CRUD
// read-modify-write.
type Product struct {
	ID              string
	Name            string
	Description     string
	PriceCents      int64
	QuantityInStock int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProductUpdate carries the admin-editable fields; nil means unchanged.
// Stock is deliberately absent: quantity_in_stock moves only through the
// inventory ledger's primitives.
type ProductUpdate struct {
	Name        *string
	Description *string
	PriceCents  *int64
}
