package domain

// StockLevel is a point-in-time, non-transactional observation of one
// product's available quantity.
type StockLevel struct {
	ProductID       string
	QuantityInStock int
}
