package domain

type OrderPlaced struct {
	OrderID       string      `json:"order_id"`
	UserID        string      `json:"user_id"`
	SubtotalCents int64       `json:"subtotal_cents"`
	Lines         []OrderLine `json:"lines"`
}

type OrderStatusChanged struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}

type OrderDeleted struct {
	OrderID string      `json:"order_id"`
	UserID  string      `json:"user_id"`
	Lines   []OrderLine `json:"lines"`
}
