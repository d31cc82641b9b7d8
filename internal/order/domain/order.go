package domain

import "time"

type OrderStatus string

const (
	StatusPlaced     OrderStatus = "placed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// ParseStatus validates a free-form status string against the closed set.
// Any status is reachable from any status; only membership is enforced.
func ParseStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return OrderStatus(s), nil
	}
	return "", ValidationError{Msg: "invalid status: " + s}
}

type Order struct {
	ID            string
	UserID        string
	Lines         []OrderLine
	SubtotalCents int64
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderLine freezes the product's name and price at purchase time, so
// later catalog edits never rewrite order history.
type OrderLine struct {
	ProductID  string
	Name       string
	PriceCents int64
	Quantity   int
}

func NewOrder(id, userID string, lines []OrderLine) Order {
	var subtotal int64
	for _, ln := range lines {
		subtotal += int64(ln.Quantity) * ln.PriceCents
	}
	now := time.Now().UTC()
	return Order{
		ID:            id,
		UserID:        userID,
		Lines:         lines,
		SubtotalCents: subtotal,
		Status:        StatusPlaced,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RestockedItem summarizes one product's stock level after an order
// deletion returned its reserved units.
type RestockedItem struct {
	ProductID   string
	Name        string
	NewQuantity int
}
