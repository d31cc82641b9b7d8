package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderSubtotal(t *testing.T) {
	o := NewOrder("o1", "u1", []OrderLine{
		{ProductID: "p1", Name: "mug", PriceCents: 1250, Quantity: 2},
		{ProductID: "p2", Name: "pen", PriceCents: 300, Quantity: 3},
	})

	assert.Equal(t, int64(2*1250+3*300), o.SubtotalCents)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"placed", "processing", "shipped", "delivered", "cancelled"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, OrderStatus(s), st)
	}

	_, err := ParseStatus("bogus")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
}
