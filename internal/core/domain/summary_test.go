package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShippingFor(t *testing.T) {
	assert.Equal(t, StandardShippingCost, ShippingFor(1))
	assert.Equal(t, StandardShippingCost, ShippingFor(FreeShippingThreshold-1))
	assert.Zero(t, ShippingFor(FreeShippingThreshold))
	assert.Zero(t, ShippingFor(18000))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(EmptyCart()))

	cart := Cart{Lines: []CartLine{
		{ProductID: "3", Size: SizeSmall, UnitPrice: 200, Quantity: 1},
		{ProductID: "3", Size: SizeLarge, UnitPrice: 100, Quantity: 1},
	}}.Recompute()
	assert.Equal(t, Summary{Subtotal: 300, Shipping: 99, Total: 399, ItemCount: 2}, Summarize(cart))

	cart = Cart{Lines: []CartLine{{ProductID: "1", Size: SizeMedium, UnitPrice: 18000, Quantity: 2}}}.Recompute()
	assert.Equal(t, Summary{Subtotal: 36000, Shipping: 0, Total: 36000, ItemCount: 2}, Summarize(cart))
}

func TestCart_CloneDoesNotAlias(t *testing.T) {
	c := Cart{Lines: []CartLine{{ProductID: "1", Size: SizeSmall, UnitPrice: 5, Quantity: 1}}}.Recompute()
	clone := c.Clone()
	clone.Lines[0].Quantity = 9

	assert.Equal(t, 1, c.Lines[0].Quantity)
	line, ok := c.Find("1", SizeSmall)
	assert.True(t, ok)
	assert.Equal(t, int64(5), line.Subtotal())
	_, ok = c.Find("1", SizeLarge)
	assert.False(t, ok)
}
