package domain

// Amounts share the unit of Product.Prices.
const (
	FreeShippingThreshold int64 = 500
	StandardShippingCost  int64 = 99
)

type Summary struct {
	Subtotal  int64
	Shipping  int64
	Total     int64
	ItemCount int
}

func ShippingFor(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return StandardShippingCost
}

func Summarize(c Cart) Summary {
	var shipping int64
	if !c.IsEmpty() {
		shipping = ShippingFor(c.Total)
	}
	return Summary{
		Subtotal:  c.Total,
		Shipping:  shipping,
		Total:     c.Total + shipping,
		ItemCount: c.ItemCount,
	}
}
