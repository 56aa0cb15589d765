package domain

// LineItem is what a caller hands over when adding to the cart. Name, slug,
// image and price are denormalized from the product at add time.
type LineItem struct {
	ProductID string
	Name      string
	Slug      string
	Size      Size
	UnitPrice int64
	ImageURL  string
}

type CartLine struct {
	ProductID   string
	ProductName string
	Slug        string
	ImageURL    string
	Size        Size
	UnitPrice   int64
	Quantity    int
}

func (l CartLine) Matches(productID string, size Size) bool {
	return l.ProductID == productID && l.Size == size
}

func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart keeps Total and ItemCount as a cache over Lines; both are rebuilt by
// Recompute after every structural change.
type Cart struct {
	Lines     []CartLine
	Total     int64
	ItemCount int
}

func EmptyCart() Cart {
	return Cart{Lines: []CartLine{}}
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c Cart) Find(productID string, size Size) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.Matches(productID, size) {
			return l, true
		}
	}
	return CartLine{}, false
}

// Clone returns a cart that shares no backing array with c.
func (c Cart) Clone() Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines, Total: c.Total, ItemCount: c.ItemCount}
}

func (c Cart) Recompute() Cart {
	var total int64
	count := 0
	for _, l := range c.Lines {
		total += l.Subtotal()
		count += l.Quantity
	}
	c.Total = total
	c.ItemCount = count
	return c
}
