package engine

import "github.com/rl1809/pet-storefront/internal/core/domain"

// Apply returns the cart that results from running cmd against current.
// current is never modified and the result never shares its line slice.
func Apply(current domain.Cart, cmd Command) domain.Cart {
	switch c := cmd.(type) {
	case AddItem:
		return addItem(current, c)
	case RemoveItem:
		return removeItem(current, c.ProductID, c.Size)
	case UpdateQuantity:
		return updateQuantity(current, c)
	case UpdateSize:
		return updateSize(current, c)
	case ClearCart:
		return domain.EmptyCart()
	case LoadCart:
		return c.Snapshot.Clone()
	default:
		return current.Clone()
	}
}

func addItem(current domain.Cart, c AddItem) domain.Cart {
	next := current.Clone()
	if c.Quantity <= 0 {
		return next
	}

	if i := indexOf(next.Lines, c.Item.ProductID, c.Item.Size); i >= 0 {
		// unit price of an existing line is kept; the new one is ignored
		next.Lines[i].Quantity += c.Quantity
		return next.Recompute()
	}

	next.Lines = append(next.Lines, domain.CartLine{
		ProductID:   c.Item.ProductID,
		ProductName: c.Item.Name,
		Slug:        c.Item.Slug,
		ImageURL:    c.Item.ImageURL,
		Size:        c.Item.Size,
		UnitPrice:   c.Item.UnitPrice,
		Quantity:    c.Quantity,
	})
	return next.Recompute()
}

func removeItem(current domain.Cart, productID string, size domain.Size) domain.Cart {
	lines := make([]domain.CartLine, 0, len(current.Lines))
	for _, l := range current.Lines {
		if !l.Matches(productID, size) {
			lines = append(lines, l)
		}
	}
	return domain.Cart{Lines: lines}.Recompute()
}

func updateQuantity(current domain.Cart, c UpdateQuantity) domain.Cart {
	if c.Quantity <= 0 {
		return removeItem(current, c.ProductID, c.Size)
	}

	next := current.Clone()
	if i := indexOf(next.Lines, c.ProductID, c.Size); i >= 0 {
		next.Lines[i].Quantity = c.Quantity
	}
	return next.Recompute()
}

// updateSize moves a line to another size. When the target size is already
// in the cart the two lines are merged into the existing one so that
// (product, size) stays unique.
func updateSize(current domain.Cart, c UpdateSize) domain.Cart {
	next := current.Clone()
	from := indexOf(next.Lines, c.ProductID, c.OldSize)
	if from < 0 {
		return next.Recompute()
	}

	if c.OldSize == c.NewSize {
		next.Lines[from].UnitPrice = c.NewPrice
		return next.Recompute()
	}

	to := indexOf(next.Lines, c.ProductID, c.NewSize)
	if to < 0 {
		next.Lines[from].Size = c.NewSize
		next.Lines[from].UnitPrice = c.NewPrice
		return next.Recompute()
	}

	next.Lines[to].Quantity += next.Lines[from].Quantity
	next.Lines[to].UnitPrice = c.NewPrice
	next.Lines = append(next.Lines[:from], next.Lines[from+1:]...)
	return next.Recompute()
}

func indexOf(lines []domain.CartLine, productID string, size domain.Size) int {
	for i, l := range lines {
		if l.Matches(productID, size) {
			return i
		}
	}
	return -1
}
