package engine

import "github.com/rl1809/pet-storefront/internal/core/domain"

// Command is one of the cart transitions below. The set is closed: only
// types in this package implement it.
type Command interface {
	commandName() string
}

type AddItem struct {
	Item     domain.LineItem
	Quantity int
}

type RemoveItem struct {
	ProductID string
	Size      domain.Size
}

type UpdateQuantity struct {
	ProductID string
	Size      domain.Size
	Quantity  int
}

type UpdateSize struct {
	ProductID string
	OldSize   domain.Size
	NewSize   domain.Size
	NewPrice  int64
}

type ClearCart struct{}

// LoadCart replaces the whole state with a persisted snapshot.
type LoadCart struct {
	Snapshot domain.Cart
}

func (AddItem) commandName() string        { return "add_item" }
func (RemoveItem) commandName() string     { return "remove_item" }
func (UpdateQuantity) commandName() string { return "update_quantity" }
func (UpdateSize) commandName() string     { return "update_size" }
func (ClearCart) commandName() string      { return "clear_cart" }
func (LoadCart) commandName() string       { return "load_cart" }

// Name is the stable identifier used in logs.
func Name(cmd Command) string {
	if cmd == nil {
		return "unknown"
	}
	return cmd.commandName()
}
