package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidProduct = errors.New("invalid product")

const (
	// MaxLineQuantity caps a single cart line regardless of stock.
	MaxLineQuantity = 10
	lowStockLimit   = 2
)

type StockStatus string

const (
	StockStatusOut StockStatus = "out_of_stock"
	StockStatusLow StockStatus = "low_stock"
	StockStatusIn  StockStatus = "in_stock"
)

type Product struct {
	ID               string
	Slug             string
	Name             string
	Category         string
	ShortDescription string
	LongDescription  string
	ImageURL         string
	Images           []string
	Prices           map[Size]int64 // minor currency units
	Stock            map[Size]int
	Tags             []string
	SEOTitle         string
	SEODescription   string
}

// Validate checks that prices and stock each cover exactly the three sizes.
func (p Product) Validate() error {
	if p.ID == "" || p.Slug == "" {
		return fmt.Errorf("%w: id and slug are required", ErrInvalidProduct)
	}
	if len(p.Prices) != len(Sizes) || len(p.Stock) != len(Sizes) {
		return fmt.Errorf("%w: %s must define prices and stock for exactly %d sizes", ErrInvalidProduct, p.Slug, len(Sizes))
	}
	for _, s := range Sizes {
		price, ok := p.Prices[s]
		if !ok || price < 0 {
			return fmt.Errorf("%w: %s has no valid %s price", ErrInvalidProduct, p.Slug, s)
		}
		stock, ok := p.Stock[s]
		if !ok || stock < 0 {
			return fmt.Errorf("%w: %s has no valid %s stock", ErrInvalidProduct, p.Slug, s)
		}
	}
	return nil
}

func (p Product) PriceFor(s Size) (int64, bool) {
	price, ok := p.Prices[s]
	return price, ok
}

func (p Product) StockFor(s Size) int {
	return p.Stock[s]
}

func (p Product) StockStatus(s Size) StockStatus {
	return StockStatusOf(p.Stock[s])
}

// LowestPrice is the "from" price shown on listings.
func (p Product) LowestPrice() int64 {
	var lowest int64 = -1
	for _, s := range Sizes {
		if price := p.Prices[s]; lowest < 0 || price < lowest {
			lowest = price
		}
	}
	if lowest < 0 {
		return 0
	}
	return lowest
}

func StockStatusOf(stock int) StockStatus {
	switch {
	case stock <= 0:
		return StockStatusOut
	case stock <= lowStockLimit:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

// MaxOrderQuantity is how many units of one size a single line may hold.
func MaxOrderQuantity(stock int) int {
	if stock < 0 {
		return 0
	}
	return min(MaxLineQuantity, stock)
}
