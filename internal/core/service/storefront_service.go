package service

import (
	"errors"
	"fmt"

	"github.com/rl1809/pet-storefront/internal/core/domain"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrOutOfStock           = errors.New("out of stock")
	ErrQuantityExceedsStock = errors.New("quantity exceeds available stock")
)

type SizeOption struct {
	Size        domain.Size
	Price       int64
	Stock       int
	Status      domain.StockStatus
	MaxQuantity int
}

type ProductDetail struct {
	Product domain.Product
	Sizes   []SizeOption
	Related []domain.Product
}

// StorefrontService runs the page-level flows that need both the catalog and
// the cart: prices and stock limits come from the catalog, state changes go
// through the cart facade.
type StorefrontService struct {
	catalog *CatalogService
	cart    *CartService
}

func NewStorefrontService(catalog *CatalogService, cart *CartService) *StorefrontService {
	return &StorefrontService{catalog: catalog, cart: cart}
}

func (s *StorefrontService) Catalog() *CatalogService {
	return s.catalog
}

func (s *StorefrontService) Cart() *CartService {
	return s.cart
}

func (s *StorefrontService) ProductDetail(slug string) (ProductDetail, error) {
	p, ok := s.catalog.FindBySlug(slug)
	if !ok {
		return ProductDetail{}, fmt.Errorf("%w: %s", ErrProductNotFound, slug)
	}

	sizes := make([]SizeOption, 0, len(domain.Sizes))
	for _, size := range domain.Sizes {
		stock := p.StockFor(size)
		sizes = append(sizes, SizeOption{
			Size:        size,
			Price:       p.Prices[size],
			Stock:       stock,
			Status:      domain.StockStatusOf(stock),
			MaxQuantity: domain.MaxOrderQuantity(stock),
		})
	}

	return ProductDetail{
		Product: p,
		Sizes:   sizes,
		Related: s.catalog.Related(p, DefaultRelatedLimit),
	}, nil
}

// AddToCart snapshots name, slug, image and price from the catalog. The
// combined quantity of the line may not exceed MaxOrderQuantity.
func (s *StorefrontService) AddToCart(slug string, size domain.Size, quantity int) (domain.Cart, error) {
	if !size.Valid() {
		return domain.Cart{}, fmt.Errorf("%w: %q", domain.ErrInvalidSize, size)
	}
	if quantity <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	p, ok := s.catalog.FindBySlug(slug)
	if !ok {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrProductNotFound, slug)
	}

	stock := p.StockFor(size)
	if stock <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: %s %s", ErrOutOfStock, p.Slug, size)
	}

	price, _ := p.PriceFor(size)
	return s.cart.addItemWithin(domain.LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Size:      size,
		UnitPrice: price,
		ImageURL:  p.ImageURL,
	}, quantity, domain.MaxOrderQuantity(stock))
}

// SetQuantity caps at MaxOrderQuantity for the line's size. Lines whose
// product has left the catalog are capped at MaxLineQuantity.
func (s *StorefrontService) SetQuantity(productID string, size domain.Size, quantity int) (domain.Cart, error) {
	if quantity > 0 {
		limit := domain.MaxLineQuantity
		if p, ok := s.catalog.FindByID(productID); ok {
			limit = domain.MaxOrderQuantity(p.StockFor(size))
		}
		if quantity > limit {
			return domain.Cart{}, fmt.Errorf("%w: %d requested, max %d", ErrQuantityExceedsStock, quantity, limit)
		}
	}
	return s.cart.UpdateQuantity(productID, size, quantity)
}

// ChangeSize reprices the line at the catalog price of the new size. A line
// that lands on an existing one merges with it, and the merged quantity may
// not exceed MaxOrderQuantity for the new size.
func (s *StorefrontService) ChangeSize(productID string, oldSize, newSize domain.Size) (domain.Cart, error) {
	if !newSize.Valid() {
		return domain.Cart{}, fmt.Errorf("%w: %q", domain.ErrInvalidSize, newSize)
	}
	p, ok := s.catalog.FindByID(productID)
	if !ok {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if p.StockFor(newSize) <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: %s %s", ErrOutOfStock, p.Slug, newSize)
	}

	price, _ := p.PriceFor(newSize)
	return s.cart.updateSizeWithin(productID, oldSize, newSize, price, domain.MaxOrderQuantity(p.StockFor(newSize)))
}

func (s *StorefrontService) RemoveFromCart(productID string, size domain.Size) (domain.Cart, error) {
	return s.cart.RemoveItem(productID, size)
}

func (s *StorefrontService) ClearCart() (domain.Cart, error) {
	return s.cart.ClearCart()
}

func (s *StorefrontService) Summary() domain.Summary {
	return domain.Summarize(s.cart.Cart())
}
