package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/pet-storefront/internal/core/domain"
	"github.com/rl1809/pet-storefront/internal/port"
)

const (
	// CategoryAll matches every product in Search.
	CategoryAll         = "all"
	DefaultRelatedLimit = 3
)

var ErrDuplicateProduct = errors.New("duplicate product")

// CatalogService is a read-only, in-memory view over the catalog loaded once
// at startup.
type CatalogService struct {
	products []domain.Product
	byID     map[string]int
	bySlug   map[string]int
}

func NewCatalogService(ctx context.Context, repo port.ProductRepository) (*CatalogService, error) {
	products, err := repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	c := &CatalogService{
		products: products,
		byID:     make(map[string]int, len(products)),
		bySlug:   make(map[string]int, len(products)),
	}
	for i, p := range products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: id %s", ErrDuplicateProduct, p.ID)
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("%w: slug %s", ErrDuplicateProduct, p.Slug)
		}
		c.byID[p.ID] = i
		c.bySlug[p.Slug] = i
	}
	return c, nil
}

func (c *CatalogService) FindByID(id string) (domain.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

func (c *CatalogService) FindBySlug(slug string) (domain.Product, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

func (c *CatalogService) ListAll() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Categories returns each category once, in first-seen order.
func (c *CatalogService) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// Search matches query case-insensitively against name or category.
func (c *CatalogService) Search(query, category string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)

	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if category != "" && category != CategoryAll && p.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Category), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *CatalogService) Related(p domain.Product, limit int) []domain.Product {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	var out []domain.Product
	for _, other := range c.products {
		if len(out) == limit {
			break
		}
		if other.Category == p.Category && other.ID != p.ID {
			out = append(out, other)
		}
	}
	return out
}
