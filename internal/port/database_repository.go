package port

import (
	"context"

	"github.com/rl1809/pet-storefront/internal/core/domain"
)

type ProductRepository interface {
	// ListProducts returns the full catalog in display order
	ListProducts(ctx context.Context) ([]domain.Product, error)
}
