package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rl1809/pet-storefront/internal/core/domain"
)

// MySQLCatalog reads the catalog from the products and product_variants
// tables. images and tags are JSON arrays.
type MySQLCatalog struct {
	db *sql.DB
}

func NewMySQLCatalog(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

func (m *MySQLCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, slug, name, category, short_description, long_description,
		       image_url, images, tags, seo_title, seo_description
		FROM products
		ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	index := make(map[string]int)
	for rows.Next() {
		var (
			p            domain.Product
			images, tags []byte
		)
		err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Category, &p.ShortDescription, &p.LongDescription,
			&p.ImageURL, &images, &tags, &p.SEOTitle, &p.SEODescription)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if err := decodeList(images, &p.Images); err != nil {
			return nil, fmt.Errorf("product %s images: %w", p.ID, err)
		}
		if err := decodeList(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("product %s tags: %w", p.ID, err)
		}
		p.Prices = make(map[domain.Size]int64, len(domain.Sizes))
		p.Stock = make(map[domain.Size]int, len(domain.Sizes))

		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	if err := m.loadVariants(ctx, products, index); err != nil {
		return nil, err
	}
	return products, nil
}

func (m *MySQLCatalog) loadVariants(ctx context.Context, products []domain.Product, index map[string]int) error {
	rows, err := m.db.QueryContext(ctx, `SELECT product_id, size, price, stock FROM product_variants`)
	if err != nil {
		return fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID, rawSize string
			price              int64
			stock              int
		)
		if err := rows.Scan(&productID, &rawSize, &price, &stock); err != nil {
			return fmt.Errorf("scan variant: %w", err)
		}
		i, ok := index[productID]
		if !ok {
			continue
		}
		size, err := domain.ParseSize(rawSize)
		if err != nil {
			return fmt.Errorf("product %s variant: %w", productID, err)
		}
		products[i].Prices[size] = price
		products[i].Stock[size] = stock
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate variants: %w", err)
	}
	return nil
}

func decodeList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
