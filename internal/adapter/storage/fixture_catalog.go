package storage

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/pet-storefront/internal/core/domain"
)

//go:embed fixtures/animals.yaml
var defaultFixture []byte

type fixtureFile struct {
	Products []fixtureProduct `yaml:"products"`
}

type fixtureProduct struct {
	ID               string           `yaml:"id"`
	Slug             string           `yaml:"slug"`
	Name             string           `yaml:"name"`
	Category         string           `yaml:"category"`
	ShortDescription string           `yaml:"short_description"`
	LongDescription  string           `yaml:"long_description"`
	ImageURL         string           `yaml:"image_url"`
	Images           []string         `yaml:"images"`
	Prices           map[string]int64 `yaml:"prices"`
	Stock            map[string]int   `yaml:"stock"`
	Tags             []string         `yaml:"tags"`
	SEOTitle         string           `yaml:"seo_title"`
	SEODescription   string           `yaml:"seo_description"`
}

// FixtureCatalog serves products decoded from a YAML document.
type FixtureCatalog struct {
	raw []byte
}

func NewFixtureCatalog() *FixtureCatalog {
	return &FixtureCatalog{raw: defaultFixture}
}

func NewFixtureCatalogFromYAML(raw []byte) *FixtureCatalog {
	return &FixtureCatalog{raw: raw}
}

func (f *FixtureCatalog) ListProducts(_ context.Context) ([]domain.Product, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(f.raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog fixture: %w", err)
	}

	products := make([]domain.Product, 0, len(file.Products))
	for _, fp := range file.Products {
		p, err := fp.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (fp fixtureProduct) toDomain() (domain.Product, error) {
	prices := make(map[domain.Size]int64, len(fp.Prices))
	for raw, v := range fp.Prices {
		s, err := domain.ParseSize(raw)
		if err != nil {
			return domain.Product{}, fmt.Errorf("product %s price: %w", fp.Slug, err)
		}
		prices[s] = v
	}
	stock := make(map[domain.Size]int, len(fp.Stock))
	for raw, v := range fp.Stock {
		s, err := domain.ParseSize(raw)
		if err != nil {
			return domain.Product{}, fmt.Errorf("product %s stock: %w", fp.Slug, err)
		}
		stock[s] = v
	}

	return domain.Product{
		ID:               fp.ID,
		Slug:             fp.Slug,
		Name:             fp.Name,
		Category:         fp.Category,
		ShortDescription: fp.ShortDescription,
		LongDescription:  fp.LongDescription,
		ImageURL:         fp.ImageURL,
		Images:           fp.Images,
		Prices:           prices,
		Stock:            stock,
		Tags:             fp.Tags,
		SEOTitle:         fp.SEOTitle,
		SEODescription:   fp.SEODescription,
	}, nil
}
