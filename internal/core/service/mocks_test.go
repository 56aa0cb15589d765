package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/rl1809/pet-storefront/internal/core/domain"
	"github.com/rl1809/pet-storefront/internal/logger"
	"github.com/rl1809/pet-storefront/internal/port"
)

type fakeSlot struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	putErr error
	delErr error
	puts   int
	gets   int
	dels   int
	block  chan struct{}
}

func newFakeSlot() *fakeSlot {
	return &fakeSlot{data: make(map[string][]byte)}
}

func (f *fakeSlot) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, port.ErrSlotEmpty
	}
	return v, nil
}

func (f *fakeSlot) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeSlot) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dels++
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.data, key)
	return nil
}

func (f *fakeSlot) raw(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *fakeSlot) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

type fakeCatalogRepo struct {
	products []domain.Product
	err      error
}

func (f fakeCatalogRepo) ListProducts(context.Context) ([]domain.Product, error) {
	return f.products, f.err
}

func testLogger(t *testing.T) *logger.Logger {
	return logger.NewFromZap(zaptest.NewLogger(t))
}

func testProduct(id, slug, name, category string, prices [3]int64, stock [3]int) domain.Product {
	return domain.Product{
		ID:       id,
		Slug:     slug,
		Name:     name,
		Category: category,
		ImageURL: "https://example.com/" + slug + ".jpg",
		Prices: map[domain.Size]int64{
			domain.SizeSmall:  prices[0],
			domain.SizeMedium: prices[1],
			domain.SizeLarge:  prices[2],
		},
		Stock: map[domain.Size]int{
			domain.SizeSmall:  stock[0],
			domain.SizeMedium: stock[1],
			domain.SizeLarge:  stock[2],
		},
	}
}

func testCatalogProducts() []domain.Product {
	return []domain.Product{
		testProduct("1", "golden-retriever", "Golden Retriever", "Hund", [3]int64{15000, 18000, 22000}, [3]int{3, 5, 2}),
		testProduct("2", "ragdoll-katt", "Ragdoll Katt", "Katt", [3]int64{8000, 10000, 12000}, [3]int{2, 4, 0}),
		testProduct("3", "dwarf-hamster", "Dvärg Hamster", "Smådjur", [3]int64{200, 250, 300}, [3]int{10, 12, 5}),
		testProduct("4", "labrador", "Labrador", "Hund", [3]int64{14000, 17000, 21000}, [3]int{4, 3, 2}),
		testProduct("5", "maine-coon", "Maine Coon", "Katt", [3]int64{9000, 12000, 15000}, [3]int{1, 3, 2}),
	}
}
