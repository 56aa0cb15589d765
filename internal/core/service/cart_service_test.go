package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pet-storefront/internal/core/domain"
)

func newTestCartService(t *testing.T, slot *fakeSlot) *CartService {
	t.Helper()
	svc := NewCartService(NewCartPersistence(slot, "k", testLogger(t)), testLogger(t))
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}

func golden(size domain.Size, price int64) domain.LineItem {
	return domain.LineItem{ProductID: "1", Name: "Golden Retriever", Slug: "golden-retriever", Size: size, UnitPrice: price}
}

func flush(t *testing.T, svc *CartService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Flush(ctx))
}

func TestCartService_ExampleScenario(t *testing.T) {
	slot := newFakeSlot()
	svc := newTestCartService(t, slot)

	cart, err := svc.AddItem(golden(domain.SizeMedium, 18000), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(36000), cart.Total)
	assert.Equal(t, 2, cart.ItemCount)

	cart, err = svc.AddItem(golden(domain.SizeMedium, 18000), 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, int64(54000), cart.Total)

	cart, err = svc.UpdateQuantity("1", domain.SizeMedium, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Zero(t, cart.Total)
	assert.Zero(t, cart.ItemCount)

	flush(t, svc)
	raw, ok := slot.raw("k")
	require.True(t, ok)
	assert.JSONEq(t, `{"items":[],"total":0,"itemCount":0}`, string(raw))
}

func TestCartService_RejectsBadInput(t *testing.T) {
	svc := newTestCartService(t, newFakeSlot())

	_, err := svc.AddItem(golden(domain.SizeMedium, 18000), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(golden(domain.SizeMedium, 18000), -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(golden("xl", 18000), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidSize)

	_, err = svc.AddItem(domain.LineItem{Size: domain.SizeSmall}, 1)
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = svc.AddItem(golden(domain.SizeSmall, -1), 1)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = svc.UpdateQuantity("1", domain.SizeSmall, -2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.UpdateSize("1", domain.SizeSmall, "tiny", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidSize)

	assert.True(t, svc.Cart().IsEmpty())
}

func TestCartService_RemoveAbsentIsNoop(t *testing.T) {
	svc := newTestCartService(t, newFakeSlot())

	before, err := svc.AddItem(golden(domain.SizeSmall, 15000), 1)
	require.NoError(t, err)

	after, err := svc.RemoveItem("1", domain.SizeLarge)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCartService_UpdateSizeAndClear(t *testing.T) {
	svc := newTestCartService(t, newFakeSlot())

	_, err := svc.AddItem(golden(domain.SizeSmall, 15000), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(golden(domain.SizeLarge, 22000), 1)
	require.NoError(t, err)

	cart, err := svc.UpdateSize("1", domain.SizeSmall, domain.SizeLarge, 22000)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, int64(44000), cart.Total)

	cart, err = svc.ClearCart()
	require.NoError(t, err)
	assert.Equal(t, domain.EmptyCart(), cart)
}

func TestCartService_RestoresOnFirstUse(t *testing.T) {
	slot := newFakeSlot()
	slot.data["k"] = []byte(`{"items":[{"id":"2","name":"Ragdoll Katt","slug":"ragdoll-katt","size":"large","price":12000,"quantity":2,"imageUrl":""}],"total":24000,"itemCount":2}`)

	svc := newTestCartService(t, slot)
	assert.Zero(t, slot.gets, "load must wait for first use")

	cart := svc.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "ragdoll-katt", cart.Lines[0].Slug)
	assert.Equal(t, int64(24000), cart.Total)

	svc.Cart()
	assert.Equal(t, 1, slot.gets, "load runs once")
}

func TestCartService_CorruptSlotStartsEmpty(t *testing.T) {
	slot := newFakeSlot()
	slot.data["k"] = []byte(`{{{{`)

	svc := newTestCartService(t, slot)
	assert.True(t, svc.Cart().IsEmpty())
	_, present := slot.raw("k")
	assert.False(t, present, "corrupt snapshot is destroyed on recovery")

	cart, err := svc.AddItem(golden(domain.SizeSmall, 15000), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount)
}

func TestCartService_SaveFailureNotSurfaced(t *testing.T) {
	slot := newFakeSlot()
	slot.putErr = errors.New("quota exceeded")
	svc := newTestCartService(t, slot)

	cart, err := svc.AddItem(golden(domain.SizeSmall, 15000), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), cart.Total)

	flush(t, svc)
	assert.Equal(t, 2, svc.Cart().ItemCount, "in-memory state stays authoritative")
}

func TestCartService_SaveDoesNotBlockCaller(t *testing.T) {
	slot := newFakeSlot()
	slot.block = make(chan struct{})
	svc := newTestCartService(t, slot)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			_, err := svc.AddItem(golden(domain.SizeSmall, 15000), 1)
			assert.NoError(t, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("commands waited for the slot write")
	}

	close(slot.block)
	flush(t, svc)

	restored, ok := NewCartPersistence(slot, "k", testLogger(t)).Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, 5, restored.ItemCount, "latest snapshot wins")
	assert.LessOrEqual(t, slot.putCount(), 5)
}

func TestCartService_PersistRoundTripAcrossInstances(t *testing.T) {
	slot := newFakeSlot()

	first := NewCartService(NewCartPersistence(slot, "k", testLogger(t)), testLogger(t))
	_, err := first.AddItem(golden(domain.SizeSmall, 15000), 1)
	require.NoError(t, err)
	want, err := first.AddItem(golden(domain.SizeLarge, 22000), 3)
	require.NoError(t, err)
	require.NoError(t, first.Close(context.Background()))

	second := newTestCartService(t, slot)
	assert.Equal(t, want, second.Cart())
}

func TestCartService_Subscribers(t *testing.T) {
	svc := newTestCartService(t, newFakeSlot())

	var mu sync.Mutex
	var seen []int
	cancel := svc.Subscribe(func(c domain.Cart) {
		mu.Lock()
		seen = append(seen, c.ItemCount)
		mu.Unlock()
	})

	_, err := svc.AddItem(golden(domain.SizeSmall, 15000), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(golden(domain.SizeSmall, 15000), 2)
	require.NoError(t, err)

	cancel()
	cancel()
	_, err = svc.ClearCart()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 3}, seen)
}

func TestCartService_SubscribersSeeChangesInOrder(t *testing.T) {
	svc := newTestCartService(t, newFakeSlot())

	var mu sync.Mutex
	var seen []int
	cancel := svc.Subscribe(func(c domain.Cart) {
		mu.Lock()
		seen = append(seen, c.ItemCount)
		mu.Unlock()
	})
	defer cancel()

	const workers, perWorker = 16, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := svc.AddItem(golden(domain.SizeSmall, 15000), 1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	want := make([]int, workers*perWorker)
	for i := range want {
		want[i] = i + 1
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, seen)
}

func TestCartService_SubscriberGetsCopy(t *testing.T) {
	svc := newTestCartService(t, newFakeSlot())
	svc.Subscribe(func(c domain.Cart) {
		if len(c.Lines) > 0 {
			c.Lines[0].Quantity = 100
		}
	})

	_, err := svc.AddItem(golden(domain.SizeSmall, 15000), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Cart().Lines[0].Quantity)
}

func TestCartService_ClosedRejectsCommands(t *testing.T) {
	svc := NewCartService(NewCartPersistence(newFakeSlot(), "k", testLogger(t)), testLogger(t))
	require.NoError(t, svc.Close(context.Background()))

	_, err := svc.AddItem(golden(domain.SizeSmall, 15000), 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = svc.ClearCart()
	assert.ErrorIs(t, err, ErrClosed)

	// closing twice is harmless
	assert.NoError(t, svc.Close(context.Background()))
}

func TestCartService_UnbuiltPanics(t *testing.T) {
	var nilSvc *CartService
	assert.Panics(t, func() { nilSvc.Cart() })

	var zero CartService
	assert.Panics(t, func() { zero.AddItem(golden(domain.SizeSmall, 1), 1) })
	assert.Panics(t, func() { zero.Subscribe(func(domain.Cart) {}) })
}

func TestCartService_ConcurrentCommandsKeepTotalsConsistent(t *testing.T) {
	slot := newFakeSlot()
	svc := newTestCartService(t, slot)

	const workers = 20
	const perWorker = 25
	var wg sync.WaitGroup
	var failures atomic.Int32

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			size := domain.Sizes[w%len(domain.Sizes)]
			for i := 0; i < perWorker; i++ {
				if _, err := svc.AddItem(golden(size, 100), 1); err != nil {
					failures.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	require.Zero(t, failures.Load())
	cart := svc.Cart()
	assert.Equal(t, workers*perWorker, cart.ItemCount)
	assert.Equal(t, int64(workers*perWorker*100), cart.Total)
	assert.Len(t, cart.Lines, len(domain.Sizes))

	flush(t, svc)
	restored, ok := NewCartPersistence(slot, "k", testLogger(t)).Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, cart, restored)
}
