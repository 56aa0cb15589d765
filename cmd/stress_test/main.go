package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pet-storefront/internal/adapter/storage"
	"github.com/rl1809/pet-storefront/internal/config"
	"github.com/rl1809/pet-storefront/internal/core/domain"
	"github.com/rl1809/pet-storefront/internal/core/service"
	"github.com/rl1809/pet-storefront/internal/logger"
)

const (
	workers      = 50
	opsPerWorker = 200
	unitPrice    = 100
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect redis", "error", err)
	}
	defer rdb.Close()

	key := fmt.Sprintf("%s:stress-%s", cfg.SlotKey, uuid.NewString())
	defer rdb.Del(ctx, key)

	slot := storage.NewRedisSlot(rdb, time.Hour)
	persistence := service.NewCartPersistence(slot, key, log)
	cartService := service.NewCartService(persistence, log)

	var notified atomic.Int32
	cancel := cartService.Subscribe(func(domain.Cart) { notified.Add(1) })
	defer cancel()

	var failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	// Every worker hammers its own product id across all sizes, then removes
	// the small line again.
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			productID := fmt.Sprintf("animal-%d", id)
			for op := 0; op < opsPerWorker; op++ {
				item := domain.LineItem{
					ProductID: productID,
					Name:      productID,
					Slug:      productID,
					Size:      domain.Sizes[op%len(domain.Sizes)],
					UnitPrice: unitPrice,
				}
				if _, err := cartService.AddItem(item, 1); err != nil {
					failCount.Add(1)
				}
			}
			if _, err := cartService.RemoveItem(productID, domain.SizeSmall); err != nil {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	if err := cartService.Close(ctx); err != nil {
		log.Fatal("failed to flush cart", "error", err)
	}

	cart := cartService.Cart()
	smallPerWorker := (opsPerWorker + len(domain.Sizes) - 1) / len(domain.Sizes)
	wantCount := workers * (opsPerWorker - smallPerWorker)

	fmt.Println("========== CART STRESS RESULTS ==========")
	fmt.Printf("Workers:          %d\n", workers)
	fmt.Printf("Commands:         %d\n", workers*(opsPerWorker+1))
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Notifications:    %d\n", notified.Load())
	fmt.Printf("Lines:            %d\n", len(cart.Lines))
	fmt.Printf("Item count:       %d\n", cart.ItemCount)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if cart.ItemCount == wantCount && cart.Total == int64(wantCount*unitPrice) && len(cart.Lines) == workers*2 {
		fmt.Println("PASS: totals match the commands issued")
	} else {
		fmt.Printf("FAIL: expected %d items in %d lines, got %d in %d (total %d)\n",
			wantCount, workers*2, cart.ItemCount, len(cart.Lines), cart.Total)
	}

	saved, ok := persistence.Load(ctx)
	switch {
	case !ok:
		fmt.Println("FAIL: no snapshot in redis")
	case saved.ItemCount != cart.ItemCount || saved.Total != cart.Total || len(saved.Lines) != len(cart.Lines):
		fmt.Printf("FAIL: snapshot has %d items, memory has %d\n", saved.ItemCount, cart.ItemCount)
	default:
		fmt.Println("PASS: snapshot in redis matches memory")
	}
}
