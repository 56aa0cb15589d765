package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/pet-storefront/internal/adapter/handler"
	"github.com/rl1809/pet-storefront/internal/adapter/storage"
	"github.com/rl1809/pet-storefront/internal/config"
	"github.com/rl1809/pet-storefront/internal/core/service"
	"github.com/rl1809/pet-storefront/internal/logger"
	"github.com/rl1809/pet-storefront/internal/observability"
	"github.com/rl1809/pet-storefront/internal/port"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: "pet-storefront",
		Environment: cfg.LogMode,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		log.Fatal("failed to init tracing", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
	}()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close failed", "error", err)
			}
		}
		log.Info("connections closed")
	}()

	// Catalog
	repo, closeCatalog, err := openCatalog(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open catalog", "source", cfg.CatalogSource, "error", err)
	}
	if closeCatalog != nil {
		closers = append(closers, closeCatalog)
	}
	catalog, err := service.NewCatalogService(ctx, repo)
	if err != nil {
		log.Fatal("failed to load catalog", "error", err)
	}
	log.Info("catalog loaded", "source", cfg.CatalogSource, "products", len(catalog.ListAll()))

	// Cart slot
	slot, slotKey, closeSlot, err := openSlot(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open cart slot", "backend", cfg.SlotBackend, "error", err)
	}
	if closeSlot != nil {
		closers = append(closers, closeSlot)
	}

	cartService := service.NewCartService(service.NewCartPersistence(slot, slotKey, log), log)
	storefront := service.NewStorefrontService(catalog, cartService)

	// gRPC health
	grpcHandler := handler.NewGRPCHandler(log)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		log.Fatal("failed to listen", "port", cfg.GRPCPort, "error", err)
	}

	// HTTP
	httpHandler := handler.NewHTTPHandler(storefront, log)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      httpHandler.Router(cfg.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("gRPC server listening", "port", cfg.GRPCPort)
		if err := grpcHandler.Server().Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		grpcHandler.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown", "error", err)
		}
		log.Info("HTTP server stopped")

		grpcHandler.Server().GracefulStop()
		log.Info("gRPC server stopped")

		if err := cartService.Close(shutdownCtx); err != nil {
			log.Warn("cart writer did not drain", "error", err)
		}
		log.Info("cart saved")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
	}
}

func openCatalog(ctx context.Context, cfg config.Config, log *logger.Logger) (port.ProductRepository, func() error, error) {
	switch cfg.CatalogSource {
	case config.CatalogSourceFixture:
		return storage.NewFixtureCatalog(), nil, nil
	case config.CatalogSourceMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		log.Info("connected to mysql")
		return storage.NewMySQLCatalog(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}

// openSlot returns the slot and the key the cart lives under. Redis is shared
// between processes, so its key carries the session id.
func openSlot(ctx context.Context, cfg config.Config, log *logger.Logger) (port.CartSlot, string, func() error, error) {
	switch cfg.SlotBackend {
	case config.SlotBackendSQLite:
		slot, err := storage.OpenSQLiteSlot(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, "", nil, err
		}
		log.Info("using sqlite cart slot", "path", cfg.SQLitePath, "key", cfg.SlotKey)
		return slot, cfg.SlotKey, slot.Close, nil
	case config.SlotBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			PoolSize: 10,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, "", nil, fmt.Errorf("ping redis: %w", err)
		}

		session := cfg.SessionID
		if session == "" {
			session = uuid.NewString()
		}
		key := cfg.SlotKey + ":" + session
		log.Info("connected to redis", "addr", cfg.RedisAddr, "key", key)
		return storage.NewRedisSlot(rdb, cfg.SlotTTL), key, rdb.Close, nil
	case config.SlotBackendMemory:
		log.Warn("using in-memory cart slot, cart will not survive a restart")
		return storage.NewMemorySlot(), cfg.SlotKey, nil, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown slot backend %q", cfg.SlotBackend)
	}
}
