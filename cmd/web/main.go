package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"linguini-ordering-web/internal/cache"
	"linguini-ordering-web/internal/cart"
	"linguini-ordering-web/internal/config"
	"linguini-ordering-web/internal/handler"
	"linguini-ordering-web/internal/router"
	"linguini-ordering-web/internal/service"
	"linguini-ordering-web/internal/storage"
	"linguini-ordering-web/internal/upstream"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Linguini ordering web...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)
	log.Printf("Upstream API: %s", cfg.Upstream.BaseURL)

	// Initialize guest-cart storage based on config
	var guestRepo storage.GuestCartRepository
	switch cfg.GuestDB.Type {
	case "mysql":
		mysqlRepo, err := storage.NewMySQLGuestCartRepository(cfg.GuestDB.DSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		guestRepo = mysqlRepo
		log.Println("MySQL guest-cart storage initialized")
	case "redis":
		redisRepo, err := storage.NewRedisGuestCartRepository(storage.RedisGuestCartConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Redis storage: %v", err)
		}
		guestRepo = redisRepo
		log.Println("Redis guest-cart storage initialized")
	case "memory":
		guestRepo = storage.NewMemoryGuestCartRepository()
		log.Println("In-memory guest-cart storage initialized (carts do not survive restarts)")
	default: // sqlite
		sqliteRepo, err := storage.NewSQLiteGuestCartRepository(cfg.GuestDB.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		guestRepo = sqliteRepo
		log.Println("SQLite guest-cart storage initialized")
	}
	defer guestRepo.Close()

	// Initialize badge-count cache (optional Redis, warn-and-degrade)
	var countCache cache.CountCache
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCountCache(cache.RedisCountCacheConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			log.Printf("Warning: Redis count cache failed, falling back to memory: %v", err)
		} else {
			countCache = redisCache
			log.Println("Redis count cache initialized")
		}
	}
	if countCache == nil {
		countCache = cache.NewMemoryCountCache(cfg.Cache.TTL)
		log.Println("Memory count cache initialized")
	}
	defer countCache.Close()

	// Cart store registry and upstream client
	registry := cart.NewRegistry(guestRepo)
	cartClient := upstream.NewCartClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)

	// Services
	cartService := service.NewCartService(registry, cartClient, countCache)
	if cartService == nil {
		log.Fatal("Failed to initialize cart service")
	}

	// Handlers
	healthHandler := handler.New(cfg.App.Version, registry)
	cartHandler := handler.NewCartHandler(cartService)
	checkoutHandler := handler.NewCheckoutHandler(cartService)

	// Create router
	r := router.New(router.Config{
		Handler:         healthHandler,
		CartHandler:     cartHandler,
		CheckoutHandler: checkoutHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
