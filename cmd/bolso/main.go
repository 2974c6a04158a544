package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bolso/internal/amqp"
	"bolso/internal/cache"
	"bolso/internal/config"
	apphttp "bolso/internal/http"
	"bolso/internal/log"
	"bolso/internal/services"
	"bolso/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	// Open pings the backend and applies pending migrations itself
	store, err := storage.Open(storage.Dialect(cfg.DBDriver), cfg.DSN())
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer store.Close()

	// Response cache for the month-keyed read endpoints
	cacheManager := cache.NewManager()
	var cacheStore cache.Store
	switch cfg.CacheBackend {
	case "redis":
		redisStore, err := cache.NewRedisStore(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Error("Failed to connect to Redis", log.FieldError, err)
			os.Exit(1)
		}
		defer redisStore.Close()
		cacheStore = redisStore
		logger.Info("Initialized Redis cache", "ttl", cfg.CacheTTL)
	default:
		memStore := cache.NewMemoryStore(cfg.CacheTTL)
		cacheManager.Register(memStore)
		cacheStore = memStore
		logger.Info("Initialized in-memory cache", "ttl", cfg.CacheTTL)
	}
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	// Alert events are optional; without a broker they are simply skipped
	var publisher services.AlertPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Alert events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Alert events disabled - no AMQP_URL provided")
	}

	alerts := services.NewAlertService(store, store, store, publisher, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions: services.NewTransactionService(store, alerts, logger),
		Insights:     services.NewInsightService(store, store, store, logger),
		Goals:        services.NewGoalService(store, logger),
		Alerts:       alerts,
		Accounts:     services.NewAccountService(store, logger),
		Cache:        cacheStore,
		Pinger:       store,
		APIKey:       cfg.APIKey,
		Logger:       logger,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting bolso server", "port", cfg.Port, "driver", cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
