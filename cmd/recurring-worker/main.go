package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bolso/internal/amqp"
	"bolso/internal/config"
	"bolso/internal/log"
	"bolso/internal/services"
	"bolso/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.Open(storage.Dialect(cfg.DBDriver), cfg.DSN())
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer store.Close()

	// Goal alerts fire for materialized expenses too, and reach the broker
	// when one is configured
	var publisher services.AlertPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without alert events", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	alerts := services.NewAlertService(store, store, store, publisher, logger)
	transactions := services.NewTransactionService(store, alerts, logger)
	processor := services.NewRecurringProcessor(store, transactions, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring processor configured", "interval", cfg.RecurringInterval)

	// Run once on startup, then on the ticker
	if count, err := processor.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", log.FieldError, err)
	} else {
		logger.Info("Initial processing complete", "created", count)
	}

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := processor.ProcessDue(ctx, now)
				if err != nil {
					logger.Error("Periodic processing failed", log.FieldError, err)
					continue
				}
				logger.Info("Periodic processing complete", "created", count)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	logger.Info("Recurring-worker stopped gracefully")
}
