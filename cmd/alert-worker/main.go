package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bolso/internal/amqp"
	"bolso/internal/config"
	"bolso/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting alert-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	forwarder := &webhookForwarder{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
	if cfg.WebhookURL != "" {
		logger.Info("Forwarding alerts to webhook", "url", cfg.WebhookURL)
	} else {
		logger.Info("No WEBHOOK_URL provided - alerts will only be logged")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if err := amqpClient.ConsumeAlerts(ctx, forwarder.handle); err != nil && err != context.Canceled {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}

// webhookForwarder pushes consumed alert events to an HTTP endpoint. With
// no URL configured it degrades to logging each event.
type webhookForwarder struct {
	url    string
	client *http.Client
	logger *log.Logger
}

func (f *webhookForwarder) handle(msg *amqp.AlertEventMessage) error {
	f.logger.Info("Alert event received",
		log.FieldAlertID, msg.ID,
		log.FieldAlertType, msg.Type,
		"message", msg.Message)

	if f.url == "" {
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	resp, err := f.client.Post(f.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post alert %d to webhook: %w", msg.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d for alert %d", resp.StatusCode, msg.ID)
	}

	f.logger.Info("Alert forwarded", log.FieldAlertID, msg.ID, log.FieldStatusCode, resp.StatusCode)
	return nil
}
