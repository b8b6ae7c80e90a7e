package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/config"
	"gastos/internal/events"
	applog "gastos/internal/log"
	"gastos/internal/storage"
	"gastos/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting gastos-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker repairs the sqlite store directly; the memory backend has
	// nothing durable to reconcile.
	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	reconciler := worker.NewReconciler(store, cfg.ReconcileMaxParallel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// On startup, sweep everything once to catch drift accumulated while the
	// worker was down.
	logger.Info("Performing startup reconciliation sweep...")
	if err := reconciler.Sweep(ctx); err != nil {
		logger.Error("Startup sweep failed", "error", err)
		// Don't exit - continue with normal operation
	}

	// Consume budget-touched events if AMQP is configured.
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		go func() {
			if err := client.ConsumeBudgetEvents(ctx, reconciler.HandleEvent); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Event consumption failed", "error", err)
				}
				cancel()
			}
		}()
		logger.Info("Consuming budget events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - relying on periodic sweeps only")
	}

	// Periodic sweep covers events that never arrived.
	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reconciler.Sweep(ctx); err != nil {
					logger.Error("Periodic sweep failed", "error", err)
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Worker shutdown complete")
}
