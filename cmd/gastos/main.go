package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/config"
	"gastos/internal/events"
	apphttp "gastos/internal/http"
	applog "gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/storage/memory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose data backend
	var (
		store storage.Store
		ready func(context.Context) error
	)
	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := storage.Open(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		ready = func(ctx context.Context) error {
			_, err := sqliteStore.ListBudgetIDs(ctx)
			return err
		}
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		store = memory.New()
		logger.Info("Initialized memory backend")
	}

	// AMQP eventing is optional; without it the reconciler worker relies on
	// its periodic sweep alone.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP eventing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP eventing disabled - no AMQP_URL provided")
	}

	maintainer := services.MaintainerFor(cfg.AggregateStrategy)
	budgets := services.NewBudgetService(store, publisher)
	expenses := services.NewExpenseService(store, maintainer, publisher)
	guard := services.NewGuard(store)

	srv := apphttp.NewServer(":"+cfg.Port, logger, budgets, expenses, guard, ready)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
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
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting gastos server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"aggregate_strategy", cfg.AggregateStrategy)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
