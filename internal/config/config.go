package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP. Leave AMQPURL empty to run without eventing; the reconciler
	// then relies on periodic sweeps alone.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Aggregate maintenance strategy: "incremental" or "recalculate"
	AggregateStrategy string

	// Worker
	ReconcileInterval    time.Duration
	ReconcileMaxParallel int

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gastos.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gastos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reconcile_budgets"),

		AggregateStrategy: getEnv("AGGREGATE_STRATEGY", "incremental"),

		ReconcileInterval:    getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileMaxParallel: getEnvInt("RECONCILE_MAX_PARALLEL", 4),

		DataBackend: getEnv("DATA_BACKEND", "sqlite"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate aggregate strategy
	if c.AggregateStrategy != "incremental" && c.AggregateStrategy != "recalculate" {
		errors = append(errors, fmt.Sprintf("invalid aggregate strategy '%s': must be 'incremental' or 'recalculate'", c.AggregateStrategy))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate worker configuration
	if c.ReconcileMaxParallel < 1 {
		errors = append(errors, fmt.Sprintf("invalid reconcile parallelism %d: must be at least 1", c.ReconcileMaxParallel))
	} else if c.ReconcileMaxParallel > 64 {
		errors = append(errors, fmt.Sprintf("invalid reconcile parallelism %d: must be at most 64", c.ReconcileMaxParallel))
	}

	if c.ReconcileInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
	} else if c.ReconcileInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
