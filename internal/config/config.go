package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Backends selectable through DATA_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend       string
	SQLiteDBPath      string
	ReferenceCacheTTL time.Duration
	MemorySeedDir     string

	// AMQP (optional; events are not published when empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger
	Timezone             string
	DashboardConcurrency int

	// Worker
	SnapshotInterval time.Duration

	LogLevel string

	Dashboard DashboardSettings
}

// DashboardSettings are presentation toggles read by dashboard clients.
// They never change what the engine computes.
type DashboardSettings struct {
	ShowFleetTotals  bool `json:"showFleetTotals"`
	ShowRankings     bool `json:"showRankings"`
	ShowMonthlyChart bool `json:"showMonthlyChart"`
	ShowVehicleTable bool `json:"showVehicleTable"`
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:       getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/fleetledger.db"),
		ReferenceCacheTTL: getEnvDuration("REFERENCE_CACHE_TTL", time.Minute),
		MemorySeedDir:     getEnv("MEMORY_SEED_DIR", "./data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fleetledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		Timezone:             getEnv("TIMEZONE", "UTC"),
		DashboardConcurrency: getEnvInt("DASHBOARD_CONCURRENCY", 4),

		SnapshotInterval: getEnvDuration("WORKER_SNAPSHOT_INTERVAL", time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		Dashboard: DashboardSettings{
			ShowFleetTotals:  getEnvBool("DASHBOARD_SHOW_FLEET_TOTALS", true),
			ShowRankings:     getEnvBool("DASHBOARD_SHOW_RANKINGS", true),
			ShowMonthlyChart: getEnvBool("DASHBOARD_SHOW_MONTHLY_CHART", true),
			ShowVehicleTable: getEnvBool("DASHBOARD_SHOW_VEHICLE_TABLE", true),
		},
	}
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendSQLite))
	}

	if c.ReferenceCacheTTL < 0 || c.ReferenceCacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reference cache TTL %v: must be between 0 and 1 hour", c.ReferenceCacheTTL))
	}

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

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.DashboardConcurrency < 1 || c.DashboardConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid dashboard concurrency %d: must be between 1 and 64", c.DashboardConcurrency))
	}

	if c.SnapshotInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid snapshot interval %v: must be at least 1 minute", c.SnapshotInterval))
	} else if c.SnapshotInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid snapshot interval %v: must be at most 24 hours", c.SnapshotInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Clock returns the wall clock in the configured timezone; the ledger
// derives "today" from it. Falls back to UTC for an unknown zone.
func (c *Config) Clock() func() time.Time {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
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

// getEnvBool treats an absent or unparseable value as defaultValue.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
