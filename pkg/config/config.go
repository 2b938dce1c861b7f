package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	CoachID  string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string
	LocalMode      bool

	// Redis
	RedisURL string
	LockTTL  time.Duration

	// RabbitMQ
	RabbitMQURL      string
	RabbitMQPrefetch int

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxStatsInterval    time.Duration
	OutboxRetentionDays    int
	OutboxCleanupInterval  time.Duration
	OutboxMaxLag           time.Duration
	OutboxProcessorEnabled bool

	// Worker
	WorkerHealthAddr string

	// Scheduling
	SlotCandidateTimes []int
	SlotLookaheadDays  int
	SlotMaxResults     int
	OfferTTL           time.Duration
	ForceCapacity      int
	StoreTimeout       time.Duration
	NotifyTimeout      time.Duration

	// CalDAV
	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
	CalDAVTimezone string

	// Telegram
	TelegramBotToken  string
	TelegramServerURL string

	// Notification breaker
	NotifyBreakerThreshold int
	NotifyBreakerTimeout   time.Duration

	// MCP
	MCPAddr      string
	MCPAuthToken string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	databaseURL := getEnv("DATABASE_URL", "")
	driver := getEnv("DATABASE_DRIVER", "")
	if driver == "" {
		driver = "sqlite"
		if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
			driver = "postgres"
		}
	}

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		CoachID:  getEnv("COACHBOOK_COACH_ID", ""),

		DatabaseURL:    databaseURL,
		DatabaseDriver: driver,
		SQLitePath:     getEnv("SQLITE_PATH", ""),
		LocalMode:      driver == "sqlite",

		RedisURL: getEnv("REDIS_URL", ""),
		LockTTL:  getDurationEnv("LOCK_TTL", 15*time.Second),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getIntEnv("RABBITMQ_PREFETCH", 1),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 100*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxStatsInterval:    getDurationEnv("OUTBOX_STATS_INTERVAL", 30*time.Second),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 14),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", 24*time.Hour),
		OutboxMaxLag:           getDurationEnv("OUTBOX_MAX_LAG", 5*time.Minute),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),

		SlotCandidateTimes: getClockListEnv("SLOT_CANDIDATE_TIMES"),
		SlotLookaheadDays:  getIntEnv("SLOT_LOOKAHEAD_DAYS", 7),
		SlotMaxResults:     getIntEnv("SLOT_MAX_RESULTS", 5),
		OfferTTL:           getDurationEnv("OFFER_TTL", 30*time.Minute),
		ForceCapacity:      getIntEnv("FORCE_CAPACITY", 0),
		StoreTimeout:       getDurationEnv("STORE_TIMEOUT", 5*time.Second),
		NotifyTimeout:      getDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),

		CalDAVURL:      getEnv("CALDAV_URL", ""),
		CalDAVUsername: getEnv("CALDAV_USERNAME", ""),
		CalDAVPassword: getEnv("CALDAV_PASSWORD", ""),
		CalDAVCalendar: getEnv("CALDAV_CALENDAR", ""),
		CalDAVTimezone: getEnv("CALDAV_TIMEZONE", "UTC"),

		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramServerURL: getEnv("TELEGRAM_SERVER_URL", ""),

		NotifyBreakerThreshold: getIntEnv("NOTIFY_BREAKER_THRESHOLD", 5),
		NotifyBreakerTimeout:   getDurationEnv("NOTIFY_BREAKER_TIMEOUT", 30*time.Second),

		MCPAddr:      getEnv("MCP_ADDR", "0.0.0.0:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IsLocalMode reports whether the zero-config SQLite store is used.
func (c *Config) IsLocalMode() bool {
	return c.LocalMode
}

// CalDAVEnabled reports whether calendar sync is configured.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVURL != ""
}

// TelegramEnabled reports whether Telegram notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getClockListEnv parses a comma separated list of HH:MM times into
// minutes since midnight. Any malformed entry discards the whole list so
// the caller falls back to its defaults.
func getClockListEnv(key string) []int {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	minutes := []int{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hh, mm, ok := strings.Cut(part, ":")
		if !ok || len(mm) != 2 {
			return nil
		}
		hour, err := strconv.Atoi(hh)
		if err != nil || hour < 0 || hour > 23 {
			return nil
		}
		minute, err := strconv.Atoi(mm)
		if err != nil || minute < 0 || minute > 59 {
			return nil
		}
		minutes = append(minutes, hour*60+minute)
	}
	return minutes
}
