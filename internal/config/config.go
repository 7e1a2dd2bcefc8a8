package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"quotecast-bot/internal/content"
)

// Config holds the application configuration.
type Config struct {
	AppEnv   string
	Debug    bool
	Version  string
	BotToken string
	// SentryDSN enables error reporting when set.
	SentryDSN       string
	DefaultLanguage string
	Location        *time.Location

	QuoteAPIURL    string
	ContentTimeout time.Duration

	// Cron specs of the background jobs.
	TickSchedule     string
	SnapshotSchedule string
	PruneSchedule    string

	// DataFile is the JSON snapshot used when MongoDB is not configured.
	DataFile        string
	MongoDBURI      string
	MongoDBDatabase string

	DeliveryConcurrency int
	// RateLimit caps outgoing Telegram requests per second.
	RateLimit int
}

// UseMongo reports whether snapshots go to MongoDB instead of the data file.
func (c *Config) UseMongo() bool {
	return c.MongoDBURI != ""
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	debug, err := strconv.ParseBool(getEnv("DEBUG", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEBUG: %w", err)
	}

	tz := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	contentTimeout, err := time.ParseDuration(getEnv("CONTENT_TIMEOUT", content.DefaultTimeout.String()))
	if err != nil || contentTimeout <= 0 {
		return nil, fmt.Errorf("invalid CONTENT_TIMEOUT: must be a positive duration")
	}

	concurrency, err := positiveInt("DELIVERY_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	rateLimit, err := positiveInt("RATE_LIMIT", 25)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Debug:               debug,
		Version:             getEnv("VERSION", "dev"),
		BotToken:            getEnv("TELEGRAM_BOT_TOKEN", ""),
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		DefaultLanguage:     strings.ToLower(getEnv("DEFAULT_LANGUAGE", "hi")),
		Location:            loc,
		QuoteAPIURL:         getEnv("QUOTE_API_URL", content.DefaultURL),
		ContentTimeout:      contentTimeout,
		TickSchedule:        getEnv("TICK_SCHEDULE", "@every 1m"),
		SnapshotSchedule:    getEnv("SNAPSHOT_SCHEDULE", "@every 5m"),
		PruneSchedule:       getEnv("PRUNE_SCHEDULE", "@daily"),
		DataFile:            getEnv("DATA_FILE", "bot_data.json"),
		MongoDBURI:          getEnv("MONGODB_URI", ""),
		MongoDBDatabase:     getEnv("MONGODB_DATABASE", "quotecast"),
		DeliveryConcurrency: concurrency,
		RateLimit:           rateLimit,
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}
	if !cfg.UseMongo() && cfg.DataFile == "" {
		return nil, fmt.Errorf("DATA_FILE is required when MONGODB_URI is not set")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"TICK_SCHEDULE":     cfg.TickSchedule,
		"SNAPSHOT_SCHEDULE": cfg.SnapshotSchedule,
		"PRUNE_SCHEDULE":    cfg.PruneSchedule,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}

	return cfg, nil
}

func positiveInt(key string, def int) (int, error) {
	raw := getEnv(key, strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
