// Package config loads the application configuration from the environment,
// with optional .env file support for local development.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Snapshot backends for the points ledger.
const (
	BackendChannel  = "channel"
	BackendDynamoDB = "dynamodb"
)

// Config holds every runtime setting of the service.
type Config struct {
	// Discord
	DiscordBotToken string
	PointsChannelID string

	// Pterodactyl panel
	PanelAPIKey  string
	PanelBaseURL string
	ServerID     string

	// Catalog
	ItemsFile string

	// HTTP
	HTTPPort string

	// Ledger
	SnapshotBackend string
	LedgerTableName string
	CacheTTL        time.Duration
	PersistInterval time.Duration

	// OTP store; in-memory when empty.
	RedisAddr string

	// Reconciliation
	ReconcileQueueURL string
	OperatorAccountID string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DiscordBotToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		PointsChannelID:   os.Getenv("POINTS_CHANNEL_ID"),
		PanelAPIKey:       os.Getenv("PTERODACTYL_API_KEY"),
		PanelBaseURL:      os.Getenv("PTERODACTYL_BASE_URL"),
		ServerID:          os.Getenv("PTERODACTYL_SERVER_ID"),
		ItemsFile:         getEnvDefault("ITEMS_FILE", "items.json"),
		HTTPPort:          getEnvDefault("HTTP_PORT", "8080"),
		SnapshotBackend:   getEnvDefault("SNAPSHOT_BACKEND", BackendChannel),
		LedgerTableName:   os.Getenv("DYNAMODB_LEDGER_TABLE_NAME"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		ReconcileQueueURL: os.Getenv("SQS_RECONCILE_QUEUE_URL"),
		OperatorAccountID: os.Getenv("OPERATOR_ACCOUNT_ID"),
	}

	var err error
	if cfg.CacheTTL, err = getEnvSeconds("CACHE_TTL_SECONDS", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.PersistInterval, err = getEnvSeconds("PERSIST_INTERVAL_SECONDS", 15*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SnapshotBackend {
	case BackendChannel:
		if c.PointsChannelID == "" {
			return fmt.Errorf("POINTS_CHANNEL_ID is required with the channel snapshot backend")
		}
	case BackendDynamoDB:
		if c.LedgerTableName == "" {
			return fmt.Errorf("DYNAMODB_LEDGER_TABLE_NAME is required with the dynamodb snapshot backend")
		}
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q", c.SnapshotBackend)
	}
	return nil
}

// DiscordConfigured reports whether the Discord integration has credentials.
func (c *Config) DiscordConfigured() bool {
	return c.DiscordBotToken != ""
}

// PanelConfigured reports whether the panel integration has credentials.
func (c *Config) PanelConfigured() bool {
	return c.PanelAPIKey != "" && c.PanelBaseURL != "" && c.ServerID != ""
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer number of seconds: %w", key, err)
	}
	return time.Duration(seconds) * time.Second, nil
}
