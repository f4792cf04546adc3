// Package config defines the top-level configuration for the auction query
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SKYQUERY_* environment variables.
type Config struct {
	Feed     FeedConfig     `toml:"feed"`
	Features FeatureConfig  `toml:"features"`
	Update   UpdateConfig   `toml:"update"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// FeedConfig holds the upstream marketplace feed parameters.
type FeedConfig struct {
	BaseURL        string   `toml:"base_url"`
	Timeout        duration `toml:"timeout"`
	RequestsPerSec float64  `toml:"requests_per_sec"`
	Burst          int      `toml:"burst"`
}

// FeatureConfig toggles the aggregation surfaces, mirroring the
// QUERY/PETS/LOWESTBIN/UNDERBIN/AVERAGE_* feature set of the original API.
type FeatureConfig struct {
	Query          bool `toml:"query"`
	Pets           bool `toml:"pets"`
	LowestBIN      bool `toml:"lowestbin"`
	UnderBIN       bool `toml:"underbin"`
	AverageAuction bool `toml:"average_auction"`
	AverageBIN     bool `toml:"average_bin"`
}

// AnyAverage reports whether any ended-branch aggregator is enabled.
func (f FeatureConfig) AnyAverage() bool {
	return f.AverageAuction || f.AverageBIN || f.Pets
}

// AnyListings reports whether any live-page aggregator is enabled.
func (f FeatureConfig) AnyListings() bool {
	return f.Query || f.LowestBIN || f.UnderBIN
}

// UpdateConfig holds the update-cycle parameters.
type UpdateConfig struct {
	Interval duration `toml:"interval"`
	// FullResyncEvery forces a full resync every Nth cycle; the in-memory
	// cycle counter resets on restart, so cycle 0 after a restart is always
	// a full resync.
	FullResyncEvery int `toml:"full_resync_every"`
	// UnderBINMinProfit is the minimum tax-adjusted profit, in coins, for a
	// listing to be reported as an under-ask candidate.
	UnderBINMinProfit    int64    `toml:"underbin_min_profit"`
	ArchiveCron          string   `toml:"archive_cron"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	AverageWindow        duration `toml:"average_window"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold storage.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the query facade HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "1m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			BaseURL:        "https://api.hypixel.net/skyblock",
			Timeout:        duration{15 * time.Second},
			RequestsPerSec: 8,
			Burst:          16,
		},
		Features: FeatureConfig{
			Query:          true,
			Pets:           true,
			LowestBIN:      true,
			UnderBIN:       true,
			AverageAuction: true,
			AverageBIN:     true,
		},
		Update: UpdateConfig{
			Interval:             duration{time.Minute},
			FullResyncEvery:      5,
			UnderBINMinProfit:    1_000_000,
			ArchiveCron:          "0 4 * * *",
			ArchiveRetentionDays: 7,
			AverageWindow:        duration{24 * time.Hour},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "skyquery",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Region:         "us-east-1",
			Bucket:         "skyquery-archive",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Events: []string{"cycle", "candidates", "error"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if c.Feed.BaseURL == "" {
		errs = append(errs, "feed: base_url must not be empty")
	}
	if c.Feed.Timeout.Duration <= 0 {
		errs = append(errs, "feed: timeout must be positive")
	}
	if c.Feed.RequestsPerSec <= 0 {
		errs = append(errs, "feed: requests_per_sec must be > 0")
	}

	// Features. The under-ask detector reads the lowest-ask snapshot.
	if c.Features.UnderBIN && !c.Features.LowestBIN {
		errs = append(errs, "features: underbin requires lowestbin")
	}
	if !c.Features.AnyListings() && !c.Features.AnyAverage() {
		errs = append(errs, "features: at least one feature must be enabled")
	}

	// Update
	if c.Update.Interval.Duration <= 0 {
		errs = append(errs, "update: interval must be positive")
	}
	if c.Update.FullResyncEvery < 1 {
		errs = append(errs, "update: full_resync_every must be >= 1")
	}
	if c.Update.ArchiveRetentionDays < 1 {
		errs = append(errs, "update: archive_retention_days must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 checks only apply when cold storage is enabled.
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
