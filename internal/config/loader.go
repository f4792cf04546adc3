package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SKYQUERY_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SKYQUERY_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.BaseURL, "SKYQUERY_FEED_BASE_URL")
	setDuration(&cfg.Feed.Timeout, "SKYQUERY_FEED_TIMEOUT")
	setFloat64(&cfg.Feed.RequestsPerSec, "SKYQUERY_FEED_REQUESTS_PER_SEC")
	setInt(&cfg.Feed.Burst, "SKYQUERY_FEED_BURST")

	// ── Features ──
	setBool(&cfg.Features.Query, "SKYQUERY_FEATURES_QUERY")
	setBool(&cfg.Features.Pets, "SKYQUERY_FEATURES_PETS")
	setBool(&cfg.Features.LowestBIN, "SKYQUERY_FEATURES_LOWESTBIN")
	setBool(&cfg.Features.UnderBIN, "SKYQUERY_FEATURES_UNDERBIN")
	setBool(&cfg.Features.AverageAuction, "SKYQUERY_FEATURES_AVERAGE_AUCTION")
	setBool(&cfg.Features.AverageBIN, "SKYQUERY_FEATURES_AVERAGE_BIN")

	// ── Update ──
	setDuration(&cfg.Update.Interval, "SKYQUERY_UPDATE_INTERVAL")
	setInt(&cfg.Update.FullResyncEvery, "SKYQUERY_UPDATE_FULL_RESYNC_EVERY")
	setInt64(&cfg.Update.UnderBINMinProfit, "SKYQUERY_UPDATE_UNDERBIN_MIN_PROFIT")
	setStr(&cfg.Update.ArchiveCron, "SKYQUERY_UPDATE_ARCHIVE_CRON")
	setInt(&cfg.Update.ArchiveRetentionDays, "SKYQUERY_UPDATE_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Update.AverageWindow, "SKYQUERY_UPDATE_AVERAGE_WINDOW")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SKYQUERY_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SKYQUERY_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SKYQUERY_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SKYQUERY_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SKYQUERY_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SKYQUERY_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SKYQUERY_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SKYQUERY_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SKYQUERY_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SKYQUERY_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SKYQUERY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SKYQUERY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SKYQUERY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SKYQUERY_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SKYQUERY_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SKYQUERY_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SKYQUERY_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SKYQUERY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SKYQUERY_S3_REGION")
	setStr(&cfg.S3.Bucket, "SKYQUERY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SKYQUERY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SKYQUERY_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "SKYQUERY_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SKYQUERY_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SKYQUERY_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SKYQUERY_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SKYQUERY_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.DiscordWebhookURL, "SKYQUERY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.TelegramToken, "SKYQUERY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SKYQUERY_NOTIFY_TELEGRAM_CHAT_ID")
	setStringSlice(&cfg.Notify.Events, "SKYQUERY_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SKYQUERY_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
