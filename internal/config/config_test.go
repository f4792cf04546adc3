package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
	if !cfg.Features.AnyListings() || !cfg.Features.AnyAverage() {
		t.Fatal("defaults should enable both listing and ended aggregators")
	}
	if cfg.Update.FullResyncEvery != 5 {
		t.Fatalf("FullResyncEvery = %d", cfg.Update.FullResyncEvery)
	}
	if cfg.Update.UnderBINMinProfit != 1_000_000 {
		t.Fatalf("UnderBINMinProfit = %d", cfg.Update.UnderBINMinProfit)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
log_level = "debug"

[feed]
base_url = "http://feed.test"
timeout = "5s"

[features]
underbin = false

[update]
interval = "30s"
full_resync_every = 3

[server]
port = 9000
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Feed.BaseURL != "http://feed.test" {
		t.Errorf("BaseURL = %q", cfg.Feed.BaseURL)
	}
	if cfg.Feed.Timeout.Duration != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Feed.Timeout.Duration)
	}
	if cfg.Features.UnderBIN {
		t.Error("UnderBIN should be overridden to false")
	}
	if cfg.Update.Interval.Duration != 30*time.Second {
		t.Errorf("Interval = %v", cfg.Update.Interval.Duration)
	}
	if cfg.Update.FullResyncEvery != 3 {
		t.Errorf("FullResyncEvery = %d", cfg.Update.FullResyncEvery)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	// Untouched fields keep their defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Fatalf("Port = %d", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SKYQUERY_FEED_BASE_URL", "http://env.test")
	t.Setenv("SKYQUERY_UPDATE_INTERVAL", "2m")
	t.Setenv("SKYQUERY_UPDATE_UNDERBIN_MIN_PROFIT", "2500000")
	t.Setenv("SKYQUERY_FEATURES_PETS", "false")
	t.Setenv("SKYQUERY_SERVER_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Feed.BaseURL != "http://env.test" {
		t.Errorf("BaseURL = %q", cfg.Feed.BaseURL)
	}
	if cfg.Update.Interval.Duration != 2*time.Minute {
		t.Errorf("Interval = %v", cfg.Update.Interval.Duration)
	}
	if cfg.Update.UnderBINMinProfit != 2_500_000 {
		t.Errorf("UnderBINMinProfit = %d", cfg.Update.UnderBINMinProfit)
	}
	if cfg.Features.Pets {
		t.Error("Pets should be overridden to false")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "http://a.test" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Feed.BaseURL = ""
	cfg.Update.Interval = duration{}
	cfg.Postgres.Port = 0
	cfg.Postgres.DSN = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{
		"unknown log_level",
		"base_url must not be empty",
		"interval must be positive",
		"port must be 1-65535",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateUnderBINRequiresLowestBIN(t *testing.T) {
	cfg := Defaults()
	cfg.Features.LowestBIN = false
	cfg.Features.UnderBIN = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "underbin requires lowestbin") {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestValidateRequiresAtLeastOneFeature(t *testing.T) {
	cfg := Defaults()
	cfg.Features = FeatureConfig{}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "at least one feature") {
		t.Fatalf("Validate() = %v", err)
	}
}
