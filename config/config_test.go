package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.FeedConfig.WSBaseURL != "wss://stream.binance.com:9443" {
		t.Errorf("Unexpected default WS URL %q", cfg.FeedConfig.WSBaseURL)
	}
	if len(cfg.FeedConfig.Symbols) != 1 || cfg.FeedConfig.Symbols[0] != "SOLUSDT" {
		t.Errorf("Unexpected default symbols %v", cfg.FeedConfig.Symbols)
	}
	if cfg.EngineConfig.Mode != "trend" {
		t.Errorf("Unexpected default mode %q", cfg.EngineConfig.Mode)
	}
	if cfg.EngineConfig.TrendPeriod != 200 {
		t.Errorf("Unexpected default trend period %d", cfg.EngineConfig.TrendPeriod)
	}
	if cfg.TradingConfig.CapitalUSD != 10000 {
		t.Errorf("Unexpected default capital %v", cfg.TradingConfig.CapitalUSD)
	}
	if cfg.ServerConfig.Port != 8090 {
		t.Errorf("Unexpected default port %d", cfg.ServerConfig.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FEED_SYMBOLS", "SOLUSDT,ETHUSDT")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("TRADING_CAPITAL_USD", "25000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if len(cfg.FeedConfig.Symbols) != 2 || cfg.FeedConfig.Symbols[1] != "ETHUSDT" {
		t.Errorf("Env symbols not applied: %v", cfg.FeedConfig.Symbols)
	}
	if cfg.ServerConfig.Port != 9000 {
		t.Errorf("Env port not applied: %d", cfg.ServerConfig.Port)
	}
	if cfg.TradingConfig.CapitalUSD != 25000 {
		t.Errorf("Env capital not applied: %v", cfg.TradingConfig.CapitalUSD)
	}
	if cfg.LoggingConfig.Level != "debug" {
		t.Errorf("Env log level not applied: %q", cfg.LoggingConfig.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{
		"engine": {"mode": "orb", "trend_period": 100},
		"trading": {"capital_usd": 5000},
		"database": {"enabled": true, "host": "db.internal"}
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFromFile(path)
	if err != nil {
		t.Fatalf("loadFromFile failed: %v", err)
	}
	applyDefaults(cfg)

	if cfg.EngineConfig.Mode != "orb" {
		t.Errorf("Expected mode orb, got %q", cfg.EngineConfig.Mode)
	}
	if cfg.EngineConfig.TrendPeriod != 100 {
		t.Errorf("File trend period overridden: %d", cfg.EngineConfig.TrendPeriod)
	}
	if !cfg.DatabaseConfig.Enabled || cfg.DatabaseConfig.Host != "db.internal" {
		t.Errorf("Database config not loaded: %+v", cfg.DatabaseConfig)
	}
	// Defaults fill what the file omits.
	if cfg.FeedConfig.Interval != "15m" {
		t.Errorf("Default interval missing: %q", cfg.FeedConfig.Interval)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := loadFromFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Missing file should return an error")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}

	cfg.AuthConfig.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("Auth without a secret should fail validation")
	}
	cfg.VaultConfig.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Auth without a secret should validate when vault can supply it, got %v", err)
	}
	cfg.VaultConfig.Enabled = false

	cfg.AuthConfig.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Auth with a secret should validate, got %v", err)
	}

	cfg.EngineConfig.Mode = "martingale"
	if err := cfg.Validate(); err == nil {
		t.Error("Unknown engine mode should fail validation")
	}
}
