package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	FeedConfig     FeedConfig     `json:"feed"`
	EngineConfig   EngineConfig   `json:"engine"`
	RiskConfig     RiskConfig     `json:"risk"`
	TradingConfig  TradingConfig  `json:"trading"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	ServerConfig   ServerConfig   `json:"server"`
	AuthConfig     AuthConfig     `json:"auth"`
	VaultConfig    VaultConfig    `json:"vault"`
	LoggingConfig  LoggingConfig  `json:"logging"`
}

// FeedConfig holds market data stream configuration
type FeedConfig struct {
	WSBaseURL string   `json:"ws_base_url"`
	Symbols   []string `json:"symbols"`
	Interval  string   `json:"interval"` // e.g. "15m", "1h"
}

// EngineConfig holds decision engine parameters
type EngineConfig struct {
	Mode              string  `json:"mode"` // "trend" or "orb"
	MinGapPct         float64 `json:"min_gap_pct"`
	VolumeProfileBins int     `json:"volume_profile_bins"`
	StructureWindow   int     `json:"structure_window"`
	FibLookback       int     `json:"fib_lookback"`
	RSIPeriod         int     `json:"rsi_period"`
	TrendPeriod       int     `json:"trend_period"`
	EntryThreshold    float64 `json:"entry_threshold"`
	ORBRangeMinutes   int     `json:"orb_range_minutes"`
	ORBThreshold      float64 `json:"orb_threshold"`
	ORBMinRangeSize   float64 `json:"orb_min_range_size"`
	SizingMethod      string  `json:"sizing_method"` // "kelly" or "drawdown"
	TakeProfitPct     float64 `json:"take_profit_pct"`
	VolatilityLimit   float64 `json:"volatility_limit"`
	CamouflageSeed    int64   `json:"camouflage_seed"`
	IntervalSecs      int     `json:"interval_secs"` // seconds between decision cycles
}

// RiskConfig holds risk engine parameters. All percentages are decimal
// fractions (0.25 = 25%).
type RiskConfig struct {
	KellyDampener        float64 `json:"kelly_dampener"`
	DrawdownTarget       float64 `json:"drawdown_target"`
	RiskOnMultiplier     float64 `json:"risk_on_multiplier"`
	RiskOffMultiplier    float64 `json:"risk_off_multiplier"`
	MinPositionFraction  float64 `json:"min_position_fraction"`
	MaxPositionFraction  float64 `json:"max_position_fraction"`
}

// TradingConfig holds portfolio-level settings
type TradingConfig struct {
	CapitalUSD          float64 `json:"capital_usd"`
	TrailingStopPercent float64 `json:"trailing_stop_percent"`
	DryRun              bool    `json:"dry_run"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for session state
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// ServerConfig holds HTTP API server configuration
type ServerConfig struct {
	Port           int    `json:"port"`
	Host           string `json:"host"`
	AllowedOrigins string `json:"allowed_origins"`
	ProductionMode bool   `json:"production_mode"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Enabled              bool          `json:"enabled"`
	JWTSecret            string        `json:"jwt_secret"`
	Username             string        `json:"username"`
	PasswordHash         string        `json:"password_hash"` // bcrypt hash of the operator password
	AccessTokenDuration  time.Duration `json:"access_token_duration"`
	RefreshTokenDuration time.Duration `json:"refresh_token_duration"`
	BcryptCost           int           `json:"bcrypt_cost"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level      string `json:"level"` // debug, info, warn, error
	JSONFormat bool   `json:"json_format"`
}

// Load reads config.json if present and applies environment overrides.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.FeedConfig.WSBaseURL = getEnvOrDefault("FEED_WS_BASE_URL", cfg.FeedConfig.WSBaseURL)
	if symbols := os.Getenv("FEED_SYMBOLS"); symbols != "" {
		cfg.FeedConfig.Symbols = strings.Split(symbols, ",")
	}
	cfg.FeedConfig.Interval = getEnvOrDefault("FEED_INTERVAL", cfg.FeedConfig.Interval)

	cfg.TradingConfig.CapitalUSD = getEnvFloatOrDefault("TRADING_CAPITAL_USD", cfg.TradingConfig.CapitalUSD)

	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)

	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", cfg.ServerConfig.Host)

	cfg.AuthConfig.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.Username = getEnvOrDefault("AUTH_USERNAME", cfg.AuthConfig.Username)
	cfg.AuthConfig.PasswordHash = getEnvOrDefault("AUTH_PASSWORD_HASH", cfg.AuthConfig.PasswordHash)

	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
}

func applyDefaults(cfg *Config) {
	if cfg.FeedConfig.WSBaseURL == "" {
		cfg.FeedConfig.WSBaseURL = "wss://stream.binance.com:9443"
	}
	if len(cfg.FeedConfig.Symbols) == 0 {
		cfg.FeedConfig.Symbols = []string{"SOLUSDT"}
	}
	if cfg.FeedConfig.Interval == "" {
		cfg.FeedConfig.Interval = "15m"
	}

	if cfg.EngineConfig.Mode == "" {
		cfg.EngineConfig.Mode = "trend"
	}
	if cfg.EngineConfig.IntervalSecs <= 0 {
		cfg.EngineConfig.IntervalSecs = 60
	}
	if cfg.EngineConfig.TrendPeriod <= 0 {
		cfg.EngineConfig.TrendPeriod = 200
	}
	if cfg.EngineConfig.TakeProfitPct <= 0 {
		cfg.EngineConfig.TakeProfitPct = 0.10
	}

	if cfg.TradingConfig.CapitalUSD <= 0 {
		cfg.TradingConfig.CapitalUSD = 10000
	}
	if cfg.TradingConfig.TrailingStopPercent <= 0 {
		cfg.TradingConfig.TrailingStopPercent = 0.02
	}

	if cfg.DatabaseConfig.Host == "" {
		cfg.DatabaseConfig.Host = "localhost"
	}
	if cfg.DatabaseConfig.Port <= 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}

	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}

	if cfg.ServerConfig.Port <= 0 {
		cfg.ServerConfig.Port = 8090
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}

	if cfg.AuthConfig.Username == "" {
		cfg.AuthConfig.Username = "operator"
	}
	if cfg.AuthConfig.AccessTokenDuration <= 0 {
		cfg.AuthConfig.AccessTokenDuration = 15 * time.Minute
	}
	if cfg.AuthConfig.RefreshTokenDuration <= 0 {
		cfg.AuthConfig.RefreshTokenDuration = 7 * 24 * time.Hour
	}

	if cfg.VaultConfig.MountPath == "" {
		cfg.VaultConfig.MountPath = "secret"
	}
	if cfg.VaultConfig.SecretPath == "" {
		cfg.VaultConfig.SecretPath = "trading-agent"
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
}

// Validate checks settings that would break the agent at runtime.
func (c *Config) Validate() error {
	if c.AuthConfig.Enabled && c.AuthConfig.JWTSecret == "" && !c.VaultConfig.Enabled {
		return fmt.Errorf("auth enabled but jwt_secret is empty and vault is disabled")
	}
	if c.EngineConfig.Mode != "trend" && c.EngineConfig.Mode != "orb" {
		return fmt.Errorf("unknown engine mode %q", c.EngineConfig.Mode)
	}
	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
