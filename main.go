package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-trading-agent/config"
	"solana-trading-agent/internal/agent"
	"solana-trading-agent/internal/api"
	"solana-trading-agent/internal/auth"
	"solana-trading-agent/internal/cache"
	"solana-trading-agent/internal/database"
	"solana-trading-agent/internal/engine"
	"solana-trading-agent/internal/feed"
	"solana-trading-agent/internal/logging"
	"solana-trading-agent/internal/risk"
	"solana-trading-agent/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database (optional)
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.RunMigrations(ctx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
		cancel()

		repo = database.NewRepository(db)
	}

	// Redis-backed session state (optional)
	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
	}
	rangeStore := cache.NewRangeStore(redisClient, logger)

	// Vault for exchange credentials (optional)
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vault client")
	}
	if vaultClient.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := vaultClient.Health(ctx); err != nil {
			logger.Warn().Err(err).Msg("vault health check failed")
		}
		cancel()
	}

	// Decision engine
	engineCfg := engine.DefaultConfig()
	engineCfg.Mode = engine.StrategyMode(cfg.EngineConfig.Mode)
	if cfg.EngineConfig.MinGapPct > 0 {
		engineCfg.MinGapPct = cfg.EngineConfig.MinGapPct
	}
	if cfg.EngineConfig.TrendPeriod > 0 {
		engineCfg.TrendPeriod = cfg.EngineConfig.TrendPeriod
	}
	if cfg.EngineConfig.EntryThreshold > 0 {
		engineCfg.EntryThreshold = cfg.EngineConfig.EntryThreshold
	}
	if cfg.EngineConfig.ORBRangeMinutes > 0 {
		engineCfg.ORBRangeMinutes = cfg.EngineConfig.ORBRangeMinutes
	}
	if cfg.EngineConfig.SizingMethod != "" {
		engineCfg.SizingMethod = cfg.EngineConfig.SizingMethod
	}
	if cfg.EngineConfig.TakeProfitPct > 0 {
		engineCfg.TakeProfitPct = cfg.EngineConfig.TakeProfitPct
	}
	engineCfg.CamouflageSeed = cfg.EngineConfig.CamouflageSeed

	riskCfg := risk.DefaultConfig()
	if cfg.RiskConfig.KellyDampener > 0 {
		riskCfg.KellyDampener = cfg.RiskConfig.KellyDampener
	}
	if cfg.RiskConfig.DrawdownTarget > 0 {
		riskCfg.MaxDrawdownTarget = cfg.RiskConfig.DrawdownTarget
	}
	if cfg.RiskConfig.MinPositionFraction > 0 {
		riskCfg.MinPositionSize = cfg.RiskConfig.MinPositionFraction
	}
	if cfg.RiskConfig.MaxPositionFraction > 0 {
		riskCfg.MaxPositionSize = cfg.RiskConfig.MaxPositionFraction
	}

	eng := engine.New(engineCfg, riskCfg, logger)

	// Market data stream
	stream := feed.NewKlineStream(cfg.FeedConfig.WSBaseURL, cfg.FeedConfig.Symbols, cfg.FeedConfig.Interval, logger)

	// Agent
	tradingAgent := agent.New(cfg, eng, stream, repo, rangeStore, logger)

	ctx := context.Background()
	if err := tradingAgent.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start trading agent")
	}

	// API server
	var jwtManager *auth.JWTManager
	var operator *auth.OperatorAuth
	if cfg.AuthConfig.Enabled {
		jwtSecret := cfg.AuthConfig.JWTSecret
		if vaultClient.IsEnabled() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			secret, err := vaultClient.GetJWTSecret(ctx)
			cancel()
			if err == nil {
				jwtSecret = secret
			} else if jwtSecret == "" {
				logger.Fatal().Err(err).Msg("jwt secret unavailable from vault")
			} else {
				logger.Warn().Err(err).Msg("vault jwt secret unavailable, using configured secret")
			}
		}
		jwtManager = auth.NewJWTManager(
			jwtSecret,
			cfg.AuthConfig.AccessTokenDuration,
			cfg.AuthConfig.RefreshTokenDuration,
		)
		if cfg.AuthConfig.PasswordHash != "" {
			operator = auth.NewOperatorAuth(
				cfg.AuthConfig.Username,
				cfg.AuthConfig.PasswordHash,
				auth.NewPasswordManager(cfg.AuthConfig.BcryptCost),
				jwtManager,
			)
		} else {
			logger.Warn().Msg("auth enabled without operator password hash, login endpoint disabled")
		}
	}

	serverCfg := api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		ProductionMode: cfg.ServerConfig.ProductionMode,
	}
	if cfg.ServerConfig.AllowedOrigins != "" {
		serverCfg.AllowedOrigins = strings.Split(cfg.ServerConfig.AllowedOrigins, ",")
	}

	server := api.NewServer(serverCfg, repo, tradingAgent, jwtManager, operator, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("api server stopped")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api server shutdown failed")
	}
	tradingAgent.Stop()

	if redisClient != nil {
		redisClient.Close()
	}
}
