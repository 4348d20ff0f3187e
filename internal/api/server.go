package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"solana-trading-agent/internal/auth"
	"solana-trading-agent/internal/database"
	"solana-trading-agent/internal/engine"
	"solana-trading-agent/internal/market"
	"solana-trading-agent/internal/regime"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// AgentAPI defines the methods the running agent must expose to the API.
type AgentAPI interface {
	Candles(symbol string) []market.Candle
	CurrentPrice(symbol string) float64
	Capital() float64
	CurrentRegime(symbol string) (regime.Regime, float64)
	Decide(ctx context.Context, symbol string) (*engine.Decision, error)
	Symbols() []string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int    `json:"port"`
	Host           string `json:"host"`
	ProductionMode bool   `json:"production_mode"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        *database.Repository
	agent       AgentAPI
	config      ServerConfig
	jwtManager  *auth.JWTManager
	operator    *auth.OperatorAuth
	authEnabled bool
	rateLimiter *RateLimiter
	logger      zerolog.Logger
}

// NewServer creates a new API server. jwtManager and operator may be nil
// when auth is disabled.
func NewServer(config ServerConfig, repo *database.Repository, agent AgentAPI, jwtManager *auth.JWTManager, operator *auth.OperatorAuth, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = config.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8090"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		repo:        repo,
		agent:       agent,
		config:      config,
		jwtManager:  jwtManager,
		operator:    operator,
		authEnabled: jwtManager != nil,
		rateLimiter: NewRateLimiter(120, time.Minute),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()
	return server
}

// rateLimitMiddleware rate limits requests by endpoint
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"path":  path,
			})
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	// Token issuance stays outside the auth middleware.
	if s.authEnabled && s.operator != nil {
		login := s.router.Group("/api/auth")
		login.Use(s.rateLimitMiddleware())
		login.POST("/login", s.handleLogin)
		login.POST("/refresh", s.handleRefresh)
	}

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())
	if s.authEnabled {
		api.Use(auth.Middleware(s.jwtManager))
	}

	api.GET("/symbols", s.handleSymbols)
	api.GET("/analysis/:symbol", s.handleAnalysis)
	api.GET("/regime/:symbol", s.handleRegime)
	api.POST("/decide/:symbol", s.handleDecide)
	api.GET("/decisions/:symbol", s.handleDecisions)
	api.GET("/positions", s.handlePositions)
	api.GET("/trades/:symbol", s.handleTrades)
	api.POST("/trades", s.handleOpenTrade)
	api.POST("/trades/close", s.handleCloseTrade)
	api.GET("/regime-events/:symbol", s.handleRegimeEvents)
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("API server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
