package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"solana-trading-agent/internal/database"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": s.agent.Symbols()})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	symbol := c.Param("symbol")
	candles := s.agent.Candles(symbol)
	if len(candles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no candle data for symbol", "symbol": symbol})
		return
	}

	decision, err := s.agent.Decide(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"price":    s.agent.CurrentPrice(symbol),
		"analysis": decision.Analysis,
	})
}

func (s *Server) handleRegime(c *gin.Context) {
	symbol := c.Param("symbol")
	reg, trendLine := s.agent.CurrentRegime(symbol)

	c.JSON(http.StatusOK, gin.H{
		"symbol":     symbol,
		"regime":     reg,
		"trend_line": trendLine,
		"price":      s.agent.CurrentPrice(symbol),
	})
}

func (s *Server) handleDecide(c *gin.Context) {
	symbol := c.Param("symbol")
	decision, err := s.agent.Decide(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, decision)
}

// requireRepo rejects persistence endpoints when the database is disabled.
func (s *Server) requireRepo(c *gin.Context) bool {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database disabled"})
		return false
	}
	return true
}

func (s *Server) handleDecisions(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}
	symbol := c.Param("symbol")
	limit := queryInt(c, "limit", 50)

	decisions, err := s.repo.GetRecentDecisions(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "decisions": decisions})
}

func (s *Server) handlePositions(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}
	positions, err := s.repo.GetOpenPositions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handleTrades(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}
	symbol := c.Param("symbol")
	limit := queryInt(c, "limit", 100)

	trades, err := s.repo.GetClosedTrades(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "trades": trades})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := s.operator.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := s.operator.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

type openTradeRequest struct {
	Symbol       string  `json:"symbol" binding:"required"`
	Side         string  `json:"side" binding:"required"`
	EntryPrice   float64 `json:"entry_price" binding:"required"`
	Quantity     float64 `json:"quantity" binding:"required"`
	StopLoss     float64 `json:"stop_loss"`
	TakeProfit   float64 `json:"take_profit"`
	StrategyName string  `json:"strategy_name"`
}

// handleOpenTrade records an externally executed fill. Closed trades from
// here feed the sizing engine's win/loss history.
func (s *Server) handleOpenTrade(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Side != "BUY" && req.Side != "SELL" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
		return
	}
	if req.EntryPrice <= 0 || req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entry_price and quantity must be positive"})
		return
	}

	trade := &database.Trade{
		Symbol:       req.Symbol,
		Side:         req.Side,
		EntryPrice:   req.EntryPrice,
		Quantity:     req.Quantity,
		EntryTime:    time.Now().UTC(),
		StrategyName: req.StrategyName,
		Status:       "OPEN",
	}
	if req.StopLoss > 0 {
		trade.StopLoss = &req.StopLoss
	}
	if req.TakeProfit > 0 {
		trade.TakeProfit = &req.TakeProfit
	}

	if err := s.repo.SaveTrade(c.Request.Context(), trade); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	position := &database.PositionRecord{
		Symbol:     req.Symbol,
		Side:       req.Side,
		EntryPrice: req.EntryPrice,
		Quantity:   req.Quantity,
		SizeUSD:    req.EntryPrice * req.Quantity,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenedAt:   trade.EntryTime,
	}
	if err := s.repo.UpsertPosition(c.Request.Context(), position); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, trade)
}

type closeTradeRequest struct {
	TradeID   int     `json:"trade_id" binding:"required"`
	ExitPrice float64 `json:"exit_price" binding:"required"`
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}
	var req closeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ExitPrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exit_price must be positive"})
		return
	}

	trade, err := s.repo.GetTrade(c.Request.Context(), req.TradeID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if trade.Status == "CLOSED" {
		c.JSON(http.StatusConflict, gin.H{"error": "trade already closed"})
		return
	}

	pnl := (req.ExitPrice - trade.EntryPrice) * trade.Quantity
	pnlPercent := (req.ExitPrice - trade.EntryPrice) / trade.EntryPrice
	if trade.Side == "SELL" {
		pnl, pnlPercent = -pnl, -pnlPercent
	}

	if err := s.repo.CloseTrade(c.Request.Context(), trade.ID, req.ExitPrice, pnl, pnlPercent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.repo.DeletePosition(c.Request.Context(), trade.Symbol); err != nil {
		s.logger.Warn().Err(err).Str("symbol", trade.Symbol).Msg("failed to clear position record")
	}

	c.JSON(http.StatusOK, gin.H{
		"trade_id":    trade.ID,
		"symbol":      trade.Symbol,
		"exit_price":  req.ExitPrice,
		"pnl":         pnl,
		"pnl_percent": pnlPercent,
	})
}

func (s *Server) handleRegimeEvents(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}
	symbol := c.Param("symbol")
	limit := queryInt(c, "limit", 100)

	events, err := s.repo.GetRegimeEvents(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "events": events})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
