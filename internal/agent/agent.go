// Package agent runs the trading agent: it owns the market data stream,
// triggers decision cycles on a schedule, persists outcomes, and serves
// state to the API layer.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-agent/config"
	"solana-trading-agent/internal/cache"
	"solana-trading-agent/internal/database"
	"solana-trading-agent/internal/engine"
	"solana-trading-agent/internal/feed"
	"solana-trading-agent/internal/market"
	"solana-trading-agent/internal/regime"
	"solana-trading-agent/internal/risk"
	"solana-trading-agent/internal/strategy"
)

// tradeHistoryLimit caps how many closed trades feed the Kelly inputs.
const tradeHistoryLimit = 100

// TradingAgent coordinates the stream, engine, and persistence.
type TradingAgent struct {
	cfg        *config.Config
	engine     *engine.DecisionEngine
	stream     *feed.KlineStream
	repo       *database.Repository // nil when the database is disabled
	rangeStore *cache.RangeStore
	trailing   *risk.TrailingStopManager
	logger     zerolog.Logger

	mu         sync.Mutex
	lastRegime map[string]regime.Regime
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// New creates a trading agent. repo and rangeStore may be nil.
func New(cfg *config.Config, eng *engine.DecisionEngine, stream *feed.KlineStream, repo *database.Repository, rangeStore *cache.RangeStore, logger zerolog.Logger) *TradingAgent {
	return &TradingAgent{
		cfg:        cfg,
		engine:     eng,
		stream:     stream,
		repo:       repo,
		rangeStore: rangeStore,
		trailing:   risk.NewTrailingStopManager(logger),
		logger:     logger.With().Str("component", "agent").Logger(),
		lastRegime: make(map[string]regime.Regime),
		stopChan:   make(chan struct{}),
	}
}

// Start connects the stream, restores session state, and begins the
// decision loop.
func (a *TradingAgent) Start(ctx context.Context) error {
	if err := a.stream.Start(); err != nil {
		return err
	}

	a.restoreRanges(ctx)
	a.restorePositions(ctx)

	a.stream.SetCandleCallback(func(symbol string, candle market.Candle) {
		a.onPrice(symbol, candle.Close)
	})

	a.wg.Add(1)
	go a.decisionLoop()

	a.logger.Info().
		Strs("symbols", a.cfg.FeedConfig.Symbols).
		Str("mode", a.cfg.EngineConfig.Mode).
		Msg("trading agent started")
	return nil
}

// Stop halts the decision loop and the stream.
func (a *TradingAgent) Stop() {
	close(a.stopChan)
	a.stream.Stop()
	a.wg.Wait()
	a.logger.Info().Msg("trading agent stopped")
}

// restoreRanges reloads persisted ORB opening ranges after a restart.
func (a *TradingAgent) restoreRanges(ctx context.Context) {
	if a.rangeStore == nil {
		return
	}
	for _, symbol := range a.cfg.FeedConfig.Symbols {
		if r, ok := a.rangeStore.LoadRange(ctx, symbol); ok {
			a.engine.ORBFor(symbol).RestoreRange(r)
			a.logger.Info().Str("symbol", symbol).
				Float64("high", r.High).Float64("low", r.Low).
				Msg("opening range restored")
		}
	}
}

// restorePositions resumes trailing stop tracking for open positions.
func (a *TradingAgent) restorePositions(ctx context.Context) {
	if a.repo == nil {
		return
	}
	positions, err := a.repo.GetOpenPositions(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to load open positions")
		return
	}
	for i := range positions {
		a.trailing.Track(&positions[i])
	}
	if len(positions) > 0 {
		a.logger.Info().Int("count", len(positions)).Msg("open positions restored")
	}
}

// onPrice feeds closed-candle prices to the trailing stop manager and
// persists any ratchet.
func (a *TradingAgent) onPrice(symbol string, price float64) {
	update := a.trailing.UpdatePrice(symbol, price)
	if update == nil {
		return
	}
	if update.IsTriggered {
		a.trailing.Untrack(symbol)
	}
	if a.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if update.IsTriggered {
		if err := a.repo.DeletePosition(ctx, symbol); err != nil {
			a.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to remove stopped-out position")
		}
		return
	}
	if err := a.repo.UpdatePositionStop(ctx, symbol, update.NewStopLoss, update.NewStopLoss); err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist trailing stop")
	}
}

// decisionLoop runs a decision cycle for every symbol on the configured
// interval.
func (a *TradingAgent) decisionLoop() {
	defer a.wg.Done()

	interval := time.Duration(a.cfg.EngineConfig.IntervalSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopChan:
			return
		case <-ticker.C:
			for _, symbol := range a.cfg.FeedConfig.Symbols {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				if _, err := a.Decide(ctx, symbol); err != nil {
					a.logger.Warn().Err(err).Str("symbol", symbol).Msg("decision cycle failed")
				}
				cancel()
			}
		}
	}
}

// Decide runs one decision cycle for a symbol and persists the outcome.
func (a *TradingAgent) Decide(ctx context.Context, symbol string) (*engine.Decision, error) {
	symbol = strings.ToUpper(symbol)
	candles := a.stream.Candles(symbol)
	price := a.stream.LastPrice(symbol)

	trades, positions := a.portfolioState(ctx, symbol)

	decision, err := a.engine.RunCycle(symbol, candles, price, a.Capital(), trades, positions)
	if err != nil {
		return nil, err
	}

	a.trackRegime(ctx, symbol, price, candles)
	a.persistDecision(ctx, decision)
	a.persistRange(ctx, symbol)

	return decision, nil
}

func (a *TradingAgent) portfolioState(ctx context.Context, symbol string) ([]market.ClosedTrade, []market.Position) {
	if a.repo == nil {
		return nil, a.trailing.Tracked()
	}

	trades, err := a.repo.GetClosedTrades(ctx, symbol, tradeHistoryLimit)
	if err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to load trade history")
	}
	positions, err := a.repo.GetOpenPositions(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to load positions")
		positions = a.trailing.Tracked()
	}
	return trades, positions
}

// trackRegime records regime transitions for later statistics.
func (a *TradingAgent) trackRegime(ctx context.Context, symbol string, price float64, candles []market.Candle) {
	reg, trendLine := a.engine.CurrentRegime(candles, price)

	a.mu.Lock()
	prev, seen := a.lastRegime[symbol]
	a.lastRegime[symbol] = reg
	a.mu.Unlock()

	if !seen || prev == reg || a.repo == nil {
		return
	}

	a.logger.Info().Str("symbol", symbol).
		Str("from", string(prev)).Str("to", string(reg)).
		Msg("regime transition")

	event := &database.RegimeEvent{
		Symbol:    symbol,
		Regime:    string(reg),
		Price:     price,
		TrendLine: trendLine,
		Timestamp: time.Now().UTC(),
	}
	if err := a.repo.SaveRegimeEvent(ctx, event); err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to save regime event")
	}
}

func (a *TradingAgent) persistDecision(ctx context.Context, d *engine.Decision) {
	if a.repo == nil {
		return
	}

	record := &database.DecisionRecord{
		CycleID:          d.CycleID,
		Symbol:           d.Symbol,
		StrategyName:     d.Signal.Strategy,
		Action:           string(d.Signal.Action),
		Regime:           string(d.Signal.Regime),
		EntryPrice:       d.Signal.EntryPrice,
		StopLoss:         d.Signal.StopLoss,
		TakeProfit:       d.Signal.TakeProfit,
		Confidence:       d.Signal.Confidence,
		PositionSizeUSD:  d.Signal.PositionSizeUSD,
		PositionFraction: d.Signal.PositionFraction,
		SizingMethod:     d.Signal.Method,
		Approved:         d.Validation.Approved,
		Warnings:         d.Validation.Warnings,
		Reason:           d.Signal.Reason,
		Timestamp:        d.Signal.Timestamp.UTC(),
	}
	if err := a.repo.SaveDecision(ctx, record); err != nil {
		a.logger.Warn().Err(err).Str("cycle_id", d.CycleID).Msg("failed to save decision")
	}
}

// persistRange saves the ORB opening range once defined so restarts keep it.
func (a *TradingAgent) persistRange(ctx context.Context, symbol string) {
	if a.rangeStore == nil {
		return
	}
	r := a.engine.ORBFor(symbol).Range()
	if !r.Defined {
		return
	}
	if err := a.rangeStore.SaveRange(ctx, symbol, r); err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist opening range")
	}
}

// Candles returns the candle history for a symbol.
func (a *TradingAgent) Candles(symbol string) []market.Candle {
	return a.stream.Candles(symbol)
}

// CurrentPrice returns the latest price for a symbol.
func (a *TradingAgent) CurrentPrice(symbol string) float64 {
	return a.stream.LastPrice(symbol)
}

// Capital returns the configured trading capital.
func (a *TradingAgent) Capital() float64 {
	return a.cfg.TradingConfig.CapitalUSD
}

// CurrentRegime returns the regime and trend line for a symbol.
func (a *TradingAgent) CurrentRegime(symbol string) (regime.Regime, float64) {
	symbol = strings.ToUpper(symbol)
	return a.engine.CurrentRegime(a.stream.Candles(symbol), a.stream.LastPrice(symbol))
}

// Symbols returns the configured symbols.
func (a *TradingAgent) Symbols() []string {
	return a.cfg.FeedConfig.Symbols
}

// ORBRange returns the current opening range for a symbol.
func (a *TradingAgent) ORBRange(symbol string) strategy.OpeningRange {
	return a.engine.ORBFor(strings.ToUpper(symbol)).Range()
}
