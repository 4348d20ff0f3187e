// Package engine runs the decision cycle: pattern detection and regime
// classification over the latest candles, strategy signal generation,
// risk-adjusted sizing, validation, and camouflaged order parameters.
// The cycle is synchronous and has no I/O; the only state carried between
// cycles is the per-symbol ORB opening range.
package engine

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-trading-agent/internal/analysis"
	"solana-trading-agent/internal/execution"
	"solana-trading-agent/internal/market"
	"solana-trading-agent/internal/regime"
	"solana-trading-agent/internal/risk"
	"solana-trading-agent/internal/strategy"
)

// StrategyMode selects which strategy drives the cycle.
type StrategyMode string

const (
	ModeTrend StrategyMode = "trend"
	ModeORB   StrategyMode = "orb"
)

// Config holds decision engine parameters.
type Config struct {
	Mode              StrategyMode `json:"mode"`
	MinGapPct         float64      `json:"min_gap_pct"`
	VolumeProfileBins int          `json:"volume_profile_bins"`
	StructureWindow   int          `json:"structure_window"`
	FibLookback       int          `json:"fib_lookback"`
	RSIPeriod         int          `json:"rsi_period"`
	TrendPeriod       int          `json:"trend_period"`
	EntryThreshold    float64      `json:"entry_threshold"`
	ORBRangeMinutes   int          `json:"orb_range_minutes"`
	ORBThreshold      float64      `json:"orb_threshold"`
	ORBMinRangeSize   float64      `json:"orb_min_range_size"`
	SizingMethod      string       `json:"sizing_method"`
	TakeProfitPct     float64      `json:"take_profit_pct"`
	VolatilityLimit   float64      `json:"volatility_limit"` // limit-order threshold
	CamouflageSeed    int64        `json:"camouflage_seed"`  // non-zero for reproducible runs
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeTrend,
		MinGapPct:         0.001,
		VolumeProfileBins: 24,
		StructureWindow:   5,
		FibLookback:       100,
		RSIPeriod:         14,
		TrendPeriod:       200,
		EntryThreshold:    0.02,
		ORBRangeMinutes:   15,
		ORBThreshold:      0.001,
		ORBMinRangeSize:   0.005,
		SizingMethod:      risk.MethodKelly,
		TakeProfitPct:     0.10,
		VolatilityLimit:   0.02,
	}
}

// TechnicalAnalysis bundles every detector's output for one candle window.
type TechnicalAnalysis struct {
	RSI           float64                `json:"rsi"`
	Gaps          []analysis.Gap         `json:"fvgs"`
	OrderBlocks   []analysis.OrderBlock  `json:"order_blocks"`
	Structure     analysis.TrendState    `json:"market_structure"`
	VolumeProfile analysis.VolumeProfile `json:"volume_profile"`
	HasProfile    bool                   `json:"has_profile"`
	Patterns      []analysis.Pattern     `json:"candlestick_patterns"`
	Fibonacci     analysis.FibLevels     `json:"fibonacci"`
	HasFibonacci  bool                   `json:"has_fibonacci"`
	Bias          analysis.MarketBias    `json:"bias"`
}

// SizedSignal is a strategy signal with its risk-engine sizing attached.
type SizedSignal struct {
	strategy.Signal
	PositionSizeUSD  float64 `json:"position_size_usd"`
	PositionFraction float64 `json:"position_fraction"`
	Method           string  `json:"method"`
}

// Decision is the complete output of one cycle.
type Decision struct {
	CycleID    string                      `json:"cycle_id"`
	Symbol     string                      `json:"symbol"`
	Signal     SizedSignal                 `json:"signal"`
	Validation risk.ValidationResult       `json:"validation"`
	Order      *execution.CamouflagedOrder `json:"order,omitempty"`
	Analysis   *TechnicalAnalysis          `json:"analysis,omitempty"`
}

// DecisionEngine wires the quantitative components into one cycle.
type DecisionEngine struct {
	cfg         Config
	classifier  *regime.Classifier
	fvg         *analysis.FVGDetector
	blocks      *analysis.OrderBlockDetector
	profiler    *analysis.VolumeProfiler
	candles     *analysis.CandlestickDetector
	structure   *analysis.StructureAnalyzer
	trend       *strategy.TrendFollowing
	riskEngine  *risk.Engine
	camouflager *execution.Camouflager
	logger      zerolog.Logger

	mu  sync.Mutex
	orb map[string]*strategy.OpeningRangeBreakout
}

// New creates a decision engine.
func New(cfg Config, riskCfg risk.Config, logger zerolog.Logger) *DecisionEngine {
	if cfg.Mode == "" {
		cfg = DefaultConfig()
	}
	classifier := regime.NewClassifier(cfg.TrendPeriod, 20)
	return &DecisionEngine{
		cfg:         cfg,
		classifier:  classifier,
		fvg:         analysis.NewFVGDetector(cfg.MinGapPct),
		blocks:      analysis.NewOrderBlockDetector(),
		profiler:    analysis.NewVolumeProfiler(cfg.VolumeProfileBins),
		candles:     analysis.NewCandlestickDetector(),
		structure:   analysis.NewStructureAnalyzer(cfg.StructureWindow),
		trend:       strategy.NewTrendFollowing(cfg.EntryThreshold, classifier),
		riskEngine:  risk.NewEngine(riskCfg, logger),
		camouflager: execution.NewCamouflager(cfg.CamouflageSeed, logger),
		logger:      logger.With().Str("component", "engine").Logger(),
	}
}

// Analyze runs every pattern detector over the candle window. Detectors
// degrade to empty results on short series; they never fail.
func (de *DecisionEngine) Analyze(candles []market.Candle) (*TechnicalAnalysis, error) {
	if err := market.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	ta := &TechnicalAnalysis{
		RSI:         analysis.RSI(candles, de.cfg.RSIPeriod),
		Gaps:        de.fvg.DetectGaps(candles),
		OrderBlocks: de.blocks.DetectOrderBlocks(candles),
		Structure:   de.structure.Analyze(candles),
		Patterns:    de.candles.Detect(candles),
	}
	ta.VolumeProfile, ta.HasProfile = de.profiler.Profile(candles)
	ta.Fibonacci, ta.HasFibonacci = analysis.FibonacciLevels(candles, de.cfg.FibLookback)
	ta.Bias = analysis.AggregateBias(ta.Structure, ta.HasProfile, ta.Gaps, ta.RSI)
	return ta, nil
}

// CurrentRegime classifies the latest price against the trend line.
// Returns Unknown and a zero trend line when history is too short.
func (de *DecisionEngine) CurrentRegime(candles []market.Candle, currentPrice float64) (regime.Regime, float64) {
	trendLine, ok := de.classifier.TrendLine(market.Closes(candles))
	if !ok {
		return regime.Unknown, 0
	}
	return de.classifier.Classify(currentPrice, trendLine), trendLine
}

// ORBFor returns the per-symbol ORB instance, creating it on first use.
// Each symbol gets its own opening-range cache.
func (de *DecisionEngine) ORBFor(symbol string) *strategy.OpeningRangeBreakout {
	de.mu.Lock()
	defer de.mu.Unlock()

	orb, ok := de.orb[symbol]
	if !ok {
		if de.orb == nil {
			de.orb = make(map[string]*strategy.OpeningRangeBreakout)
		}
		orb = strategy.NewOpeningRangeBreakout(de.cfg.ORBRangeMinutes, de.cfg.ORBThreshold, de.cfg.ORBMinRangeSize)
		de.orb[symbol] = orb
	}
	return orb
}

// ResetSession clears the ORB opening range for a symbol. Callers invoke
// this at session boundaries.
func (de *DecisionEngine) ResetSession(symbol string) {
	de.ORBFor(symbol).ResetRange()
}

// RunCycle executes one full decision cycle for a symbol: analysis, signal,
// sizing, validation, and camouflaged order parameters. Positions and closed
// trades come from the persistence collaborator.
func (de *DecisionEngine) RunCycle(symbol string, candles []market.Candle, currentPrice, capital float64, trades []market.ClosedTrade, positions []market.Position) (*Decision, error) {
	ta, err := de.Analyze(candles)
	if err != nil {
		return nil, err
	}

	var sig *strategy.Signal
	switch de.cfg.Mode {
	case ModeORB:
		sig = de.ORBFor(symbol).GenerateSignal(currentPrice, candles, 0)
		sig.Regime, _ = de.CurrentRegime(candles, currentPrice)
	default:
		sig = de.trend.Evaluate(currentPrice, candles)
	}

	decision := &Decision{
		CycleID:  uuid.NewString(),
		Symbol:   symbol,
		Signal:   SizedSignal{Signal: *sig},
		Analysis: ta,
	}

	if sig.Action != strategy.ActionBuy && sig.Action != strategy.ActionSell {
		de.logger.Debug().
			Str("symbol", symbol).
			Str("action", string(sig.Action)).
			Str("reason", sig.Reason).
			Msg("no actionable signal")
		return decision, nil
	}

	perf := de.riskEngine.UpdateFromHistory(trades)
	stopPct := stopDistancePct(sig.EntryPrice, sig.StopLoss)
	isRiskOn := sig.Regime == regime.RiskOn

	sizing, err := de.riskEngine.SizePosition(
		capital, perf.WinRate, perf.AvgWinPct, perf.AvgLossPct,
		stopPct, isRiskOn, de.cfg.SizingMethod)
	if err != nil {
		return nil, fmt.Errorf("size position: %w", err)
	}
	decision.Signal.PositionSizeUSD = sizing.PositionSizeUSD
	decision.Signal.PositionFraction = sizing.PositionFraction
	decision.Signal.Method = sizing.Method

	decision.Validation = de.riskEngine.ValidateTrade(
		sizing.PositionSizeUSD, capital, sig.StopLoss, sig.EntryPrice,
		string(sig.Regime), positions)

	sizeUSD := sizing.PositionSizeUSD
	if decision.Validation.Adjustments.HasAny() {
		sizeUSD = decision.Validation.Adjustments.PositionSizeUSD
	}

	if decision.Validation.Approved {
		order := de.camouflager.PlaceHiddenOrder(
			string(sig.Action), sig.EntryPrice, sizeUSD, stopPct, de.cfg.TakeProfitPct)
		decision.Order = &order

		de.logger.Info().
			Str("symbol", symbol).
			Str("cycle_id", decision.CycleID).
			Str("action", string(sig.Action)).
			Float64("size_usd", order.PositionSizeUSD).
			Msg("decision ready")
	}

	return decision, nil
}

// RecentVolatility measures average absolute return over the last n closes,
// feeding the limit-vs-market order decision.
func RecentVolatility(candles []market.Candle, n int) float64 {
	prices := market.Closes(candles)
	if len(prices) > n+1 {
		prices = prices[len(prices)-n-1:]
	}
	rets := market.Returns(prices)
	if len(rets) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rets {
		sum += math.Abs(r)
	}
	return sum / float64(len(rets))
}

// UseLimitOrder reports whether the current volatility calls for a limit
// order.
func (de *DecisionEngine) UseLimitOrder(candles []market.Candle) bool {
	return de.camouflager.ShouldUseLimitOrder(RecentVolatility(candles, 10), de.cfg.VolatilityLimit)
}

func stopDistancePct(entry, stop float64) float64 {
	if entry <= 0 {
		return 0
	}
	return math.Abs(entry-stop) / entry
}
