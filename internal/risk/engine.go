// Package risk implements position sizing and trade validation: fractional
// Kelly with a drawdown-target alternative, regime multipliers, and hard
// portfolio limits. Sizes are always clamped into a configured fraction band
// of capital.
package risk

import (
	"errors"
	"math"

	"github.com/rs/zerolog"
)

// ErrUnknownMethod is returned for a sizing method other than kelly/drawdown.
var ErrUnknownMethod = errors.New("unknown position sizing method")

// Sizing method names.
const (
	MethodKelly    = "kelly"
	MethodDrawdown = "drawdown"
)

// Config holds the risk engine parameters. Fractions are decimals.
type Config struct {
	KellyDampener     float64 `json:"kelly_dampener"`      // fraction of Kelly to use
	MaxDrawdownTarget float64 `json:"max_drawdown_target"` // tolerated drawdown, 0.45 = 45%
	RiskOnMultiplier  float64 `json:"risk_on_multiplier"`
	RiskOffMultiplier float64 `json:"risk_off_multiplier"`
	MinPositionSize   float64 `json:"min_position_size"` // fraction of capital
	MaxPositionSize   float64 `json:"max_position_size"` // fraction of capital
}

// DefaultConfig returns the standard risk parameters: quarter Kelly, a 45%
// drawdown target, and position sizes between 5% and 25% of capital.
func DefaultConfig() Config {
	return Config{
		KellyDampener:     0.25,
		MaxDrawdownTarget: 0.45,
		RiskOnMultiplier:  1.5,
		RiskOffMultiplier: 0.5,
		MinPositionSize:   0.05,
		MaxPositionSize:   0.25,
	}
}

// Sizing is the result of a position size calculation.
type Sizing struct {
	PositionSizeUSD  float64 `json:"position_size_usd"`
	PositionFraction float64 `json:"position_fraction"`
	Method           string  `json:"method"`
	Regime           string  `json:"regime"`
}

// Engine computes position sizes and validates trades against limits.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
}

// NewEngine creates a risk engine.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.KellyDampener <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, logger: logger.With().Str("component", "risk").Logger()}
}

// Config returns the engine's parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// KellyFraction computes the dampened Kelly bet fraction K = W - (1-W)/R
// where R = avgWin/avgLoss. Invalid or non-finite inputs, and negative raw
// Kelly, return zero rather than propagating into sizing math.
func (e *Engine) KellyFraction(winRate, avgWin, avgLoss float64) float64 {
	if !finite(winRate) || !finite(avgWin) || !finite(avgLoss) {
		return 0
	}
	if avgWin <= 0 || avgLoss <= 0 {
		return 0
	}

	rr := avgWin / avgLoss
	kelly := winRate - (1-winRate)/rr
	if kelly < 0 {
		return 0
	}
	return kelly * e.cfg.KellyDampener
}

// DrawdownPosition sizes a position so the expected drawdown from a stop-out
// stays at the target: with a 45% target and a 3% stop we can afford 15
// units of risk, clamped into the position fraction band.
func (e *Engine) DrawdownPosition(stopLossPct, capital float64) float64 {
	if !finite(stopLossPct) || stopLossPct <= 0 || capital <= 0 {
		return 0
	}

	maxUnits := e.cfg.MaxDrawdownTarget / stopLossPct
	fraction := e.clampFraction(maxUnits * stopLossPct)
	return capital * fraction
}

// AdjustForRegime scales a base size by the regime multiplier. Above trend
// positions grow, below trend they shrink.
func (e *Engine) AdjustForRegime(baseSize float64, isRiskOn bool) float64 {
	if isRiskOn {
		return baseSize * e.cfg.RiskOnMultiplier
	}
	return baseSize * e.cfg.RiskOffMultiplier
}

// SizePosition computes the final position size: base size from the chosen
// method, regime adjustment, then a final clamp into the fraction band. The
// clamp is idempotent; sizes already in band pass through unchanged.
func (e *Engine) SizePosition(capital, winRate, avgWin, avgLoss, stopLossPct float64, isRiskOn bool, method string) (Sizing, error) {
	if capital <= 0 || !finite(capital) {
		return Sizing{Method: method, Regime: regimeLabel(isRiskOn)}, nil
	}

	var base float64
	switch method {
	case MethodKelly:
		base = capital * e.KellyFraction(winRate, avgWin, avgLoss)
	case MethodDrawdown:
		base = e.DrawdownPosition(stopLossPct, capital)
	default:
		return Sizing{Method: method, Regime: "UNKNOWN"}, ErrUnknownMethod
	}

	size := e.AdjustForRegime(base, isRiskOn)

	minSize := capital * e.cfg.MinPositionSize
	maxSize := capital * e.cfg.MaxPositionSize
	size = math.Max(minSize, math.Min(size, maxSize))

	s := Sizing{
		PositionSizeUSD:  size,
		PositionFraction: size / capital,
		Method:           method,
		Regime:           regimeLabel(isRiskOn),
	}

	e.logger.Debug().
		Str("method", method).
		Str("regime", s.Regime).
		Float64("size_usd", s.PositionSizeUSD).
		Float64("fraction", s.PositionFraction).
		Msg("position sized")

	return s, nil
}

func (e *Engine) clampFraction(f float64) float64 {
	if f > e.cfg.MaxPositionSize {
		return e.cfg.MaxPositionSize
	}
	if f < e.cfg.MinPositionSize {
		return e.cfg.MinPositionSize
	}
	return f
}

func regimeLabel(isRiskOn bool) string {
	if isRiskOn {
		return "RISK_ON"
	}
	return "RISK_OFF"
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
