package risk

import (
	"fmt"

	"solana-trading-agent/internal/market"
)

// Stop distance limits relative to entry.
const (
	minStopDistance = 0.005 // 0.5%
	maxStopDistance = 0.10  // 10%

	maxPortfolioLeverage = 2.0 // total exposure cap as multiple of capital
)

// Adjustments carries corrected trade parameters that let an otherwise
// over-limit trade proceed.
type Adjustments struct {
	PositionSizeUSD float64 `json:"position_size_usd,omitempty"`
}

// HasAny reports whether any adjustment was recorded.
func (a Adjustments) HasAny() bool {
	return a.PositionSizeUSD > 0
}

// RiskMetrics reports the measured risk quantities of a validated trade.
type RiskMetrics struct {
	PositionFraction  float64 `json:"position_fraction"`
	StopLossPct       float64 `json:"stop_loss_pct"`
	PortfolioExposure float64 `json:"portfolio_exposure"`
	PotentialDrawdown float64 `json:"potential_drawdown"`
	Regime            string  `json:"regime"`
}

// ValidationResult is the outcome of ValidateTrade. Rejection is a normal,
// expected outcome, not an error.
type ValidationResult struct {
	Approved    bool        `json:"approved"`
	Warnings    []string    `json:"warnings"`
	Adjustments Adjustments `json:"adjustments"`
	RiskMetrics RiskMetrics `json:"risk_metrics"`
}

// ValidateTrade checks a proposed trade against risk limits, in order:
// position fraction bounds (too small rejects, too large is adjusted down
// with a warning), stop-loss distance, total portfolio exposure, and
// potential drawdown. A result with warnings but no compensating adjustment
// is not approved. Validating a previously adjusted size is idempotent.
func (e *Engine) ValidateTrade(positionSizeUSD, capital, stopLossPrice, entryPrice float64, reg string, existing []market.Position) ValidationResult {
	result := ValidationResult{Approved: true}

	if capital <= 0 || !finite(positionSizeUSD) || !finite(entryPrice) || !finite(stopLossPrice) {
		result.Approved = false
		result.Warnings = append(result.Warnings, "invalid numeric input")
		return result
	}

	fraction := positionSizeUSD / capital
	result.RiskMetrics.PositionFraction = fraction
	result.RiskMetrics.Regime = reg

	// Position size bounds.
	if fraction < e.cfg.MinPositionSize {
		result.Approved = false
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"position size $%.2f (%.1f%%) below minimum %.1f%%",
			positionSizeUSD, fraction*100, e.cfg.MinPositionSize*100))
	} else if fraction > e.cfg.MaxPositionSize {
		adjusted := capital * e.cfg.MaxPositionSize
		result.Adjustments.PositionSizeUSD = adjusted
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"position size reduced from $%.2f to $%.2f (max %.1f%%)",
			positionSizeUSD, adjusted, e.cfg.MaxPositionSize*100))
	}

	// Stop-loss distance.
	if entryPrice > 0 {
		stopPct := abs(stopLossPrice-entryPrice) / entryPrice
		result.RiskMetrics.StopLossPct = stopPct
		if stopPct > maxStopDistance {
			result.Approved = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"stop loss too wide: %.1f%% > %.0f%%", stopPct*100, maxStopDistance*100))
		} else if stopPct < minStopDistance {
			result.Approved = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"stop loss too tight: %.2f%% < %.1f%%", stopPct*100, minStopDistance*100))
		}
	}

	// Portfolio concentration.
	exposure := positionSizeUSD
	for _, pos := range existing {
		exposure += pos.PositionSizeUSD
	}
	result.RiskMetrics.PortfolioExposure = exposure
	if maxExposure := capital * maxPortfolioLeverage; exposure > maxExposure {
		result.Approved = false
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"portfolio exposure $%.2f exceeds max $%.2f", exposure, maxExposure))
	}

	// Drawdown risk.
	if entryPrice > 0 && stopLossPrice > 0 {
		potentialLoss := abs(entryPrice-stopLossPrice) / entryPrice * positionSizeUSD
		drawdown := potentialLoss / capital
		result.RiskMetrics.PotentialDrawdown = drawdown
		if drawdown > e.cfg.MaxDrawdownTarget {
			result.Approved = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"potential drawdown %.1f%% exceeds target %.1f%%",
				drawdown*100, e.cfg.MaxDrawdownTarget*100))
		}
	}

	// Warnings without a compensating adjustment block approval.
	if len(result.Warnings) > 0 && !result.Adjustments.HasAny() {
		result.Approved = false
	}

	if result.Approved {
		e.logger.Debug().Float64("size_usd", positionSizeUSD).Msg("trade approved")
	} else {
		e.logger.Info().Strs("warnings", result.Warnings).Msg("trade rejected")
	}

	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
