package risk

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trading-agent/internal/market"
)

func TestValidateTradeApproved(t *testing.T) {
	e := testEngine()

	// 15% of capital with a 3% stop: inside every limit.
	result := e.ValidateTrade(1_500, 10_000, 97, 100, "RISK_ON", nil)

	assert.True(t, result.Approved)
	assert.Empty(t, result.Warnings)
	assert.InDelta(t, 0.15, result.RiskMetrics.PositionFraction, 1e-9)
	assert.InDelta(t, 0.03, result.RiskMetrics.StopLossPct, 1e-9)
	assert.Equal(t, "RISK_ON", result.RiskMetrics.Regime)
}

func TestValidateTradeTooSmall(t *testing.T) {
	e := testEngine()

	// 1% of capital is below the 5% floor: rejected, not adjusted.
	result := e.ValidateTrade(100, 10_000, 97, 100, "RISK_ON", nil)

	assert.False(t, result.Approved)
	require.NotEmpty(t, result.Warnings)
	assert.False(t, result.Adjustments.HasAny())
}

func TestValidateTradeOversizedAdjustedDown(t *testing.T) {
	e := testEngine()

	// 40% of capital exceeds the 25% cap: adjusted down and approved.
	result := e.ValidateTrade(4_000, 10_000, 97, 100, "RISK_ON", nil)

	assert.True(t, result.Approved)
	require.True(t, result.Adjustments.HasAny())
	assert.InDelta(t, 2_500, result.Adjustments.PositionSizeUSD, 1e-9)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateTradeAdjustmentIdempotent(t *testing.T) {
	e := testEngine()

	first := e.ValidateTrade(4_000, 10_000, 97, 100, "RISK_ON", nil)
	require.True(t, first.Adjustments.HasAny())

	// Re-validating the adjusted size passes cleanly with no further change.
	second := e.ValidateTrade(first.Adjustments.PositionSizeUSD, 10_000, 97, 100, "RISK_ON", nil)

	assert.True(t, second.Approved)
	assert.False(t, second.Adjustments.HasAny())
	assert.Empty(t, second.Warnings)
}

func TestValidateTradeStopTooWide(t *testing.T) {
	e := testEngine()

	// 15% stop distance exceeds the 10% ceiling.
	result := e.ValidateTrade(1_500, 10_000, 85, 100, "RISK_ON", nil)

	assert.False(t, result.Approved)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateTradeStopTooTight(t *testing.T) {
	e := testEngine()

	// 0.1% stop distance is inside the noise band.
	result := e.ValidateTrade(1_500, 10_000, 99.9, 100, "RISK_ON", nil)

	assert.False(t, result.Approved)
}

func TestValidateTradePortfolioExposure(t *testing.T) {
	e := testEngine()

	existing := []market.Position{
		{Symbol: "SOLUSDT", PositionSizeUSD: 12_000},
		{Symbol: "ETHUSDT", PositionSizeUSD: 7_500},
	}

	// 19.5k open plus 1.5k new exceeds 2x capital.
	result := e.ValidateTrade(1_500, 10_000, 97, 100, "RISK_ON", existing)

	assert.False(t, result.Approved)
	assert.InDelta(t, 21_000, result.RiskMetrics.PortfolioExposure, 1e-9)
}

func TestValidateTradeDrawdownRisk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDrawdownTarget = 0.001
	cfg.MaxPositionSize = 0.5
	e := NewEngine(cfg, zerolog.Nop())

	// A 3% stop on 25% of capital risks 0.75% of capital, above the
	// 0.1% tolerance configured here.
	result := e.ValidateTrade(2_500, 10_000, 97, 100, "RISK_ON", nil)

	assert.False(t, result.Approved)
	assert.InDelta(t, 0.0075, result.RiskMetrics.PotentialDrawdown, 1e-9)
}

func TestValidateTradeInvalidInputs(t *testing.T) {
	e := testEngine()

	result := e.ValidateTrade(1_500, 0, 97, 100, "RISK_ON", nil)
	assert.False(t, result.Approved)
}
