package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"solana-trading-agent/internal/market"
)

func TestUpdateFromHistoryEmpty(t *testing.T) {
	e := testEngine()

	m := e.UpdateFromHistory(nil)

	// Neutral defaults keep sizing alive before any trades close.
	assert.Equal(t, defaultWinRate, m.WinRate)
	assert.Equal(t, defaultAvgWinPct, m.AvgWinPct)
	assert.Equal(t, defaultAvgLossPct, m.AvgLossPct)
	assert.Zero(t, m.TotalTrades)
}

func TestUpdateFromHistory(t *testing.T) {
	e := testEngine()

	trades := []market.ClosedTrade{
		{EntryPrice: 100, ExitPrice: 110}, // +10%
		{EntryPrice: 100, ExitPrice: 106}, // +6%
		{EntryPrice: 100, ExitPrice: 96},  // -4%
		{EntryPrice: 100, ExitPrice: 98},  // -2%
	}

	m := e.UpdateFromHistory(trades)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.WinsCount)
	assert.Equal(t, 2, m.LossesCount)
	assert.InDelta(t, 0.5, m.WinRate, 1e-9)
	assert.InDelta(t, 0.08, m.AvgWinPct, 1e-9)
	assert.InDelta(t, 0.03, m.AvgLossPct, 1e-9)
	assert.Greater(t, m.SharpeLike, 0.0)
}

func TestUpdateFromHistoryAllLosses(t *testing.T) {
	e := testEngine()

	trades := []market.ClosedTrade{
		{EntryPrice: 100, ExitPrice: 95},
		{EntryPrice: 100, ExitPrice: 90},
	}

	m := e.UpdateFromHistory(trades)

	assert.Zero(t, m.WinRate)
	assert.Equal(t, 2, m.LossesCount)
	// With no wins the average win keeps its neutral default.
	assert.Equal(t, defaultAvgWinPct, m.AvgWinPct)
	assert.InDelta(t, 0.075, m.AvgLossPct, 1e-9)
}

func TestUpdateFromHistorySkipsZeroEntry(t *testing.T) {
	e := testEngine()

	trades := []market.ClosedTrade{
		{EntryPrice: 0, ExitPrice: 110},
		{EntryPrice: 100, ExitPrice: 110},
	}

	m := e.UpdateFromHistory(trades)

	assert.Equal(t, 1, m.WinsCount)
	// TotalTrades still counts the malformed row for the win-rate base.
	assert.Equal(t, 2, m.TotalTrades)
}
