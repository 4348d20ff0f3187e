package risk

import (
	"solana-trading-agent/internal/market"
)

// Neutral Kelly inputs used when no trade history exists yet, so sizing is
// not starved to zero before the first trades close.
const (
	defaultWinRate    = 0.55
	defaultAvgWinPct  = 0.05
	defaultAvgLossPct = 0.03
)

// PerformanceMetrics summarizes closed-trade history for Kelly sizing.
// Percentages are decimal fractions.
type PerformanceMetrics struct {
	WinRate     float64 `json:"win_rate"`
	AvgWinPct   float64 `json:"avg_win_pct"`
	AvgLossPct  float64 `json:"avg_loss_pct"`
	TotalTrades int     `json:"total_trades"`
	WinsCount   int     `json:"wins_count"`
	LossesCount int     `json:"losses_count"`
	SharpeLike  float64 `json:"sharpe_like"`
}

// UpdateFromHistory derives Kelly inputs from closed trades. Trades are wins
// when (exit-entry)/entry is positive. An empty history returns the neutral
// defaults.
func (e *Engine) UpdateFromHistory(trades []market.ClosedTrade) PerformanceMetrics {
	if len(trades) == 0 {
		return PerformanceMetrics{
			WinRate:    defaultWinRate,
			AvgWinPct:  defaultAvgWinPct,
			AvgLossPct: defaultAvgLossPct,
		}
	}

	var wins, losses []float64
	for _, t := range trades {
		if t.EntryPrice == 0 {
			continue
		}
		pnl := t.PnLPercent()
		if pnl > 0 {
			wins = append(wins, pnl)
		} else {
			losses = append(losses, pnl)
		}
	}

	m := PerformanceMetrics{
		TotalTrades: len(trades),
		WinsCount:   len(wins),
		LossesCount: len(losses),
		WinRate:     defaultWinRate,
		AvgWinPct:   defaultAvgWinPct,
		AvgLossPct:  defaultAvgLossPct,
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(len(wins)) / float64(m.TotalTrades)
	}
	if len(wins) > 0 {
		m.AvgWinPct = mean(wins)
	}
	if len(losses) > 0 {
		m.AvgLossPct = abs(mean(losses))
	}

	if len(wins) > 0 && len(losses) > 0 && m.AvgLossPct > 0 {
		m.SharpeLike = (m.WinRate*m.AvgWinPct - (1-m.WinRate)*m.AvgLossPct) / m.AvgLossPct
	}

	e.logger.Info().
		Int("total_trades", m.TotalTrades).
		Float64("win_rate", m.WinRate).
		Float64("avg_win_pct", m.AvgWinPct).
		Float64("avg_loss_pct", m.AvgLossPct).
		Msg("performance metrics updated")

	return m
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s / float64(len(values))
}
