package analysis

import (
	"solana-trading-agent/internal/market"
)

// TrendState describes market structure derived from swing points.
type TrendState struct {
	Direction  Direction `json:"direction"`
	SwingHighs []float64 `json:"swing_highs"`
	SwingLows  []float64 `json:"swing_lows"`
}

// StructureAnalyzer derives trend direction from swing highs and lows.
type StructureAnalyzer struct {
	window int
}

// NewStructureAnalyzer creates a structure analyzer with a centered swing
// window.
func NewStructureAnalyzer(window int) *StructureAnalyzer {
	if window <= 0 {
		window = 5
	}
	return &StructureAnalyzer{window: window}
}

// Analyze identifies swing points and classifies the trend. Direction is
// bullish only when both the latest two swing highs and swing lows are
// strictly increasing, bearish when both strictly decreasing, neutral when
// mixed, and unknown when fewer than two of either swing type exist.
func (sa *StructureAnalyzer) Analyze(candles []market.Candle) TrendState {
	half := sa.window / 2

	var highs, lows []float64
	for i := half; i < len(candles)-half; i++ {
		isHigh := true
		isLow := true
		for j := i - half; j <= i+half; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}

	state := TrendState{
		Direction:  Unknown,
		SwingHighs: tail(highs, maxActiveZones),
		SwingLows:  tail(lows, maxActiveZones),
	}

	if len(highs) < 2 || len(lows) < 2 {
		return state
	}

	higherHighs := highs[len(highs)-1] > highs[len(highs)-2]
	higherLows := lows[len(lows)-1] > lows[len(lows)-2]

	switch {
	case higherHighs && higherLows:
		state.Direction = Bullish
	case !higherHighs && !higherLows:
		state.Direction = Bearish
	default:
		state.Direction = Neutral
	}
	return state
}

func tail(values []float64, n int) []float64 {
	if len(values) > n {
		return values[len(values)-n:]
	}
	return values
}
