package analysis

import (
	"solana-trading-agent/internal/market"
)

// FibLevels holds retracement and extension levels anchored to the dominant
// swing of the lookback window.
type FibLevels struct {
	Trend        Direction          `json:"trend"`
	SwingHigh    float64            `json:"swing_high"`
	SwingLow     float64            `json:"swing_low"`
	Retracements map[string]float64 `json:"retracements"`
	Extensions   map[string]float64 `json:"extensions"`
}

// FibonacciLevels computes standard retracement and extension levels over the
// last `lookback` candles. The swing is bullish when the low occurred before
// the high. Returns ok=false when fewer than `lookback` candles exist.
func FibonacciLevels(candles []market.Candle, lookback int) (FibLevels, bool) {
	if lookback <= 0 {
		lookback = 100
	}
	if len(candles) < lookback {
		return FibLevels{}, false
	}

	window := candles[len(candles)-lookback:]
	hiIdx, loIdx := 0, 0
	for i, c := range window {
		if c.High > window[hiIdx].High {
			hiIdx = i
		}
		if c.Low < window[loIdx].Low {
			loIdx = i
		}
	}

	high := window[hiIdx].High
	low := window[loIdx].Low
	diff := high - low

	levels := FibLevels{
		SwingHigh:    high,
		SwingLow:     low,
		Retracements: make(map[string]float64, 5),
		Extensions:   make(map[string]float64, 3),
	}

	retr := map[string]float64{
		"0.236": 0.236,
		"0.382": 0.382,
		"0.5":   0.5,
		"0.618": 0.618,
		"0.786": 0.786,
	}
	ext := map[string]float64{
		"1.272": 0.272,
		"1.618": 0.618,
		"2.618": 1.618,
	}

	if loIdx < hiIdx {
		levels.Trend = Bullish
		for name, f := range retr {
			levels.Retracements[name] = high - f*diff
		}
		for name, f := range ext {
			levels.Extensions[name] = high + f*diff
		}
	} else {
		levels.Trend = Bearish
		for name, f := range retr {
			levels.Retracements[name] = low + f*diff
		}
		for name, f := range ext {
			levels.Extensions[name] = low - f*diff
		}
	}

	return levels, true
}
