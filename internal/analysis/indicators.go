package analysis

import (
	"solana-trading-agent/internal/market"
)

// RSI calculates the Relative Strength Index over the last `period` candles.
// Returns a neutral 50 when history is too short.
func RSI(candles []market.Candle, period int) float64 {
	if period <= 0 {
		period = 14
	}
	if len(candles) < period+1 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// SMA calculates the simple moving average of the last `period` closes.
// Returns ok=false on an empty series; a short series averages what exists.
func SMA(prices []float64, period int) (float64, bool) {
	if len(prices) == 0 || period <= 0 {
		return 0, false
	}
	if len(prices) < period {
		period = len(prices)
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), true
}
