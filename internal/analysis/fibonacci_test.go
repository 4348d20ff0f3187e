package analysis

import (
	"math"
	"testing"

	"solana-trading-agent/internal/market"
)

// risingSeries builds n candles climbing from a 100 low to a 200 high.
func risingSeries(n int) []market.Candle {
	candles := make([]market.Candle, n)
	step := 100.0 / float64(n-1)
	for i := range candles {
		base := 100 + float64(i)*step
		candles[i] = candle(base, base, base-0.5, base)
	}
	// Anchor the exact swing extremes.
	candles[0].Low = 100
	candles[n-1].High = 200
	return candles
}

// TestFibonacciBullish tests retracements anchored low-to-high
func TestFibonacciBullish(t *testing.T) {
	levels, ok := FibonacciLevels(risingSeries(10), 10)

	if !ok {
		t.Fatal("Expected levels for a full lookback window")
	}
	if levels.Trend != Bullish {
		t.Errorf("Low before high should be a bullish swing, got %s", levels.Trend)
	}
	if levels.SwingHigh != 200 || levels.SwingLow != 100 {
		t.Errorf("Expected swing [100, 200], got [%v, %v]", levels.SwingLow, levels.SwingHigh)
	}

	expect := map[string]float64{
		"0.236": 176.4,
		"0.382": 161.8,
		"0.5":   150.0,
		"0.618": 138.2,
		"0.786": 121.4,
	}
	for name, want := range expect {
		if got := levels.Retracements[name]; math.Abs(got-want) > 1e-9 {
			t.Errorf("Retracement %s: expected %v, got %v", name, want, got)
		}
	}

	if got := levels.Extensions["1.272"]; math.Abs(got-227.2) > 1e-9 {
		t.Errorf("Extension 1.272: expected 227.2, got %v", got)
	}
	if got := levels.Extensions["1.618"]; math.Abs(got-261.8) > 1e-9 {
		t.Errorf("Extension 1.618: expected 261.8, got %v", got)
	}
}

// TestFibonacciBearish tests the high-to-low anchoring
func TestFibonacciBearish(t *testing.T) {
	rising := risingSeries(10)
	falling := make([]market.Candle, len(rising))
	for i := range rising {
		falling[len(rising)-1-i] = rising[i]
	}

	levels, ok := FibonacciLevels(falling, 10)

	if !ok {
		t.Fatal("Expected levels for a full lookback window")
	}
	if levels.Trend != Bearish {
		t.Errorf("High before low should be a bearish swing, got %s", levels.Trend)
	}
	if got := levels.Retracements["0.5"]; math.Abs(got-150) > 1e-9 {
		t.Errorf("Retracement 0.5: expected 150, got %v", got)
	}
	// Extensions project below the low on a bearish swing.
	if got := levels.Extensions["1.272"]; math.Abs(got-72.8) > 1e-9 {
		t.Errorf("Extension 1.272: expected 72.8, got %v", got)
	}
}

// TestFibonacciInsufficientHistory tests the lookback guard
func TestFibonacciInsufficientHistory(t *testing.T) {
	if _, ok := FibonacciLevels(risingSeries(10), 100); ok {
		t.Error("Fewer candles than lookback should not produce levels")
	}
}
