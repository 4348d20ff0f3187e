package strategy

import (
	"math"
	"testing"

	"solana-trading-agent/internal/market"
	"solana-trading-agent/internal/regime"
)

// flatCandles builds n candles closing at the given price, so the trend
// line equals it exactly.
func flatCandles(n int, close float64) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      close,
			High:      close + 0.5,
			Low:       close - 0.5,
			Close:     close,
			Volume:    1000,
		}
	}
	return candles
}

// TestTrendBuySignal tests the entry well above trend
func TestTrendBuySignal(t *testing.T) {
	s := NewTrendFollowing(0.02, regime.NewClassifier(200, 20))

	// Trend line at 100, price 5% above.
	sig := s.Evaluate(105, flatCandles(200, 100))

	if sig.Action != ActionBuy {
		t.Errorf("Expected BUY above threshold, got %s", sig.Action)
	}
	if sig.Regime != regime.RiskOn {
		t.Errorf("Expected RISK_ON, got %s", sig.Regime)
	}
	if sig.Confidence != 0.7 {
		t.Errorf("Expected confidence 0.7, got %v", sig.Confidence)
	}
	// Stop sits 5% below the trend line, not below price.
	if math.Abs(sig.StopLoss-95) > 1e-9 {
		t.Errorf("Expected stop 95, got %v", sig.StopLoss)
	}
	if sig.EntryPrice != 105 {
		t.Errorf("Expected entry at current price, got %v", sig.EntryPrice)
	}
}

// TestTrendHoldNearTrend tests that a thin edge above trend does not enter
func TestTrendHoldNearTrend(t *testing.T) {
	s := NewTrendFollowing(0.02, regime.NewClassifier(200, 20))

	// 1% above trend, below the 2% entry threshold.
	sig := s.Evaluate(101, flatCandles(200, 100))

	if sig.Action != ActionHold {
		t.Errorf("Expected HOLD near trend, got %s", sig.Action)
	}
	if sig.Confidence != 0.5 {
		t.Errorf("Expected confidence 0.5, got %v", sig.Confidence)
	}
}

// TestTrendRiskOffHolds tests that below trend the strategy never sells
func TestTrendRiskOffHolds(t *testing.T) {
	s := NewTrendFollowing(0.02, regime.NewClassifier(200, 20))

	sig := s.Evaluate(90, flatCandles(200, 100))

	if sig.Action != ActionHold {
		t.Errorf("Expected HOLD in RISK_OFF, got %s", sig.Action)
	}
	if sig.Regime != regime.RiskOff {
		t.Errorf("Expected RISK_OFF, got %s", sig.Regime)
	}
	if sig.Confidence != 0.4 {
		t.Errorf("Expected confidence 0.4, got %v", sig.Confidence)
	}
}

// TestTrendWaitOnShortHistory tests the insufficient data path
func TestTrendWaitOnShortHistory(t *testing.T) {
	s := NewTrendFollowing(0.02, regime.NewClassifier(200, 20))

	sig := s.Evaluate(105, flatCandles(10, 100))

	if sig.Action != ActionWait {
		t.Errorf("Expected WAIT on short history, got %s", sig.Action)
	}
	if sig.Regime != regime.Unknown {
		t.Errorf("Expected unknown regime, got %s", sig.Regime)
	}
}

// TestTrendWaitOnBadPrice tests the invalid price path
func TestTrendWaitOnBadPrice(t *testing.T) {
	s := NewTrendFollowing(0.02, regime.NewClassifier(200, 20))

	sig := s.Evaluate(math.NaN(), flatCandles(200, 100))

	if sig.Action != ActionWait {
		t.Errorf("Expected WAIT on NaN price, got %s", sig.Action)
	}
}

// TestShouldExitOnDrawdown tests the 20% loss hard exit
func TestShouldExitOnDrawdown(t *testing.T) {
	s := NewTrendFollowing(0.02, nil)

	decision := s.ShouldExitPosition(100, 79, 85, regime.RiskOff)

	if !decision.ShouldExit || decision.SuggestedAction != ExitSell {
		t.Errorf("Expected hard exit on >20%% drawdown, got %+v", decision)
	}
}

// TestShouldExitFarBelowTrend tests the trend break exit
func TestShouldExitFarBelowTrend(t *testing.T) {
	s := NewTrendFollowing(0.02, nil)

	// 11% below trend but only 11% down from entry.
	decision := s.ShouldExitPosition(100, 89, 100, regime.RiskOff)

	if !decision.ShouldExit || decision.SuggestedAction != ExitSell {
		t.Errorf("Expected exit far below trend, got %+v", decision)
	}
}

// TestShouldReduceInRiskOff tests the reduce-not-exit behavior
func TestShouldReduceInRiskOff(t *testing.T) {
	s := NewTrendFollowing(0.02, nil)

	// 5% below trend, small loss: reduce, don't exit.
	decision := s.ShouldExitPosition(100, 95, 100, regime.RiskOff)

	if decision.ShouldExit {
		t.Error("Moderate RISK_OFF should not force an exit")
	}
	if decision.SuggestedAction != ExitReduce {
		t.Errorf("Expected REDUCE, got %s", decision.SuggestedAction)
	}
}

// TestShouldHoldInRiskOn tests the hold path
func TestShouldHoldInRiskOn(t *testing.T) {
	s := NewTrendFollowing(0.02, nil)

	decision := s.ShouldExitPosition(100, 108, 100, regime.RiskOn)

	if decision.ShouldExit || decision.SuggestedAction != ExitHold {
		t.Errorf("Expected HOLD in RISK_ON, got %+v", decision)
	}
}
