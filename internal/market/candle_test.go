package market

import (
	"errors"
	"math"
	"testing"
)

// TestCandleAccessors tests body, range and shadow math
func TestCandleAccessors(t *testing.T) {
	c := Candle{Open: 100, High: 103, Low: 98, Close: 102}

	if !c.IsBullish() || c.IsBearish() {
		t.Error("Close above open should be bullish")
	}
	if c.Body() != 2 {
		t.Errorf("Expected body 2, got %v", c.Body())
	}
	if c.Range() != 5 {
		t.Errorf("Expected range 5, got %v", c.Range())
	}
	if c.UpperShadow() != 1 {
		t.Errorf("Expected upper shadow 1, got %v", c.UpperShadow())
	}
	if c.LowerShadow() != 2 {
		t.Errorf("Expected lower shadow 2, got %v", c.LowerShadow())
	}
}

// TestCandleValidate tests rejection of malformed candles
func TestCandleValidate(t *testing.T) {
	valid := Candle{Open: 100, High: 103, Low: 98, Close: 102, Volume: 10}
	if err := valid.Validate(); err != nil {
		t.Errorf("Valid candle should pass, got %v", err)
	}

	bad := []Candle{
		{Open: math.NaN(), High: 103, Low: 98, Close: 102},
		{Open: 100, High: math.Inf(1), Low: 98, Close: 102},
		{Open: 100, High: 103, Low: 98, Close: 0},
		{Open: 100, High: 103, Low: 98, Close: -5},
		{Open: 100, High: 98, Low: 103, Close: 100},
		{Open: 100, High: 103, Low: 98, Close: 102, Volume: -1},
	}
	for i, c := range bad {
		err := c.Validate()
		if err == nil {
			t.Errorf("Candle %d should fail validation", i)
			continue
		}
		if !errors.Is(err, ErrMalformedCandle) {
			t.Errorf("Candle %d: expected ErrMalformedCandle, got %v", i, err)
		}
	}
}

// TestValidateSeries tests that the failing index is reported
func TestValidateSeries(t *testing.T) {
	series := []Candle{
		{Open: 100, High: 103, Low: 98, Close: 102},
		{Open: 102, High: 104, Low: math.NaN(), Close: 103},
	}

	err := ValidateSeries(series)
	if err == nil {
		t.Fatal("Series with a malformed candle should fail")
	}
	if !errors.Is(err, ErrMalformedCandle) {
		t.Errorf("Expected ErrMalformedCandle, got %v", err)
	}
}

// TestReturns tests simple return computation
func TestReturns(t *testing.T) {
	rets := Returns([]float64{100, 110, 99})

	if len(rets) != 2 {
		t.Fatalf("Expected 2 returns, got %d", len(rets))
	}
	if math.Abs(rets[0]-0.10) > 1e-9 {
		t.Errorf("Expected first return 0.10, got %v", rets[0])
	}
	if math.Abs(rets[1]-(-0.10)) > 1e-9 {
		t.Errorf("Expected second return -0.10, got %v", rets[1])
	}

	if Returns([]float64{100}) != nil {
		t.Error("A single price has no returns")
	}
}

// TestPositionPnL tests position profit math and trailing stop ratchet
func TestPositionPnL(t *testing.T) {
	p := Position{
		Symbol:          "SOLUSDT",
		EntryPrice:      100,
		EntryAmount:     2,
		PositionSizeUSD: 200,
		StopLoss:        95,
		TakeProfit:      120,
	}

	if pnl := p.PnL(110); pnl != 20 {
		t.Errorf("Expected PnL 20, got %v", pnl)
	}
	if pct := p.PnLPercent(110); math.Abs(pct-0.10) > 1e-9 {
		t.Errorf("Expected PnL 10%%, got %v", pct)
	}
	if p.ShouldStopOut(110) {
		t.Error("Price above stop should not stop out")
	}
	if !p.ShouldStopOut(94) {
		t.Error("Price below stop should stop out")
	}
	if !p.ShouldTakeProfit(121) {
		t.Error("Price above take profit should take profit")
	}
}

// TestTrailingStopRatchet tests that the trailing stop only moves up
func TestTrailingStopRatchet(t *testing.T) {
	p := Position{
		Symbol:               "SOLUSDT",
		EntryPrice:           100,
		StopLoss:             95,
		TrailingStopEnabled:  true,
		TrailingStopDistance: 0.05,
	}

	first, moved := p.UpdateTrailingStop(110)
	if !moved || math.Abs(first-104.5) > 1e-9 {
		t.Errorf("Expected trailing stop ratchet to 104.5, got %v (moved=%v)", first, moved)
	}
	if p.StopLoss != first {
		t.Errorf("Ratchet should raise the stop loss, got %v", p.StopLoss)
	}

	// A pullback must not lower the stop.
	if _, moved := p.UpdateTrailingStop(105); moved {
		t.Error("Trailing stop should not move down on a pullback")
	}

	second, moved := p.UpdateTrailingStop(120)
	if !moved || math.Abs(second-114) > 1e-9 {
		t.Errorf("Expected trailing stop 114, got %v (moved=%v)", second, moved)
	}
}
