package market

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedCandle indicates a candle with non-finite or non-positive
// price fields. This is a contract violation by the data provider and is
// surfaced to the caller instead of being silently defaulted.
var ErrMalformedCandle = errors.New("malformed candle")

// Candle represents a single OHLCV candle.
type Candle struct {
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Body returns the absolute body size of the candle.
func (c Candle) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// Range returns the high-low range of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// UpperShadow returns the distance from the body top to the high.
func (c Candle) UpperShadow() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerShadow returns the distance from the body bottom to the low.
func (c Candle) LowerShadow() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// Validate checks the candle for non-finite or non-positive prices and
// inverted high/low. Callers are expected to pass ascending-time series;
// ordering is not re-checked here.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: price field %v", ErrMalformedCandle, v)
		}
	}
	if math.IsNaN(c.Volume) || math.IsInf(c.Volume, 0) || c.Volume < 0 {
		return fmt.Errorf("%w: volume %v", ErrMalformedCandle, c.Volume)
	}
	if c.High < c.Low {
		return fmt.Errorf("%w: high %v below low %v", ErrMalformedCandle, c.High, c.Low)
	}
	return nil
}

// ValidateSeries validates every candle in the series.
func ValidateSeries(candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("candle %d: %w", i, err)
		}
	}
	return nil
}

// Closes extracts the close prices from a candle series.
func Closes(candles []Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}
	return prices
}

// Returns computes simple period-over-period returns from a price series.
// The result has len(prices)-1 entries; an empty slice is returned for
// fewer than two prices.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, (prices[i]-prices[i-1])/prices[i-1])
	}
	return rets
}
