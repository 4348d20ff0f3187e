package analysis

import (
	"solana-trading-agent/internal/market"
)

// Pattern is a candlestick pattern detected at the end of the series.
type Pattern struct {
	Name  string `json:"name"`
	Index int    `json:"index"` // index of the last candle involved
}

// Pattern detection thresholds relative to candle range/body.
const (
	dojiBodyRatio     = 0.1
	starBodyRatio     = 0.3
	largeBodyRatio    = 0.6
	shadowDominance   = 0.6
	shadowNegligible  = 0.1
	rangeEpsilon      = 1e-9
)

// CandlestickDetector evaluates reversal patterns on the most recent candles.
// Patterns are only checked at the end of the window, not retroactively.
type CandlestickDetector struct{}

// NewCandlestickDetector creates a candlestick pattern detector.
func NewCandlestickDetector() *CandlestickDetector {
	return &CandlestickDetector{}
}

// Detect returns all patterns present on the last one to three candles.
func (cd *CandlestickDetector) Detect(candles []market.Candle) []Pattern {
	if len(candles) < 2 {
		return nil
	}

	var patterns []Pattern
	last := len(candles) - 1
	c0 := candles[last]
	c1 := candles[last-1]

	if cd.isDoji(c0) {
		patterns = append(patterns, Pattern{Name: "Doji", Index: last})
	}
	if cd.isGravestoneDoji(c0) {
		patterns = append(patterns, Pattern{Name: "Gravestone Doji", Index: last})
	}
	if cd.isBullishEngulfing(c1, c0) {
		patterns = append(patterns, Pattern{Name: "Bullish Engulfing", Index: last})
	}
	if cd.isBearishEngulfing(c1, c0) {
		patterns = append(patterns, Pattern{Name: "Bearish Engulfing", Index: last})
	}
	if cd.isHammer(c0) {
		patterns = append(patterns, Pattern{Name: "Hammer", Index: last})
	}
	if cd.isShootingStar(c0) {
		patterns = append(patterns, Pattern{Name: "Shooting Star", Index: last})
	}

	if len(candles) >= 3 {
		c2 := candles[last-2]
		if cd.isMorningStar(c2, c1, c0) {
			patterns = append(patterns, Pattern{Name: "Morning Star", Index: last})
		}
		if cd.isEveningStar(c2, c1, c0) {
			patterns = append(patterns, Pattern{Name: "Evening Star", Index: last})
		}
	}

	return patterns
}

func bodyRatio(c market.Candle) float64 {
	rng := c.Range()
	if rng == 0 {
		rng = rangeEpsilon
	}
	return c.Body() / rng
}

func (cd *CandlestickDetector) isDoji(c market.Candle) bool {
	return bodyRatio(c) < dojiBodyRatio
}

func (cd *CandlestickDetector) isGravestoneDoji(c market.Candle) bool {
	rng := c.Range()
	if rng == 0 {
		return false
	}
	return cd.isDoji(c) &&
		c.UpperShadow() > shadowDominance*rng &&
		c.LowerShadow() < shadowNegligible*rng
}

func (cd *CandlestickDetector) isBullishEngulfing(prev, cur market.Candle) bool {
	return prev.IsBearish() && cur.IsBullish() &&
		cur.Close > prev.Open && cur.Open < prev.Close
}

func (cd *CandlestickDetector) isBearishEngulfing(prev, cur market.Candle) bool {
	return prev.IsBullish() && cur.IsBearish() &&
		cur.Close < prev.Open && cur.Open > prev.Close
}

func (cd *CandlestickDetector) isHammer(c market.Candle) bool {
	return bodyRatio(c) < starBodyRatio &&
		c.LowerShadow() > 2*c.Body() &&
		c.UpperShadow() < 0.2*c.Body()
}

func (cd *CandlestickDetector) isShootingStar(c market.Candle) bool {
	return bodyRatio(c) < starBodyRatio &&
		c.UpperShadow() > 2*c.Body() &&
		c.LowerShadow() < 0.2*c.Body()
}

func (cd *CandlestickDetector) isMorningStar(first, star, last market.Candle) bool {
	return first.IsBearish() && bodyRatio(first) > largeBodyRatio &&
		bodyRatio(star) < starBodyRatio &&
		last.IsBullish() && bodyRatio(last) > 0.5 &&
		last.Close > (first.Open+first.Close)/2
}

func (cd *CandlestickDetector) isEveningStar(first, star, last market.Candle) bool {
	return first.IsBullish() && bodyRatio(first) > largeBodyRatio &&
		bodyRatio(star) < starBodyRatio &&
		last.IsBearish() && bodyRatio(last) > 0.5 &&
		last.Close < (first.Open+first.Close)/2
}
