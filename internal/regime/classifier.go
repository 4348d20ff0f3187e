// Package regime classifies price action into risk regimes relative to a
// long-term trend line. The classification drives position sizing: roughly
// two thirds of returns occur above the trend with a third of the risk, so
// positions are scaled up above trend and down below it.
package regime

import (
	"math"
)

// Regime is the risk regime of the market.
type Regime string

const (
	RiskOn  Regime = "RISK_ON"  // above trend, favorable risk/return
	RiskOff Regime = "RISK_OFF" // below trend, unfavorable risk/return
	Unknown Regime = "UNKNOWN"  // insufficient or invalid data
)

// Statistics summarizes historical behavior per regime.
type Statistics struct {
	RiskOnPctTime     float64 `json:"risk_on_pct_time"`
	RiskOffPctTime    float64 `json:"risk_off_pct_time"`
	RiskOnPctReturns  float64 `json:"risk_on_pct_returns"`
	RiskOffPctReturns float64 `json:"risk_off_pct_returns"`
	RiskOnVolatility  float64 `json:"risk_on_volatility"`
	RiskOffVolatility float64 `json:"risk_off_volatility"`
}

// ClusteringInfo reports whether downside risk is clustering.
type ClusteringInfo struct {
	IsClustering        bool `json:"is_clustering"`
	ConsecutiveDownDays int  `json:"consecutive_down_days"`
}

const clusteringStreak = 3

// Classifier classifies risk regimes from a price series.
type Classifier struct {
	trendPeriod      int
	minTrendPeriod   int
	volatilityWindow int
}

// NewClassifier creates a regime classifier. trendPeriod is the moving
// average length (200 typical); shorter histories degrade to the available
// length down to minTrendPeriod, with a corresponding loss of accuracy.
func NewClassifier(trendPeriod, volatilityWindow int) *Classifier {
	if trendPeriod <= 0 {
		trendPeriod = 200
	}
	if volatilityWindow <= 0 {
		volatilityWindow = 20
	}
	return &Classifier{
		trendPeriod:      trendPeriod,
		minTrendPeriod:   20,
		volatilityWindow: volatilityWindow,
	}
}

// TrendPeriod returns the configured trend period.
func (c *Classifier) TrendPeriod() int {
	return c.trendPeriod
}

// EffectivePeriod returns the trend period actually used for a series of
// the given length.
func (c *Classifier) EffectivePeriod(available int) int {
	if available < c.trendPeriod {
		return available
	}
	return c.trendPeriod
}

// TrendLine computes the simple moving average of the last trendPeriod
// prices. Shorter series fall back to the available length; fewer than
// minTrendPeriod observations return ok=false.
func (c *Classifier) TrendLine(prices []float64) (float64, bool) {
	period := c.EffectivePeriod(len(prices))
	if period < c.minTrendPeriod {
		return 0, false
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		if !isFinitePositive(prices[i]) {
			return 0, false
		}
		sum += prices[i]
	}
	return sum / float64(period), true
}

// Classify returns the regime for a price relative to the trend line.
// Invalid numeric inputs produce Unknown rather than propagating into
// sizing math.
func (c *Classifier) Classify(currentPrice, trendLine float64) Regime {
	if !isFinitePositive(currentPrice) || !isFinitePositive(trendLine) {
		return Unknown
	}
	if currentPrice > trendLine {
		return RiskOn
	}
	return RiskOff
}

// DistanceFromTrend returns how far price sits from the trend line as a
// decimal fraction (positive above trend).
func (c *Classifier) DistanceFromTrend(currentPrice, trendLine float64) float64 {
	if !isFinitePositive(trendLine) {
		return 0
	}
	return (currentPrice - trendLine) / trendLine
}

// ComputeStatistics partitions historical returns by regime at each point and
// reports time share, return share, and volatility per regime. Used for
// offline validation only. prices and returns must be aligned so that
// returns[i] is the return realized at prices[i].
func (c *Classifier) ComputeStatistics(prices, returns []float64) (Statistics, bool) {
	if len(prices) < c.trendPeriod || len(prices) != len(returns) {
		return Statistics{}, false
	}

	var onReturns, offReturns []float64
	classified := 0
	for i := c.trendPeriod - 1; i < len(prices); i++ {
		window := prices[i+1-c.trendPeriod : i+1]
		sum := 0.0
		for _, p := range window {
			sum += p
		}
		trend := sum / float64(c.trendPeriod)
		classified++
		if prices[i] > trend {
			onReturns = append(onReturns, returns[i])
		} else {
			offReturns = append(offReturns, returns[i])
		}
	}
	if classified == 0 {
		return Statistics{}, false
	}

	stats := Statistics{
		RiskOnPctTime:     float64(len(onReturns)) / float64(classified) * 100,
		RiskOffPctTime:    float64(len(offReturns)) / float64(classified) * 100,
		RiskOnVolatility:  stddev(onReturns),
		RiskOffVolatility: stddev(offReturns),
	}

	onTotal := sum(onReturns)
	offTotal := sum(offReturns)
	if total := onTotal + offTotal; total != 0 {
		stats.RiskOnPctReturns = onTotal / total * 100
		stats.RiskOffPctReturns = offTotal / total * 100
	}
	return stats, true
}

// DetectClustering counts the trailing streak of negative returns among
// RISK_OFF periods inside the window. Risk is considered clustering at a
// streak of three or more. regimeMask[i] is true for RISK_ON at point i.
func (c *Classifier) DetectClustering(returns []float64, regimeMask []bool, window int) ClusteringInfo {
	if window <= 0 {
		window = c.volatilityWindow
	}
	if len(returns) < window || len(returns) != len(regimeMask) {
		return ClusteringInfo{}
	}

	var offReturns []float64
	for i, r := range returns {
		if !regimeMask[i] {
			offReturns = append(offReturns, r)
		}
	}
	if len(offReturns) > window {
		offReturns = offReturns[len(offReturns)-window:]
	}

	streak := 0
	for _, r := range offReturns {
		if r < 0 {
			streak++
		} else {
			streak = 0
		}
	}

	return ClusteringInfo{
		IsClustering:        streak >= clusteringStreak,
		ConsecutiveDownDays: streak,
	}
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func sum(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := sum(values) / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}
