package strategy

import (
	"fmt"
	"time"

	"solana-trading-agent/internal/market"
	"solana-trading-agent/internal/regime"
)

// Exit recommendations from ShouldExitPosition.
const (
	ExitSell   = "SELL"
	ExitReduce = "REDUCE"
	ExitHold   = "HOLD"
)

// Trend strategy thresholds.
const (
	trendStopFactor       = 0.95  // stop sits 5% below the trend line
	trendExitBelowTrend   = 0.10  // exit when price is >10% below trend
	trendExitDrawdown     = -0.20 // exit on >20% loss from entry
	defaultEntryThreshold = 0.02
)

// ExitDecision is the result of an exit evaluation for an open position.
type ExitDecision struct {
	ShouldExit      bool   `json:"should_exit"`
	SuggestedAction string `json:"suggested_action"`
	Reason          string `json:"reason"`
}

// TrendFollowing is a long-horizon strategy that sizes with the risk regime
// instead of chasing entries: buy only well above trend, and on a trend
// break reduce size rather than exit. Stateless per call.
type TrendFollowing struct {
	entryThreshold float64
	classifier     *regime.Classifier
}

// NewTrendFollowing creates the trend strategy. entryThreshold is the minimum
// distance above trend, as a decimal, required to enter.
func NewTrendFollowing(entryThreshold float64, classifier *regime.Classifier) *TrendFollowing {
	if entryThreshold <= 0 {
		entryThreshold = defaultEntryThreshold
	}
	if classifier == nil {
		classifier = regime.NewClassifier(0, 0)
	}
	return &TrendFollowing{
		entryThreshold: entryThreshold,
		classifier:     classifier,
	}
}

// Name returns the strategy name.
func (s *TrendFollowing) Name() string {
	return "TREND"
}

// Evaluate classifies the regime and decides the action. The stop is always
// the trend line less 5%, a dynamic safety net independent of regime.
func (s *TrendFollowing) Evaluate(currentPrice float64, candles []market.Candle) *Signal {
	prices := market.Closes(candles)

	trendLine, ok := s.classifier.TrendLine(prices)
	if !ok {
		return &Signal{
			Action:    ActionWait,
			Strategy:  s.Name(),
			Regime:    regime.Unknown,
			Reason:    "insufficient data for trend calculation",
			Timestamp: time.Now(),
		}
	}

	reg := s.classifier.Classify(currentPrice, trendLine)
	if reg == regime.Unknown {
		return &Signal{
			Action:    ActionWait,
			Strategy:  s.Name(),
			Regime:    regime.Unknown,
			Reason:    "invalid price input",
			Timestamp: time.Now(),
		}
	}

	distance := s.classifier.DistanceFromTrend(currentPrice, trendLine)

	var action Action
	var confidence float64
	var reason string

	if reg == regime.RiskOn {
		if distance >= s.entryThreshold {
			action = ActionBuy
			confidence = 0.7
			reason = fmt.Sprintf("RISK-ON regime: %.2f%% above trend (favorable risk/return)", distance*100)
		} else {
			action = ActionHold
			confidence = 0.5
			reason = fmt.Sprintf("RISK-ON but close to trend (%.2f%%), waiting for better entry", distance*100)
		}
	} else {
		// Below trend we never sell from regime alone; exits are a
		// separate rule in ShouldExitPosition.
		action = ActionHold
		confidence = 0.4
		reason = fmt.Sprintf("RISK-OFF regime: %.2f%% below trend (reduce position size, don't exit)", -distance*100)
	}

	return &Signal{
		Action:     action,
		Strategy:   s.Name(),
		Regime:     reg,
		EntryPrice: currentPrice,
		StopLoss:   trendLine * trendStopFactor,
		Confidence: confidence,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
}

// ShouldExitPosition decides whether an open position must be closed. Exits
// only trigger on significant adverse movement: price more than 10% below
// trend, or a loss beyond 20% from entry. Otherwise the position is reduced
// in RISK-OFF and held in RISK-ON.
func (s *TrendFollowing) ShouldExitPosition(entryPrice, currentPrice, trendLine float64, reg regime.Regime) ExitDecision {
	if entryPrice > 0 {
		pnlPct := (currentPrice - entryPrice) / entryPrice
		if pnlPct < trendExitDrawdown {
			return ExitDecision{
				ShouldExit:      true,
				SuggestedAction: ExitSell,
				Reason:          fmt.Sprintf("large drawdown: %.1f%% from entry", pnlPct*100),
			}
		}
	}

	if trendLine > 0 {
		belowTrend := (trendLine - currentPrice) / trendLine
		if belowTrend > trendExitBelowTrend {
			return ExitDecision{
				ShouldExit:      true,
				SuggestedAction: ExitSell,
				Reason:          fmt.Sprintf("price %.1f%% below trend (risk too high)", belowTrend*100),
			}
		}
	}

	if reg == regime.RiskOff {
		return ExitDecision{
			SuggestedAction: ExitReduce,
			Reason:          "RISK-OFF regime: reduce position size but don't exit",
		}
	}
	return ExitDecision{
		SuggestedAction: ExitHold,
		Reason:          "RISK-ON regime: maintain or increase position",
	}
}
