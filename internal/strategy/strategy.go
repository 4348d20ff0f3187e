package strategy

import (
	"time"

	"solana-trading-agent/internal/market"
	"solana-trading-agent/internal/regime"
)

// Action is the directional decision of a strategy.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
	ActionWait Action = "WAIT"
)

// Signal is a trading signal produced by a strategy. Signals are immutable
// once emitted and are recomputed fresh each cycle.
type Signal struct {
	Action     Action        `json:"action"`
	Strategy   string        `json:"strategy"`
	Regime     regime.Regime `json:"regime"`
	EntryPrice float64       `json:"entry_price"`
	StopLoss   float64       `json:"stop_loss"`
	TakeProfit float64       `json:"take_profit,omitempty"`
	Confidence float64       `json:"confidence"` // 0.0 to 1.0
	Reason     string        `json:"reason"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Strategy is the common surface of the trading strategies. Evaluate must be
// safe to call every cycle with the latest candle window; implementations
// carry no state except the ORB opening-range cache.
type Strategy interface {
	Name() string
	Evaluate(currentPrice float64, candles []market.Candle) *Signal
}
