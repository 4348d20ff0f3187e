package database

import "time"

// Trade represents a trade record
type Trade struct {
	ID           int        `json:"id"`
	Symbol       string     `json:"symbol"`
	Side         string     `json:"side"`
	EntryPrice   float64    `json:"entry_price"`
	ExitPrice    *float64   `json:"exit_price,omitempty"`
	Quantity     float64    `json:"quantity"`
	EntryTime    time.Time  `json:"entry_time"`
	ExitTime     *time.Time `json:"exit_time,omitempty"`
	StopLoss     *float64   `json:"stop_loss,omitempty"`
	TakeProfit   *float64   `json:"take_profit,omitempty"`
	PnL          *float64   `json:"pnl,omitempty"`
	PnLPercent   *float64   `json:"pnl_percent,omitempty"`
	StrategyName string     `json:"strategy_name"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DecisionRecord is a stored decision cycle outcome
type DecisionRecord struct {
	ID               int       `json:"id"`
	CycleID          string    `json:"cycle_id"`
	Symbol           string    `json:"symbol"`
	StrategyName     string    `json:"strategy_name"`
	Action           string    `json:"action"`
	Regime           string    `json:"regime"`
	EntryPrice       float64   `json:"entry_price"`
	StopLoss         float64   `json:"stop_loss"`
	TakeProfit       float64   `json:"take_profit"`
	Confidence       float64   `json:"confidence"`
	PositionSizeUSD  float64   `json:"position_size_usd"`
	PositionFraction float64   `json:"position_fraction"`
	SizingMethod     string    `json:"sizing_method"`
	Approved         bool      `json:"approved"`
	Warnings         []string  `json:"warnings,omitempty"`
	Reason           string    `json:"reason"`
	Timestamp        time.Time `json:"timestamp"`
	CreatedAt        time.Time `json:"created_at"`
}

// PositionRecord is a stored open position
type PositionRecord struct {
	ID               int       `json:"id"`
	Symbol           string    `json:"symbol"`
	Side             string    `json:"side"`
	EntryPrice       float64   `json:"entry_price"`
	Quantity         float64   `json:"quantity"`
	SizeUSD          float64   `json:"size_usd"`
	StopLoss         float64   `json:"stop_loss"`
	TakeProfit       float64   `json:"take_profit"`
	TrailingEnabled  bool      `json:"trailing_enabled"`
	TrailingDistance float64   `json:"trailing_distance"`
	TrailingPrice    float64   `json:"trailing_price"`
	OpenedAt         time.Time `json:"opened_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RegimeEvent is a stored regime transition
type RegimeEvent struct {
	ID        int       `json:"id"`
	Symbol    string    `json:"symbol"`
	Regime    string    `json:"regime"`
	Price     float64   `json:"price"`
	TrendLine float64   `json:"trend_line"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}
