package market

// ClosedTrade is a completed round-trip trade used to update Kelly inputs.
type ClosedTrade struct {
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
}

// PnLPercent returns the trade result as a decimal fraction of entry.
func (t ClosedTrade) PnLPercent() float64 {
	if t.EntryPrice == 0 {
		return 0
	}
	return (t.ExitPrice - t.EntryPrice) / t.EntryPrice
}

// Position is an open position as seen by the risk engine. The engine reads
// it for portfolio checks; the trailing-stop ratchet is its only mutation.
type Position struct {
	TradeID              int64   `json:"trade_id"`
	Symbol               string  `json:"symbol"`
	EntryPrice           float64 `json:"entry_price"`
	EntryAmount          float64 `json:"entry_amount"`
	PositionSizeUSD      float64 `json:"position_size_usd"`
	StopLoss             float64 `json:"stop_loss"`
	TakeProfit           float64 `json:"take_profit"`
	CurrentPrice         float64 `json:"current_price"`
	TrailingStopEnabled  bool    `json:"trailing_stop_enabled"`
	TrailingStopDistance float64 `json:"trailing_stop_distance"` // decimal, 0.02 = 2%
	TrailingStopPrice    float64 `json:"trailing_stop_price"`
}

// PnL returns the unrealized profit or loss in USD.
func (p *Position) PnL(currentPrice float64) float64 {
	return (currentPrice - p.EntryPrice) * p.EntryAmount
}

// PnLPercent returns the unrealized profit or loss as a decimal fraction.
func (p *Position) PnLPercent(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (currentPrice - p.EntryPrice) / p.EntryPrice
}

// ShouldStopOut reports whether price has reached the stop loss.
func (p *Position) ShouldStopOut(currentPrice float64) bool {
	return p.StopLoss > 0 && currentPrice <= p.StopLoss
}

// ShouldTakeProfit reports whether price has reached the take profit.
func (p *Position) ShouldTakeProfit(currentPrice float64) bool {
	return p.TakeProfit > 0 && currentPrice >= p.TakeProfit
}

// UpdateTrailingStop ratchets the stop upward when price moves favorably.
// The stop never moves down. Returns the new stop and true when it moved.
func (p *Position) UpdateTrailingStop(currentPrice float64) (float64, bool) {
	if !p.TrailingStopEnabled {
		return 0, false
	}

	newStop := currentPrice * (1 - p.TrailingStopDistance)
	if newStop > p.StopLoss {
		p.TrailingStopPrice = newStop
		p.StopLoss = newStop
		return newStop, true
	}
	return 0, false
}
