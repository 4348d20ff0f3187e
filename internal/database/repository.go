package database

import (
	"context"
	"fmt"

	"solana-trading-agent/internal/market"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveDecision stores a decision cycle outcome
func (r *Repository) SaveDecision(ctx context.Context, d *DecisionRecord) error {
	query := `
		INSERT INTO decisions (cycle_id, symbol, strategy_name, action, regime,
			entry_price, stop_loss, take_profit, confidence,
			position_size_usd, position_fraction, sizing_method,
			approved, warnings, reason, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query,
		d.CycleID, d.Symbol, d.StrategyName, d.Action, d.Regime,
		d.EntryPrice, d.StopLoss, d.TakeProfit, d.Confidence,
		d.PositionSizeUSD, d.PositionFraction, d.SizingMethod,
		d.Approved, d.Warnings, d.Reason, d.Timestamp,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

// GetRecentDecisions retrieves the most recent decisions for a symbol
func (r *Repository) GetRecentDecisions(ctx context.Context, symbol string, limit int) ([]DecisionRecord, error) {
	query := `
		SELECT id, cycle_id, symbol, strategy_name, action, regime,
			entry_price, COALESCE(stop_loss, 0), COALESCE(take_profit, 0),
			COALESCE(confidence, 0), COALESCE(position_size_usd, 0),
			COALESCE(position_fraction, 0), COALESCE(sizing_method, ''),
			approved, COALESCE(warnings, '{}'), COALESCE(reason, ''),
			timestamp, created_at
		FROM decisions
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		err := rows.Scan(&d.ID, &d.CycleID, &d.Symbol, &d.StrategyName, &d.Action, &d.Regime,
			&d.EntryPrice, &d.StopLoss, &d.TakeProfit, &d.Confidence,
			&d.PositionSizeUSD, &d.PositionFraction, &d.SizingMethod,
			&d.Approved, &d.Warnings, &d.Reason, &d.Timestamp, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// SaveTrade stores a new trade
func (r *Repository) SaveTrade(ctx context.Context, t *Trade) error {
	query := `
		INSERT INTO trades (symbol, side, entry_price, quantity, entry_time,
			stop_loss, take_profit, strategy_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		t.Symbol, t.Side, t.EntryPrice, t.Quantity, t.EntryTime,
		t.StopLoss, t.TakeProfit, t.StrategyName, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// GetTrade returns a single trade by id
func (r *Repository) GetTrade(ctx context.Context, id int) (*Trade, error) {
	query := `
		SELECT id, symbol, side, entry_price, quantity, entry_time, status
		FROM trades
		WHERE id = $1`

	var t Trade
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Symbol, &t.Side, &t.EntryPrice, &t.Quantity, &t.EntryTime, &t.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	return &t, nil
}

// CloseTrade marks a trade as closed with exit details
func (r *Repository) CloseTrade(ctx context.Context, id int, exitPrice, pnl, pnlPercent float64) error {
	query := `
		UPDATE trades
		SET exit_price = $2, exit_time = CURRENT_TIMESTAMP,
			pnl = $3, pnl_percent = $4, status = 'CLOSED'
		WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, exitPrice, pnl, pnlPercent)
	if err != nil {
		return fmt.Errorf("failed to close trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trade %d not found", id)
	}
	return nil
}

// GetClosedTrades returns the most recent closed trades, oldest first,
// in the form the risk engine consumes.
func (r *Repository) GetClosedTrades(ctx context.Context, symbol string, limit int) ([]market.ClosedTrade, error) {
	query := `
		SELECT entry_price, COALESCE(exit_price, 0)
		FROM (
			SELECT entry_price, exit_price, exit_time
			FROM trades
			WHERE symbol = $1 AND status = 'CLOSED'
			ORDER BY exit_time DESC
			LIMIT $2
		) recent
		ORDER BY exit_time ASC`

	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed trades: %w", err)
	}
	defer rows.Close()

	var trades []market.ClosedTrade
	for rows.Next() {
		var t market.ClosedTrade
		if err := rows.Scan(&t.EntryPrice, &t.ExitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// UpsertPosition stores or updates an open position
func (r *Repository) UpsertPosition(ctx context.Context, p *PositionRecord) error {
	query := `
		INSERT INTO positions (symbol, side, entry_price, quantity, size_usd,
			stop_loss, take_profit, trailing_enabled, trailing_distance,
			trailing_price, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (symbol) DO UPDATE SET
			side = EXCLUDED.side,
			entry_price = EXCLUDED.entry_price,
			quantity = EXCLUDED.quantity,
			size_usd = EXCLUDED.size_usd,
			stop_loss = EXCLUDED.stop_loss,
			take_profit = EXCLUDED.take_profit,
			trailing_enabled = EXCLUDED.trailing_enabled,
			trailing_distance = EXCLUDED.trailing_distance,
			trailing_price = EXCLUDED.trailing_price
		RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query,
		p.Symbol, p.Side, p.EntryPrice, p.Quantity, p.SizeUSD,
		p.StopLoss, p.TakeProfit, p.TrailingEnabled, p.TrailingDistance,
		p.TrailingPrice, p.OpenedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

// DeletePosition removes a closed position
func (r *Repository) DeletePosition(ctx context.Context, symbol string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM positions WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// GetOpenPositions returns all open positions in the form the risk
// engine's exposure check consumes.
func (r *Repository) GetOpenPositions(ctx context.Context) ([]market.Position, error) {
	query := `
		SELECT id, symbol, entry_price, quantity, size_usd,
			COALESCE(stop_loss, 0), COALESCE(take_profit, 0),
			trailing_enabled, COALESCE(trailing_distance, 0),
			COALESCE(trailing_price, 0)
		FROM positions
		ORDER BY opened_at`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []market.Position
	for rows.Next() {
		var p market.Position
		err := rows.Scan(&p.TradeID, &p.Symbol, &p.EntryPrice, &p.EntryAmount, &p.PositionSizeUSD,
			&p.StopLoss, &p.TakeProfit, &p.TrailingStopEnabled, &p.TrailingStopDistance,
			&p.TrailingStopPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// UpdatePositionStop persists a trailing stop ratchet
func (r *Repository) UpdatePositionStop(ctx context.Context, symbol string, stopLoss, trailingPrice float64) error {
	query := `
		UPDATE positions
		SET stop_loss = $2, trailing_price = $3
		WHERE symbol = $1`

	tag, err := r.db.Pool.Exec(ctx, query, symbol, stopLoss, trailingPrice)
	if err != nil {
		return fmt.Errorf("failed to update position stop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %s not found", symbol)
	}
	return nil
}

// SaveRegimeEvent stores a regime transition
func (r *Repository) SaveRegimeEvent(ctx context.Context, e *RegimeEvent) error {
	query := `
		INSERT INTO regime_events (symbol, regime, price, trend_line, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query,
		e.Symbol, e.Regime, e.Price, e.TrendLine, e.Timestamp,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to save regime event: %w", err)
	}
	return nil
}

// GetRegimeEvents retrieves regime transitions for a symbol, newest first
func (r *Repository) GetRegimeEvents(ctx context.Context, symbol string, limit int) ([]RegimeEvent, error) {
	query := `
		SELECT id, symbol, regime, price, trend_line, timestamp, created_at
		FROM regime_events
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query regime events: %w", err)
	}
	defer rows.Close()

	var events []RegimeEvent
	for rows.Next() {
		var e RegimeEvent
		err := rows.Scan(&e.ID, &e.Symbol, &e.Regime, &e.Price, &e.TrendLine, &e.Timestamp, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan regime event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
