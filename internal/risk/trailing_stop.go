package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-agent/internal/market"
)

// TrailingStopManager tracks open positions and ratchets their stops as
// price moves favorably. The stop only ever tightens.
type TrailingStopManager struct {
	mu        sync.RWMutex
	positions map[string]*market.Position
	logger    zerolog.Logger
}

// StopUpdate reports the result of a price update for one position.
type StopUpdate struct {
	Symbol      string    `json:"symbol"`
	OldStopLoss float64   `json:"old_stop_loss"`
	NewStopLoss float64   `json:"new_stop_loss"`
	IsTriggered bool      `json:"is_triggered"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTrailingStopManager creates a trailing stop manager.
func NewTrailingStopManager(logger zerolog.Logger) *TrailingStopManager {
	return &TrailingStopManager{
		positions: make(map[string]*market.Position),
		logger:    logger.With().Str("component", "trailing_stop").Logger(),
	}
}

// Track begins trailing a position, keyed by symbol.
func (m *TrailingStopManager) Track(pos *market.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.Symbol] = pos

	m.logger.Info().
		Str("symbol", pos.Symbol).
		Float64("entry", pos.EntryPrice).
		Float64("stop", pos.StopLoss).
		Msg("position tracked")
}

// Untrack stops trailing a position.
func (m *TrailingStopManager) Untrack(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, symbol)
}

// UpdatePrice applies a new price to a tracked position. Returns nil when
// the symbol is untracked or nothing changed.
func (m *TrailingStopManager) UpdatePrice(symbol string, currentPrice float64) *StopUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return nil
	}

	if pos.ShouldStopOut(currentPrice) {
		return &StopUpdate{
			Symbol:      symbol,
			OldStopLoss: pos.StopLoss,
			NewStopLoss: pos.StopLoss,
			IsTriggered: true,
			UpdatedAt:   time.Now(),
		}
	}

	oldStop := pos.StopLoss
	if newStop, moved := pos.UpdateTrailingStop(currentPrice); moved {
		m.logger.Debug().
			Str("symbol", symbol).
			Float64("old_stop", oldStop).
			Float64("new_stop", newStop).
			Msg("trailing stop ratcheted")
		return &StopUpdate{
			Symbol:      symbol,
			OldStopLoss: oldStop,
			NewStopLoss: newStop,
			UpdatedAt:   time.Now(),
		}
	}
	return nil
}

// Tracked returns the currently tracked positions.
func (m *TrailingStopManager) Tracked() []market.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]market.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	return out
}
