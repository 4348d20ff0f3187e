package risk

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trading-agent/internal/market"
)

func trackedPosition() *market.Position {
	return &market.Position{
		Symbol:               "SOLUSDT",
		EntryPrice:           100,
		EntryAmount:          10,
		PositionSizeUSD:      1_000,
		StopLoss:             95,
		TrailingStopEnabled:  true,
		TrailingStopDistance: 0.02,
	}
}

func TestTrailingStopRatchets(t *testing.T) {
	m := NewTrailingStopManager(zerolog.Nop())
	m.Track(trackedPosition())

	update := m.UpdatePrice("SOLUSDT", 110)

	require.NotNil(t, update)
	assert.False(t, update.IsTriggered)
	assert.Equal(t, 95.0, update.OldStopLoss)
	assert.InDelta(t, 107.8, update.NewStopLoss, 1e-9)
}

func TestTrailingStopNoMoveOnPullback(t *testing.T) {
	m := NewTrailingStopManager(zerolog.Nop())
	m.Track(trackedPosition())

	require.NotNil(t, m.UpdatePrice("SOLUSDT", 110))

	// Pullback above the new stop: no update at all.
	assert.Nil(t, m.UpdatePrice("SOLUSDT", 109))
}

func TestTrailingStopTriggers(t *testing.T) {
	m := NewTrailingStopManager(zerolog.Nop())
	m.Track(trackedPosition())

	require.NotNil(t, m.UpdatePrice("SOLUSDT", 110))

	update := m.UpdatePrice("SOLUSDT", 107)

	require.NotNil(t, update)
	assert.True(t, update.IsTriggered)
	assert.InDelta(t, 107.8, update.NewStopLoss, 1e-9)
}

func TestTrailingStopUntracked(t *testing.T) {
	m := NewTrailingStopManager(zerolog.Nop())

	assert.Nil(t, m.UpdatePrice("SOLUSDT", 110))

	m.Track(trackedPosition())
	m.Untrack("SOLUSDT")
	assert.Nil(t, m.UpdatePrice("SOLUSDT", 110))
}

func TestTrailingStopTracked(t *testing.T) {
	m := NewTrailingStopManager(zerolog.Nop())
	m.Track(trackedPosition())

	tracked := m.Tracked()

	require.Len(t, tracked, 1)
	assert.Equal(t, "SOLUSDT", tracked[0].Symbol)
}
