// Package cache provides Redis-based persistence for session state that
// must survive restarts. When Redis is unavailable, it falls back to an
// in-memory cache so the decision cycle continues without interruption.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solana-trading-agent/internal/strategy"
)

const (
	// rangeKeyPrefix is the prefix for opening range keys.
	// Format: agent:orb:{symbol}
	rangeKeyPrefix = "agent:orb"

	// rangeTTL keeps the opening range for one trading day.
	rangeTTL = 24 * time.Hour
)

// persistedRange is the stored form of an ORB opening range.
type persistedRange struct {
	Symbol  string    `json:"symbol"`
	High    float64   `json:"high"`
	Low     float64   `json:"low"`
	SavedAt time.Time `json:"saved_at"`
}

// RangeStore persists ORB opening ranges in Redis with an in-memory
// fallback when Redis is unavailable.
type RangeStore struct {
	client         *redis.Client
	logger         zerolog.Logger
	inMemory       map[string]*persistedRange
	mu             sync.RWMutex
	redisAvailable atomic.Bool
}

// NewRangeStore creates a range store. If client is nil, the store
// operates in memory-only mode.
func NewRangeStore(client *redis.Client, logger zerolog.Logger) *RangeStore {
	s := &RangeStore{
		client:   client,
		logger:   logger.With().Str("component", "range_store").Logger(),
		inMemory: make(map[string]*persistedRange),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("redis unavailable at startup, using in-memory cache")
			s.redisAvailable.Store(false)
		} else {
			s.logger.Info().Msg("redis connected")
			s.redisAvailable.Store(true)
		}
	} else {
		s.logger.Info().Msg("no redis client provided, using in-memory cache only")
		s.redisAvailable.Store(false)
	}

	return s
}

func (s *RangeStore) rangeKey(symbol string) string {
	return fmt.Sprintf("%s:%s", rangeKeyPrefix, symbol)
}

// SaveRange persists a defined opening range for a symbol.
func (s *RangeStore) SaveRange(ctx context.Context, symbol string, r strategy.OpeningRange) error {
	if !r.Defined {
		return nil
	}

	state := &persistedRange{
		Symbol:  symbol,
		High:    r.High,
		Low:     r.Low,
		SavedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.inMemory[symbol] = state
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal opening range: %w", err)
	}

	if err := s.client.Set(ctx, s.rangeKey(symbol), data, rangeTTL).Err(); err != nil {
		s.redisAvailable.Store(false)
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("redis save failed, range kept in memory")
		return nil
	}
	s.redisAvailable.Store(true)
	return nil
}

// LoadRange retrieves a persisted opening range. Returns ok=false when no
// range is stored for the symbol.
func (s *RangeStore) LoadRange(ctx context.Context, symbol string) (strategy.OpeningRange, bool) {
	if s.client != nil {
		data, err := s.client.Get(ctx, s.rangeKey(symbol)).Bytes()
		switch {
		case err == redis.Nil:
			return strategy.OpeningRange{}, false
		case err != nil:
			s.redisAvailable.Store(false)
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("redis load failed, trying in-memory cache")
		default:
			s.redisAvailable.Store(true)
			var state persistedRange
			if err := json.Unmarshal(data, &state); err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("corrupt opening range entry")
				return strategy.OpeningRange{}, false
			}
			return strategy.OpeningRange{High: state.High, Low: state.Low, Defined: true}, true
		}
	}

	s.mu.RLock()
	state, ok := s.inMemory[symbol]
	s.mu.RUnlock()
	if !ok {
		return strategy.OpeningRange{}, false
	}
	return strategy.OpeningRange{High: state.High, Low: state.Low, Defined: true}, true
}

// ClearRange removes a symbol's opening range at session end.
func (s *RangeStore) ClearRange(ctx context.Context, symbol string) error {
	s.mu.Lock()
	delete(s.inMemory, symbol)
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, s.rangeKey(symbol)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("redis delete failed")
	}
	return nil
}

// RedisAvailable reports whether the last Redis operation succeeded.
func (s *RangeStore) RedisAvailable() bool {
	return s.redisAvailable.Load()
}
