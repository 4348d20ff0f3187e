// Package feed consumes real-time kline streams over WebSocket and keeps a
// rolling candle history per symbol for the decision engine.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-trading-agent/internal/market"
)

// maxHistory bounds the per-symbol candle buffer. 500 candles covers the
// 200-period trend line with room for lookbacks.
const maxHistory = 500

// klineEvent is the combined-stream kline payload.
type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
		Kline     struct {
			StartTime int64   `json:"t"`
			CloseTime int64   `json:"T"`
			Open      float64 `json:"o,string"`
			Close     float64 `json:"c,string"`
			High      float64 `json:"h,string"`
			Low       float64 `json:"l,string"`
			Volume    float64 `json:"v,string"`
			IsClosed  bool    `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// KlineStream maintains a WebSocket subscription to kline streams and a
// rolling candle history per symbol.
type KlineStream struct {
	mu sync.RWMutex

	baseURL   string
	symbols   []string
	interval  string
	wsConn    *websocket.Conn
	isRunning bool
	stopChan  chan struct{}
	logger    zerolog.Logger

	history    map[string][]market.Candle
	lastPrices map[string]float64

	onCandle func(symbol string, candle market.Candle)
}

// NewKlineStream creates a kline stream for the given symbols and interval.
func NewKlineStream(baseURL string, symbols []string, interval string, logger zerolog.Logger) *KlineStream {
	return &KlineStream{
		baseURL:    baseURL,
		symbols:    symbols,
		interval:   interval,
		stopChan:   make(chan struct{}),
		logger:     logger.With().Str("component", "kline_stream").Logger(),
		history:    make(map[string][]market.Candle),
		lastPrices: make(map[string]float64),
	}
}

// SetCandleCallback registers a callback invoked on every closed candle.
func (s *KlineStream) SetCandleCallback(cb func(symbol string, candle market.Candle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCandle = cb
}

// Start begins the stream connection and read loop.
func (s *KlineStream) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if len(s.symbols) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("kline stream: no symbols configured")
	}
	s.isRunning = true
	s.mu.Unlock()

	go s.connect()

	s.logger.Info().Strs("symbols", s.symbols).Str("interval", s.interval).Msg("kline stream started")
	return nil
}

// Stop stops the stream and closes the connection.
func (s *KlineStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)

	if s.wsConn != nil {
		s.wsConn.Close()
	}
	s.logger.Info().Msg("kline stream stopped")
}

// IsRunning reports whether the stream is active.
func (s *KlineStream) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Candles returns a copy of the candle history for a symbol.
func (s *KlineStream) Candles(symbol string) []market.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.history[strings.ToUpper(symbol)]
	out := make([]market.Candle, len(src))
	copy(out, src)
	return out
}

// LastPrice returns the latest traded price for a symbol, 0 if unseen.
func (s *KlineStream) LastPrice(symbol string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPrices[strings.ToUpper(symbol)]
}

// Seed preloads candle history, typically from a REST backfill, so the
// trend line is usable before the stream accumulates candles.
func (s *KlineStream) Seed(symbol string, candles []market.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToUpper(symbol)
	buf := make([]market.Candle, len(candles))
	copy(buf, candles)
	if len(buf) > maxHistory {
		buf = buf[len(buf)-maxHistory:]
	}
	s.history[key] = buf
	if len(buf) > 0 {
		s.lastPrices[key] = buf[len(buf)-1].Close
	}
}

func (s *KlineStream) streamURL() string {
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = fmt.Sprintf("%s@kline_%s", strings.ToLower(sym), s.interval)
	}
	return fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(streams, "/"))
}

// connect establishes the WebSocket connection with retry.
func (s *KlineStream) connect() {
	wsURL := s.streamURL()

	for {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("connection failed, retrying in 5s")
			select {
			case <-s.stopChan:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		s.mu.Lock()
		s.wsConn = conn
		s.mu.Unlock()

		s.logger.Info().Msg("connected")
		s.readLoop(conn)

		s.mu.RLock()
		running = s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Warn().Msg("connection lost, reconnecting in 3s")
		select {
		case <-s.stopChan:
			return
		case <-time.After(3 * time.Second):
		}
	}
}

// readLoop processes messages until the connection drops.
func (s *KlineStream) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug().Err(err).Msg("read error")
			return
		}

		var event klineEvent
		if err := json.Unmarshal(message, &event); err != nil {
			s.logger.Debug().Err(err).Msg("unparseable message")
			continue
		}
		if event.Data.EventType != "kline" {
			continue
		}

		s.handleKline(event)
	}
}

func (s *KlineStream) handleKline(event klineEvent) {
	k := event.Data.Kline
	symbol := strings.ToUpper(event.Data.Symbol)

	candle := market.Candle{
		Timestamp: k.StartTime,
		Open:      k.Open,
		High:      k.High,
		Low:       k.Low,
		Close:     k.Close,
		Volume:    k.Volume,
	}

	s.mu.Lock()
	s.lastPrices[symbol] = k.Close

	var cb func(string, market.Candle)
	if k.IsClosed {
		buf := append(s.history[symbol], candle)
		if len(buf) > maxHistory {
			buf = buf[len(buf)-maxHistory:]
		}
		s.history[symbol] = buf
		cb = s.onCandle
	}
	s.mu.Unlock()

	if cb != nil {
		cb(symbol, candle)
	}
}
