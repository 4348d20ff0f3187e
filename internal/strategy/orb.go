package strategy

import (
	"fmt"
	"time"

	"solana-trading-agent/internal/market"
	"solana-trading-agent/internal/regime"
)

// BreakoutDirection labels which side of the opening range broke.
type BreakoutDirection string

const (
	BreakoutLong  BreakoutDirection = "LONG"
	BreakoutShort BreakoutDirection = "SHORT"
	BreakoutNone  BreakoutDirection = "NONE"
)

// ORB stop offsets beyond the opposite side of the range.
const (
	orbLongStopFactor  = 0.995
	orbShortStopFactor = 1.005
)

// OpeningRange is the cached per-session range state. It is exported so the
// cache layer can persist and restore it across restarts.
type OpeningRange struct {
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Defined bool    `json:"defined"`
}

// OpeningRangeBreakout trades continuation beyond the high/low of the opening
// window. The opening range is the only strategy state: one instance per
// symbol and session, not shared across goroutines without external
// synchronization. Callers reset it at session boundaries; the strategy has
// no calendar awareness.
type OpeningRangeBreakout struct {
	rangeMinutes      int
	breakoutThreshold float64
	minRangeSize      float64

	openingRange OpeningRange
}

// NewOpeningRangeBreakout creates an ORB strategy instance.
func NewOpeningRangeBreakout(rangeMinutes int, breakoutThreshold, minRangeSize float64) *OpeningRangeBreakout {
	if rangeMinutes <= 0 {
		rangeMinutes = 15
	}
	if breakoutThreshold <= 0 {
		breakoutThreshold = 0.001 // 0.1% beyond range to confirm
	}
	if minRangeSize <= 0 {
		minRangeSize = 0.005 // reject ranges narrower than 0.5%
	}
	return &OpeningRangeBreakout{
		rangeMinutes:      rangeMinutes,
		breakoutThreshold: breakoutThreshold,
		minRangeSize:      minRangeSize,
	}
}

// Name returns the strategy name.
func (s *OpeningRangeBreakout) Name() string {
	return "ORB"
}

// DefineOpeningRange computes the session range from candles inside
// [openTime, openTime+rangeMinutes]. openTime is Unix milliseconds; zero
// means the first candle's timestamp. Once defined the range is never
// silently redefined within the session; call ResetRange first. Ranges
// narrower than minRangeSize are rejected.
func (s *OpeningRangeBreakout) DefineOpeningRange(candles []market.Candle, openTime int64) (OpeningRange, bool) {
	if s.openingRange.Defined {
		return s.openingRange, true
	}
	if len(candles) == 0 {
		return OpeningRange{}, false
	}

	if openTime == 0 {
		openTime = candles[0].Timestamp
	}
	rangeEnd := openTime + int64(s.rangeMinutes)*60_000

	high, low := 0.0, 0.0
	found := false
	for _, c := range candles {
		if c.Timestamp < openTime || c.Timestamp > rangeEnd {
			continue
		}
		if !found {
			high, low = c.High, c.Low
			found = true
			continue
		}
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	if !found || low <= 0 {
		return OpeningRange{}, false
	}

	if (high-low)/low < s.minRangeSize {
		return OpeningRange{}, false
	}

	s.openingRange = OpeningRange{High: high, Low: low, Defined: true}
	return s.openingRange, true
}

// DetectBreakout checks whether price cleared either side of the range by
// more than the breakout threshold.
func (s *OpeningRangeBreakout) DetectBreakout(price float64) BreakoutDirection {
	if !s.openingRange.Defined {
		return BreakoutNone
	}

	if price > s.openingRange.High*(1+s.breakoutThreshold) {
		return BreakoutLong
	}
	if price < s.openingRange.Low*(1-s.breakoutThreshold) {
		return BreakoutShort
	}
	return BreakoutNone
}

// GenerateSignal defines the range if needed and emits a breakout signal.
func (s *OpeningRangeBreakout) GenerateSignal(currentPrice float64, candles []market.Candle, openTime int64) *Signal {
	if !s.openingRange.Defined {
		if _, ok := s.DefineOpeningRange(candles, openTime); !ok {
			return &Signal{
				Action:    ActionWait,
				Strategy:  s.Name(),
				Regime:    regime.Unknown,
				Reason:    "opening range not defined (insufficient data or range too small)",
				Timestamp: time.Now(),
			}
		}
	}

	breakout := s.DetectBreakout(currentPrice)
	if breakout == BreakoutNone {
		return &Signal{
			Action:    ActionWait,
			Strategy:  s.Name(),
			Regime:    regime.Unknown,
			Reason:    "no breakout detected",
			Timestamp: time.Now(),
		}
	}

	sig := &Signal{
		Strategy:   s.Name(),
		Regime:     regime.Unknown,
		EntryPrice: currentPrice,
		Confidence: 0.65,
		Timestamp:  time.Now(),
	}
	if breakout == BreakoutLong {
		sig.Action = ActionBuy
		sig.StopLoss = s.openingRange.Low * orbLongStopFactor
	} else {
		sig.Action = ActionSell
		sig.StopLoss = s.openingRange.High * orbShortStopFactor
	}
	sig.Reason = fmt.Sprintf("%s breakout beyond opening range [%.4f, %.4f]",
		breakout, s.openingRange.Low, s.openingRange.High)
	return sig
}

// Evaluate implements Strategy using the first candle as session open.
func (s *OpeningRangeBreakout) Evaluate(currentPrice float64, candles []market.Candle) *Signal {
	return s.GenerateSignal(currentPrice, candles, 0)
}

// ResetRange clears the cached range for a new session.
func (s *OpeningRangeBreakout) ResetRange() {
	s.openingRange = OpeningRange{}
}

// Range returns the current opening range state.
func (s *OpeningRangeBreakout) Range() OpeningRange {
	return s.openingRange
}

// RestoreRange reinstates a previously persisted opening range, used by the
// cache layer after a restart mid-session.
func (s *OpeningRangeBreakout) RestoreRange(r OpeningRange) {
	s.openingRange = r
}
