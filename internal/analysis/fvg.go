package analysis

import (
	"solana-trading-agent/internal/market"
)

// Direction labels the side of a detected zone or trend.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
	Unknown Direction = "unknown"
)

// Gap represents a Fair Value Gap: a three-candle price discontinuity
// interpreted as an imbalance likely to be revisited.
type Gap struct {
	Direction Direction `json:"direction"`
	Top       float64   `json:"top"`
	Bottom    float64   `json:"bottom"`
	Index     int       `json:"index"`    // middle candle of the triple
	SizePct   float64   `json:"size_pct"` // decimal, 0.01 = 1%
	Mitigated bool      `json:"mitigated"`
}

// maxActiveZones caps how many unmitigated gaps/blocks are reported.
const maxActiveZones = 5

// FVGDetector detects Fair Value Gaps in candle series.
type FVGDetector struct {
	minGapPct float64
}

// NewFVGDetector creates an FVG detector. Gaps smaller than minGapPct of the
// reference price are ignored.
func NewFVGDetector(minGapPct float64) *FVGDetector {
	if minGapPct <= 0 {
		minGapPct = 0.001 // default 0.1%
	}
	return &FVGDetector{minGapPct: minGapPct}
}

// DetectGaps returns the most recent unmitigated gaps, ordered by index
// ascending. A gap is mitigated permanently once a later candle trades back
// through it; mitigated gaps never reappear for the same series snapshot.
func (fd *FVGDetector) DetectGaps(candles []market.Candle) []Gap {
	if len(candles) < 3 {
		return nil
	}

	var gaps []Gap

	for i := 2; i < len(candles); i++ {
		// Bullish FVG: high two candles back sits below the current low.
		if candles[i-2].High < candles[i].Low {
			ref := candles[i-2].High
			gapPct := (candles[i].Low - ref) / ref
			if gapPct < fd.minGapPct {
				continue
			}

			mitigated := false
			for j := i + 1; j < len(candles); j++ {
				if candles[j].Low <= ref {
					mitigated = true
					break
				}
			}
			if !mitigated {
				gaps = append(gaps, Gap{
					Direction: Bullish,
					Top:       candles[i].Low,
					Bottom:    ref,
					Index:     i - 1,
					SizePct:   gapPct,
				})
			}
		} else if candles[i-2].Low > candles[i].High {
			// Bearish FVG: low two candles back sits above the current high.
			ref := candles[i].High
			gapPct := (candles[i-2].Low - ref) / ref
			if gapPct < fd.minGapPct {
				continue
			}

			mitigated := false
			for j := i + 1; j < len(candles); j++ {
				if candles[j].High >= candles[i-2].Low {
					mitigated = true
					break
				}
			}
			if !mitigated {
				gaps = append(gaps, Gap{
					Direction: Bearish,
					Top:       candles[i-2].Low,
					Bottom:    ref,
					Index:     i - 1,
					SizePct:   gapPct,
				})
			}
		}
	}

	if len(gaps) > maxActiveZones {
		gaps = gaps[len(gaps)-maxActiveZones:]
	}
	return gaps
}

// IsPriceInGap checks if price is inside the gap zone.
func (fd *FVGDetector) IsPriceInGap(price float64, gap Gap) bool {
	return price >= gap.Bottom && price <= gap.Top
}
