package analysis

import (
	"solana-trading-agent/internal/market"
)

// OrderBlock represents a reversal candle preceding a strong displacement
// move, interpreted as an institutional footprint.
type OrderBlock struct {
	Direction Direction `json:"direction"`
	Top       float64   `json:"top"`
	Bottom    float64   `json:"bottom"`
	Index     int       `json:"index"`
	Mitigated bool      `json:"mitigated"`
}

const (
	obBodyAvgPeriod     = 10
	obDisplacementRatio = 1.5
)

// OrderBlockDetector detects order blocks in candle series.
type OrderBlockDetector struct{}

// NewOrderBlockDetector creates an order block detector.
func NewOrderBlockDetector() *OrderBlockDetector {
	return &OrderBlockDetector{}
}

// DetectOrderBlocks returns the most recent unbroken order blocks, ordered by
// index ascending. A bullish block is a bearish candle followed by a bullish
// candle whose body exceeds 1.5x the rolling average body and which closes
// above the bearish candle's high; a block is mitigated once a later close
// crosses its far boundary. Bearish is the mirror.
func (od *OrderBlockDetector) DetectOrderBlocks(candles []market.Candle) []OrderBlock {
	if len(candles) < 5 {
		return nil
	}

	avgBody := rollingBodyMean(candles, obBodyAvgPeriod)

	var blocks []OrderBlock

	// Skip the last forming candles, same as the displacement candle lookahead.
	for i := 2; i < len(candles)-2; i++ {
		if avgBody[i] == 0 {
			continue
		}

		if candles[i].IsBearish() && candles[i+1].IsBullish() {
			if candles[i+1].Body() > avgBody[i]*obDisplacementRatio && candles[i+1].Close > candles[i].High {
				mitigated := false
				for j := i + 2; j < len(candles); j++ {
					if candles[j].Close < candles[i].Low {
						mitigated = true
						break
					}
				}
				if !mitigated {
					blocks = append(blocks, OrderBlock{
						Direction: Bullish,
						Top:       candles[i].High,
						Bottom:    candles[i].Low,
						Index:     i,
					})
				}
			}
		} else if candles[i].IsBullish() && candles[i+1].IsBearish() {
			if candles[i+1].Body() > avgBody[i]*obDisplacementRatio && candles[i+1].Close < candles[i].Low {
				mitigated := false
				for j := i + 2; j < len(candles); j++ {
					if candles[j].Close > candles[i].High {
						mitigated = true
						break
					}
				}
				if !mitigated {
					blocks = append(blocks, OrderBlock{
						Direction: Bearish,
						Top:       candles[i].High,
						Bottom:    candles[i].Low,
						Index:     i,
					})
				}
			}
		}
	}

	if len(blocks) > maxActiveZones {
		blocks = blocks[len(blocks)-maxActiveZones:]
	}
	return blocks
}

// rollingBodyMean computes a trailing mean of candle body sizes. Entries
// before a full window are zero, which disables detection there.
func rollingBodyMean(candles []market.Candle, period int) []float64 {
	means := make([]float64, len(candles))
	sum := 0.0
	for i, c := range candles {
		sum += c.Body()
		if i >= period {
			sum -= candles[i-period].Body()
		}
		if i >= period-1 {
			means[i] = sum / float64(period)
		}
	}
	return means
}
