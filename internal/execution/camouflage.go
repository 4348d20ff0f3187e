// Package execution generates camouflaged order parameters. Predatory
// algorithms hunt round-number stops and round-lot sizes; orders here use
// odd-lot quantities and non-round prices so the flow resembles retail.
package execution

import (
	"math"
	"math/rand"

	"github.com/rs/zerolog"
)

// Noise bands applied to stop and take-profit prices.
const (
	stopNoisePct = 0.003 // ±0.3%
	tpNoisePct   = 0.002 // ±0.2%
)

// oddLotMultipliers deliberately excludes 1.0 so the quantity never equals
// the exact target.
var oddLotMultipliers = []float64{0.96, 0.97, 0.98, 0.99, 1.01, 1.02, 1.03, 1.04}

// CamouflagedOrder is a complete set of disguised order parameters.
type CamouflagedOrder struct {
	OrderType       string  `json:"order_type"` // BUY or SELL
	EntryPrice      float64 `json:"entry_price"`
	AssetQuantity   float64 `json:"asset_quantity"`
	PositionSizeUSD float64 `json:"position_size_usd"` // actual size after odd-lot
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit,omitempty"`
	ExecutionStyle  string  `json:"execution_style"`
}

// Camouflager produces disguised order parameters. The RNG is injected via
// seed so identical runs are reproducible in tests; construct with a zero
// seed for non-deterministic behavior.
type Camouflager struct {
	rng    *rand.Rand
	logger zerolog.Logger
}

// NewCamouflager creates a camouflager. A non-zero seed makes output
// deterministic.
func NewCamouflager(seed int64, logger zerolog.Logger) *Camouflager {
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Camouflager{
		rng:    rand.New(src),
		logger: logger.With().Str("component", "execution").Logger(),
	}
}

// OddLotSize converts a USD target into an odd-lot asset quantity: base
// quantity times a multiplier that is never 1.0, rounded 3 or 4 digits below
// the base's magnitude, floored at minSize. The result never equals
// target/price exactly.
func (c *Camouflager) OddLotSize(targetUSD, price, minSize float64) float64 {
	if price <= 0 || targetUSD <= 0 {
		return minSize
	}

	base := targetUSD / price
	multiplier := oddLotMultipliers[c.rng.Intn(len(oddLotMultipliers))]

	// Small bases need extra decimals or the multiplier rounds away and the
	// quantity collapses back onto the exact target.
	decimals := c.pickDecimals()
	if base < 1 {
		decimals += int(math.Ceil(-math.Log10(base)))
	}
	size := roundTo(base*multiplier, decimals)
	if size == base {
		size = roundTo(base*multiplier, decimals+2)
	}

	if size < minSize {
		size = minSize
	}
	return size
}

// CamouflagedStop computes a stop price offset by stopPct from entry, with
// ±0.3% noise and non-round rounding. Prices ending in .00/.25/.50/.75 are
// re-rolled since those are exactly the levels stop hunters sweep.
func (c *Camouflager) CamouflagedStop(entryPrice, stopPct float64, long bool) float64 {
	var base float64
	if long {
		base = entryPrice * (1 - stopPct)
	} else {
		base = entryPrice * (1 + stopPct)
	}
	return c.obscure(base, stopNoisePct)
}

// CamouflagedTakeProfit mirrors CamouflagedStop with a tighter noise band.
func (c *Camouflager) CamouflagedTakeProfit(entryPrice, tpPct float64, long bool) float64 {
	var base float64
	if long {
		base = entryPrice * (1 + tpPct)
	} else {
		base = entryPrice * (1 - tpPct)
	}
	return c.obscure(base, tpNoisePct)
}

// ShouldUseLimitOrder reports whether volatility warrants a limit order to
// avoid slippage. Strictly greater than the threshold.
func (c *Camouflager) ShouldUseLimitOrder(volatility, threshold float64) bool {
	return volatility > threshold
}

// PlaceHiddenOrder composes a full camouflaged order: odd-lot quantity,
// noisy stop, and optional noisy take profit. tpPct of zero omits the take
// profit.
func (c *Camouflager) PlaceHiddenOrder(orderType string, entryPrice, positionSizeUSD, stopPct, tpPct float64) CamouflagedOrder {
	long := orderType == "BUY"

	quantity := c.OddLotSize(positionSizeUSD, entryPrice, 0.01)
	order := CamouflagedOrder{
		OrderType:       orderType,
		EntryPrice:      entryPrice,
		AssetQuantity:   quantity,
		PositionSizeUSD: quantity * entryPrice,
		StopLoss:        c.CamouflagedStop(entryPrice, stopPct, long),
		ExecutionStyle:  "camouflaged",
	}
	if tpPct > 0 {
		order.TakeProfit = c.CamouflagedTakeProfit(entryPrice, tpPct, long)
	}

	c.logger.Debug().
		Str("order_type", orderType).
		Float64("quantity", order.AssetQuantity).
		Float64("stop", order.StopLoss).
		Msg("hidden order prepared")

	return order
}

// obscure applies uniform noise and rounds to an odd decimal count,
// re-rolling until the cents ending is not a quarter fraction.
func (c *Camouflager) obscure(base, noisePct float64) float64 {
	for attempt := 0; attempt < 16; attempt++ {
		noise := (c.rng.Float64()*2 - 1) * noisePct
		price := roundTo(base*(1+noise), c.pickDecimals())
		if !hasRoundEnding(price) {
			return price
		}
	}
	// Noise kept landing on round endings (tiny prices); nudge off them.
	return roundTo(base, 4) + 0.0001
}

func (c *Camouflager) pickDecimals() int {
	if c.rng.Intn(2) == 0 {
		return 3
	}
	return 4
}

// hasRoundEnding reports whether the price ends in .00, .25, .50 or .75.
func hasRoundEnding(price float64) bool {
	cents := math.Round(price*100) - math.Floor(price)*100
	rounded := math.Round(price*100) / 100
	if rounded != price {
		return false // more precision than cents, cannot be a round ending
	}
	m := int(cents+0.5) % 25
	return m == 0
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
