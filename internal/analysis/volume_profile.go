package analysis

import (
	"sort"

	"solana-trading-agent/internal/market"
)

// VolumeProfile aggregates a volume-weighted histogram of traded prices.
// POC is the price bucket with the most volume; the value area is the
// smallest set of buckets holding 70% of total volume.
type VolumeProfile struct {
	POC           float64 `json:"poc"`
	ValueAreaHigh float64 `json:"vah"`
	ValueAreaLow  float64 `json:"val"`
	TotalVolume   float64 `json:"total_volume"`
}

const valueAreaFraction = 0.70

// VolumeProfiler builds volume profiles from candle series.
type VolumeProfiler struct {
	bins int
}

// NewVolumeProfiler creates a profiler with the given bucket count.
func NewVolumeProfiler(bins int) *VolumeProfiler {
	if bins <= 0 {
		bins = 24
	}
	return &VolumeProfiler{bins: bins}
}

// Profile buckets close prices by volume over [min(low), max(high)].
// Returns ok=false when the series is empty or the price range is
// degenerate (all prices equal).
func (vp *VolumeProfiler) Profile(candles []market.Candle) (VolumeProfile, bool) {
	if len(candles) == 0 {
		return VolumeProfile{}, false
	}

	lo := candles[0].Low
	hi := candles[0].High
	for _, c := range candles {
		if c.Low < lo {
			lo = c.Low
		}
		if c.High > hi {
			hi = c.High
		}
	}
	if hi == lo {
		return VolumeProfile{}, false
	}

	width := (hi - lo) / float64(vp.bins)
	volumes := make([]float64, vp.bins)
	total := 0.0
	for _, c := range candles {
		idx := int((c.Close - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= vp.bins {
			idx = vp.bins - 1
		}
		volumes[idx] += c.Volume
		total += c.Volume
	}
	if total == 0 {
		return VolumeProfile{}, false
	}

	midpoint := func(i int) float64 {
		return lo + width*(float64(i)+0.5)
	}

	pocIdx := 0
	for i, v := range volumes {
		if v > volumes[pocIdx] {
			pocIdx = i
		}
	}

	// Value area: take buckets in descending volume order until 70% of
	// total volume is covered.
	order := make([]int, vp.bins)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return volumes[order[a]] > volumes[order[b]]
	})

	vah := midpoint(pocIdx)
	val := midpoint(pocIdx)
	cumulative := 0.0
	for _, idx := range order {
		cumulative += volumes[idx]
		if mid := midpoint(idx); mid > vah {
			vah = mid
		} else if mid < val {
			val = mid
		}
		if cumulative >= total*valueAreaFraction {
			break
		}
	}

	return VolumeProfile{
		POC:           midpoint(pocIdx),
		ValueAreaHigh: vah,
		ValueAreaLow:  val,
		TotalVolume:   total,
	}, true
}
