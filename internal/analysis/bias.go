package analysis

// MarketState describes whether price is rotating around accepted value or
// trending away from it.
type MarketState string

const (
	StateBalanced   MarketState = "balanced"
	StateImbalanced MarketState = "imbalanced"
	StateUnknown    MarketState = "unknown"
)

// Opportunity is a setup derived from the aggregate read of the market.
type Opportunity struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
	Trigger   string `json:"trigger"`
	Target    string `json:"target"`
}

// MarketBias is the aggregate directional read over one timeframe.
type MarketBias struct {
	State         MarketState   `json:"market_state"`
	Bias          Direction     `json:"bias"`
	Opportunities []Opportunity `json:"opportunities"`
}

// RSI thresholds for mean-reversion setups inside balance.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// AggregateBias combines trend structure, volume profile, active gaps and RSI
// into a single market read. A trending structure marks the market as
// imbalanced in the trend's direction; otherwise it is balanced. Without a
// usable volume profile the state is unknown.
func AggregateBias(trend TrendState, profileOK bool, gaps []Gap, rsi float64) MarketBias {
	bias := MarketBias{State: StateUnknown, Bias: Neutral}
	if !profileOK {
		return bias
	}

	switch trend.Direction {
	case Bullish:
		bias.State = StateImbalanced
		bias.Bias = Bullish
	case Bearish:
		bias.State = StateImbalanced
		bias.Bias = Bearish
	default:
		bias.State = StateBalanced
		bias.Bias = Neutral
	}

	if bias.State == StateImbalanced && bias.Bias == Bullish {
		for _, g := range gaps {
			if g.Direction == Bullish && !g.Mitigated {
				bias.Opportunities = append(bias.Opportunities, Opportunity{
					Type:      "Trend Following",
					Direction: "Long",
					Trigger:   "Retest of Bullish FVG",
					Target:    "Recent High",
				})
				break
			}
		}
	}

	if bias.State == StateBalanced {
		if rsi < rsiOversold {
			bias.Opportunities = append(bias.Opportunities, Opportunity{
				Type:      "Mean Reversion",
				Direction: "Long",
				Trigger:   "Oversold RSI in Balance",
				Target:    "POC",
			})
		} else if rsi > rsiOverbought {
			bias.Opportunities = append(bias.Opportunities, Opportunity{
				Type:      "Mean Reversion",
				Direction: "Short",
				Trigger:   "Overbought RSI in Balance",
				Target:    "POC",
			})
		}
	}

	return bias
}
