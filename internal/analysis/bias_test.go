package analysis

import (
	"testing"
)

// TestBiasUnknownWithoutProfile tests that a missing volume profile blocks
// any read
func TestBiasUnknownWithoutProfile(t *testing.T) {
	bias := AggregateBias(TrendState{Direction: Bullish}, false, nil, 50)

	if bias.State != StateUnknown || bias.Bias != Neutral {
		t.Errorf("Expected unknown/neutral without a profile, got %s/%s", bias.State, bias.Bias)
	}
}

// TestBiasTrendFollowingOpportunity tests the imbalanced-bullish setup with
// an open gap
func TestBiasTrendFollowingOpportunity(t *testing.T) {
	gaps := []Gap{{Direction: Bullish, Top: 102, Bottom: 100}}

	bias := AggregateBias(TrendState{Direction: Bullish}, true, gaps, 55)

	if bias.State != StateImbalanced || bias.Bias != Bullish {
		t.Fatalf("Expected imbalanced/bullish, got %s/%s", bias.State, bias.Bias)
	}
	if len(bias.Opportunities) != 1 {
		t.Fatalf("Expected 1 opportunity, got %d", len(bias.Opportunities))
	}
	op := bias.Opportunities[0]
	if op.Type != "Trend Following" || op.Direction != "Long" {
		t.Errorf("Expected a long trend-following setup, got %s/%s", op.Type, op.Direction)
	}
}

// TestBiasNoOpportunityOnMitigatedGap tests that a mitigated gap is not a
// trigger
func TestBiasNoOpportunityOnMitigatedGap(t *testing.T) {
	gaps := []Gap{{Direction: Bullish, Top: 102, Bottom: 100, Mitigated: true}}

	bias := AggregateBias(TrendState{Direction: Bullish}, true, gaps, 55)

	if len(bias.Opportunities) != 0 {
		t.Errorf("Mitigated gap should not produce an opportunity, got %d", len(bias.Opportunities))
	}
}

// TestBiasMeanReversionLong tests oversold RSI inside balance
func TestBiasMeanReversionLong(t *testing.T) {
	bias := AggregateBias(TrendState{Direction: Neutral}, true, nil, 25)

	if bias.State != StateBalanced {
		t.Fatalf("Expected balanced state, got %s", bias.State)
	}
	if len(bias.Opportunities) != 1 || bias.Opportunities[0].Direction != "Long" {
		t.Error("Oversold RSI in balance should produce a long mean-reversion setup")
	}
	if bias.Opportunities[0].Target != "POC" {
		t.Errorf("Mean reversion should target the POC, got %s", bias.Opportunities[0].Target)
	}
}

// TestBiasMeanReversionShort tests overbought RSI inside balance
func TestBiasMeanReversionShort(t *testing.T) {
	bias := AggregateBias(TrendState{Direction: Neutral}, true, nil, 78)

	if len(bias.Opportunities) != 1 || bias.Opportunities[0].Direction != "Short" {
		t.Error("Overbought RSI in balance should produce a short mean-reversion setup")
	}
}

// TestBiasBearishImbalance tests a bearish trend mapping to bearish bias
func TestBiasBearishImbalance(t *testing.T) {
	bias := AggregateBias(TrendState{Direction: Bearish}, true, nil, 50)

	if bias.State != StateImbalanced || bias.Bias != Bearish {
		t.Errorf("Expected imbalanced/bearish, got %s/%s", bias.State, bias.Bias)
	}
}
