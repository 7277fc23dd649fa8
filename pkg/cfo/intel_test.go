package cfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskComposite_ClampedForAllFlagCombinations(t *testing.T) {
	bools := []bool{false, true}
	for _, bullish := range bools {
		for _, fresh := range bools {
			for _, critical := range bools {
				for _, spike := range bools {
					for _, alerts := range []int{0, 3} {
						s := IntelSummary{
							ScoutBullish:     bullish,
							ScoutFresh:       fresh,
							GuardianCritical: critical,
							GuardianAlertUSD: alerts,
							VolumeSpikeFresh: spike,
						}
						m := riskComposite(s)
						assert.GreaterOrEqual(t, m, 0.5)
						assert.LessOrEqual(t, m, 2.0)
					}
				}
			}
		}
	}
}

func TestRiskComposite_Values(t *testing.T) {
	tests := []struct {
		name string
		s    IntelSummary
		want float64
	}{
		{"no intel", IntelSummary{}, 1.0},
		{"fresh bullish scout", IntelSummary{ScoutFresh: true, ScoutBullish: true}, 0.8},
		{"fresh bearish scout", IntelSummary{ScoutFresh: true}, 1.3},
		{"guardian critical", IntelSummary{GuardianCritical: true}, 1.5},
		{"guardian alerts without critical", IntelSummary{GuardianAlertUSD: 2}, 1.2},
		{"fresh volume spike", IntelSummary{VolumeSpikeFresh: true}, 1.15},
		{"everything bearish at once", IntelSummary{ScoutFresh: true, GuardianCritical: true, VolumeSpikeFresh: true}, 1.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, riskComposite(tt.s), 0.001)
		})
	}
}

func TestMarketCondition_Mapping(t *testing.T) {
	assert.Equal(t, ConditionDanger, marketCondition(IntelSummary{GuardianCritical: true, RiskMultiplier: 0.6}))
	assert.Equal(t, ConditionBearish, marketCondition(IntelSummary{RiskMultiplier: 1.3}))
	assert.Equal(t, ConditionBullish, marketCondition(IntelSummary{RiskMultiplier: 0.7}))
	assert.Equal(t, ConditionNeutral, marketCondition(IntelSummary{RiskMultiplier: 1.0}))
}

func TestClassifySentiment(t *testing.T) {
	bullish, bearish := classifySentiment("SOL breakout incoming, whales accumulate on every dip")
	assert.True(t, bullish)
	assert.False(t, bearish)

	bullish, bearish = classifySentiment("cascading liquidation and selloff, market in capitulation")
	assert.False(t, bullish)
	assert.True(t, bearish)

	bullish, bearish = classifySentiment("quiet weekend, nothing moving")
	assert.False(t, bullish)
	assert.False(t, bearish)
}
