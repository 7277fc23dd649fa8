package cfo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wisbric/nova/internal/config"
)

func tierTestEngine() *Engine {
	return &Engine{cfg: &config.Config{
		AutoTierUSD:            50,
		NotifyTierUSD:          200,
		CriticalBypassApproval: true,
	}}
}

func TestClassifyTier_CriticalBypassIgnoresAmountAndMarketCondition(t *testing.T) {
	e := tierTestEngine()
	for _, impact := range []float64{0, 49, 50, 999, 1_000_000} {
		for _, cond := range []MarketCondition{ConditionBullish, ConditionNeutral, ConditionBearish, ConditionDanger} {
			tier := e.classifyTier(CloseLosing, UrgencyCritical, impact, cond)
			assert.Equal(t, TierAuto, tier, "impact=%v condition=%v", impact, cond)
		}
	}
}

func TestClassifyTier_MonotoneInImpact(t *testing.T) {
	e := tierTestEngine()
	rank := map[Tier]int{TierAuto: 0, TierNotify: 1, TierApproval: 2}

	prev := -1
	for _, impact := range []float64{0, 10, 49, 50, 100, 199, 200, 500, 10000} {
		tier := e.classifyTier(OpenHedge, UrgencyHigh, impact, ConditionNeutral)
		assert.GreaterOrEqual(t, rank[tier], prev, "impact=%v", impact)
		prev = rank[tier]
	}
}

func TestClassifyTier_DangerNeverLowerThanAnyOtherCondition(t *testing.T) {
	e := tierTestEngine()
	rank := map[Tier]int{TierAuto: 0, TierNotify: 1, TierApproval: 2}

	for _, impact := range []float64{10, 100, 500} {
		dangerTier := e.classifyTier(OpenHedge, UrgencyHigh, impact, ConditionDanger)
		for _, cond := range []MarketCondition{ConditionBullish, ConditionNeutral, ConditionBearish} {
			otherTier := e.classifyTier(OpenHedge, UrgencyHigh, impact, cond)
			assert.GreaterOrEqual(t, rank[dangerTier], rank[otherTier], "impact=%v condition=%v", impact, cond)
		}
	}
}

func TestClassifyTier_DangerBumpsAutoToNotify(t *testing.T) {
	e := tierTestEngine()
	assert.Equal(t, TierNotify, e.classifyTier(OpenHedge, UrgencyHigh, 10, ConditionDanger))
}

func TestClassifyTier_CloseLosingAtLeastNotify(t *testing.T) {
	e := tierTestEngine()
	assert.Equal(t, TierNotify, e.classifyTier(CloseLosing, UrgencyHigh, 10, ConditionNeutral))
	assert.Equal(t, TierApproval, e.classifyTier(CloseLosing, UrgencyHigh, 250, ConditionNeutral))
}
