package cfo

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisbric/nova/internal/config"
	"github.com/wisbric/nova/pkg/collab"
)

type fakePerp struct {
	listed  []string
	summary collab.PerpAccountSummary
	closed  []string
	hedged  []collab.HedgeParams
}

func (f *fakePerp) GetAccountSummary(ctx context.Context) (collab.PerpAccountSummary, error) {
	return f.summary, nil
}

func (f *fakePerp) HedgeTreasury(ctx context.Context, p collab.HedgeParams) (string, error) {
	f.hedged = append(f.hedged, p)
	return "tx-hedge", nil
}

func (f *fakePerp) ClosePosition(ctx context.Context, coin string, size float64, isBuy bool) (string, error) {
	f.closed = append(f.closed, coin)
	return "tx-close", nil
}

func (f *fakePerp) GetHLListedCoins(ctx context.Context) ([]string, error) {
	return f.listed, nil
}

func rulesConfig() *config.Config {
	return &config.Config{
		AutoTierUSD:             50,
		NotifyTierUSD:           200,
		CriticalBypassApproval:  true,
		EnableStopLoss:          true,
		EnableHedge:             true,
		HLStopLossPct:           25,
		HLLiquidationWarningPct: 15,
		HedgeTargetRatio:        0.50,
		HedgeMinExposureUSD:     50,
		HedgeRebalanceThreshold: 0.15,
		CooldownCloseHours:      1,
		CooldownHedgeHours:      4,
	}
}

func rulesEngine(cfg *config.Config, perp *fakePerp) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    slog.Default(),
		cooldowns: newCooldowns(nil, slog.Default()),
		approvals: newApprovalQueue(),
		perp:      perp,
	}
}

func TestStopLossRules_LossBeyondThresholdClosesPosition(t *testing.T) {
	e := rulesEngine(rulesConfig(), &fakePerp{})
	portfolio := PortfolioState{PerpPositions: []PerpExposure{{
		Coin:          "SOL",
		SizeUSD:       40,
		MarginUSD:     100,
		UnrealizedPnl: -40, // 40% of margin, threshold is 25%
		MarkPrice:     100,
		LiquidationPx: 200, // far from liquidation
		IsShort:       true,
	}}}
	intel := IntelSummary{RiskMultiplier: 1.0, MarketCondition: ConditionNeutral}

	decisions := e.stopLossRules(context.Background(), portfolio, intel)

	require.Len(t, decisions, 1)
	assert.Equal(t, CloseLosing, decisions[0].Type)
	assert.Equal(t, UrgencyHigh, decisions[0].Urgency)
	assert.Equal(t, TierNotify, decisions[0].Tier)
	assert.Equal(t, "CLOSE_LOSING_SOL", decisions[0].CooldownKey)
}

func TestStopLossRules_LossWithinThresholdHolds(t *testing.T) {
	e := rulesEngine(rulesConfig(), &fakePerp{})
	portfolio := PortfolioState{PerpPositions: []PerpExposure{{
		Coin:          "SOL",
		SizeUSD:       100,
		MarginUSD:     100,
		UnrealizedPnl: -10, // 10% of margin, under the 25% threshold
		MarkPrice:     100,
		LiquidationPx: 200,
	}}}
	intel := IntelSummary{RiskMultiplier: 1.0}

	assert.Empty(t, e.stopLossRules(context.Background(), portfolio, intel))
}

func TestStopLossRules_RiskMultiplierTightensThreshold(t *testing.T) {
	// A 15% loss holds at neutral risk but breaches once the swarm turns
	// bearish: 25% / 2.0 = 12.5%.
	e := rulesEngine(rulesConfig(), &fakePerp{})
	portfolio := PortfolioState{PerpPositions: []PerpExposure{{
		Coin:          "ETH",
		SizeUSD:       150,
		MarginUSD:     100,
		UnrealizedPnl: -15,
		MarkPrice:     100,
		LiquidationPx: 200,
	}}}

	assert.Empty(t, e.stopLossRules(context.Background(), portfolio, IntelSummary{RiskMultiplier: 1.0}))
	assert.Len(t, e.stopLossRules(context.Background(), portfolio, IntelSummary{RiskMultiplier: 2.0}), 1)
}

func TestStopLossRules_LiquidationProximityIsCriticalAuto(t *testing.T) {
	e := rulesEngine(rulesConfig(), &fakePerp{})
	portfolio := PortfolioState{PerpPositions: []PerpExposure{{
		Coin:          "SOL",
		SizeUSD:       500,
		MarginUSD:     100,
		UnrealizedPnl: 0,
		MarkPrice:     100,
		LiquidationPx: 108, // 8% away, warning band is 15%
		IsShort:       true,
	}}}
	intel := IntelSummary{RiskMultiplier: 1.5, MarketCondition: ConditionDanger, GuardianCritical: true}

	decisions := e.stopLossRules(context.Background(), portfolio, intel)

	require.Len(t, decisions, 1)
	assert.Equal(t, UrgencyCritical, decisions[0].Urgency)
	// Critical bypass executes even in a danger market, at any size.
	assert.Equal(t, TierAuto, decisions[0].Tier)
}

func TestHedgeRules_UnderHedgedOpensIntelAdjustedHedge(t *testing.T) {
	perp := &fakePerp{
		listed:  []string{"SOL"},
		summary: collab.PerpAccountSummary{AccountValueUSD: 10000},
	}
	e := rulesEngine(rulesConfig(), perp)
	portfolio := PortfolioState{BalancesUSD: map[string]float64{"SOL": 1000}}
	intel := IntelSummary{RiskMultiplier: 1.4, MarketCondition: ConditionBearish}

	decisions := e.hedgeRules(context.Background(), portfolio, intel)

	require.Len(t, decisions, 1)
	assert.Equal(t, OpenHedge, decisions[0].Type)
	// Adjusted target 0.50 * 1.4 = 0.70; current ratio 0 drifts 0.70 out,
	// more than twice the 0.15 band.
	assert.InDelta(t, 700, decisions[0].ImpactUSD, 0.01)
	assert.Equal(t, UrgencyHigh, decisions[0].Urgency)
	assert.Equal(t, "OPEN_HEDGE_SOL", decisions[0].CooldownKey)
}

func TestHedgeRules_ScalesDownToAvailableMargin(t *testing.T) {
	perp := &fakePerp{
		listed:  []string{"SOL"},
		summary: collab.PerpAccountSummary{AccountValueUSD: 120},
	}
	e := rulesEngine(rulesConfig(), perp)
	portfolio := PortfolioState{BalancesUSD: map[string]float64{"SOL": 1000}}
	intel := IntelSummary{RiskMultiplier: 1.0}

	decisions := e.hedgeRules(context.Background(), portfolio, intel)

	require.Len(t, decisions, 1)
	assert.InDelta(t, 120, decisions[0].ImpactUSD, 0.01)
}

func TestHedgeRules_WithinBandHolds(t *testing.T) {
	perp := &fakePerp{
		listed: []string{"SOL"},
		summary: collab.PerpAccountSummary{
			AccountValueUSD: 10000,
			Positions:       []collab.PerpPosition{{Coin: "SOL", IsShort: true, SizeUSD: 500}},
		},
	}
	e := rulesEngine(rulesConfig(), perp)
	portfolio := PortfolioState{BalancesUSD: map[string]float64{"SOL": 1000}}
	intel := IntelSummary{RiskMultiplier: 1.0}

	// Current ratio 0.50 sits exactly on the 0.50 target.
	assert.Empty(t, e.hedgeRules(context.Background(), portfolio, intel))
}

func TestHedgeRules_OverHedgedReduces(t *testing.T) {
	perp := &fakePerp{
		listed: []string{"SOL"},
		summary: collab.PerpAccountSummary{
			AccountValueUSD: 10000,
			Positions:       []collab.PerpPosition{{Coin: "SOL", IsShort: true, SizeUSD: 900}},
		},
	}
	e := rulesEngine(rulesConfig(), perp)
	portfolio := PortfolioState{BalancesUSD: map[string]float64{"SOL": 1000}}
	intel := IntelSummary{RiskMultiplier: 1.0}

	decisions := e.hedgeRules(context.Background(), portfolio, intel)

	require.Len(t, decisions, 1)
	assert.Equal(t, CloseHedge, decisions[0].Type)
	assert.InDelta(t, 400, decisions[0].ImpactUSD, 0.01)
}

func TestHedgeRules_SkipsUnlistedAndBelowMinExposure(t *testing.T) {
	perp := &fakePerp{
		listed:  []string{"SOL"},
		summary: collab.PerpAccountSummary{AccountValueUSD: 10000},
	}
	e := rulesEngine(rulesConfig(), perp)
	portfolio := PortfolioState{BalancesUSD: map[string]float64{
		"BONK": 1000, // not listed on the hedge venue
		"SOL":  40,   // under the $50 exposure floor
	}}

	assert.Empty(t, e.hedgeRules(context.Background(), portfolio, IntelSummary{RiskMultiplier: 1.0}))
}

func TestAdjustedPoolScore_PenalizesRecentlyOpenedPool(t *testing.T) {
	now := time.Now()
	recent := collab.LPPoolCandidate{Score: 10, LastOpenedAt: now.Add(-24 * time.Hour).Unix()}
	stale := collab.LPPoolCandidate{Score: 10, LastOpenedAt: now.Add(-100 * time.Hour).Unix()}
	never := collab.LPPoolCandidate{Score: 10}

	window := 72 * time.Hour
	assert.InDelta(t, 7.5, adjustedPoolScore(recent, now, window, 2.5), 0.001)
	assert.InDelta(t, 10.0, adjustedPoolScore(stale, now, window, 2.5), 0.001)
	assert.InDelta(t, 10.0, adjustedPoolScore(never, now, window, 2.5), 0.001)
}
