package learning

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wisbric/nova/internal/db"
)

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0))
	assert.Equal(t, 0.2, Confidence(10))
	assert.Equal(t, 1.0, Confidence(50))
	assert.Equal(t, 1.0, Confidence(500))
}

func TestApply(t *testing.T) {
	assert.Equal(t, 100.0, Apply(100, 1.5, 0))
	assert.Equal(t, 150.0, Apply(100, 1.5, 1))
	assert.InDelta(t, 125.0, Apply(100, 1.5, 0.5), 0.001)
}

func closedPosition(pnl float64, opened, closed time.Time, meta map[string]any) db.ClosedPosition {
	raw, _ := json.Marshal(meta)
	return db.ClosedPosition{
		Strategy:    "TEST",
		Asset:       "SOL",
		OpenedAt:    opened,
		ClosedAt:    closed,
		PnlUSD:      pnl,
		NotionalUSD: 1000,
		Metadata:    raw,
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := computeStats("CLOSE_LOSING", nil)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Equal(t, 0.0, stats.WinRate)
}

func TestComputeStats_WinRateAndDrawdown(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	positions := []db.ClosedPosition{
		closedPosition(10, now, now.Add(time.Hour), nil),
		closedPosition(-5, now, now.Add(2*time.Hour), nil),
		closedPosition(20, now, now.Add(3*time.Hour), nil),
		closedPosition(-30, now, now.Add(4*time.Hour), nil),
	}
	stats := computeStats("CLOSE_LOSING", positions)
	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 0.5, stats.WinRate)
	assert.InDelta(t, -1.25, stats.AvgPnl, 0.001)
	// cumulative: 10, 5, 25, -5 -> peak 25, trough -5 -> drawdown 30
	assert.InDelta(t, 30.0, stats.MaxDrawdown, 0.001)
}

func TestComputeLPStats(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	positions := []db.ClosedPosition{
		closedPosition(10, now, now.Add(24*time.Hour), map[string]any{"chain": "solana", "pair": "SOL-USDC", "outOfRange": true}),
		closedPosition(5, now, now.Add(24*time.Hour), map[string]any{"chain": "solana", "pair": "SOL-USDC", "outOfRange": false, "rebalanced": true}),
	}
	lp := computeLPStats(positions)
	assert.Equal(t, 0.5, lp.OutOfRangeRate)
	assert.Equal(t, 1, lp.RebalanceCount)
	assert.Len(t, lp.ByChain, 1)
	assert.Equal(t, "solana", lp.ByChain[0].Key)
}

func TestComputePolymarketCalibration(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	positions := []db.ClosedPosition{
		closedPosition(10, now, now.Add(time.Hour), map[string]any{"predictedProbability": 0.8, "won": true}),
		closedPosition(-10, now, now.Add(time.Hour), map[string]any{"predictedProbability": 0.7, "won": false}),
	}
	cal := computePolymarketCalibration(positions)
	assert.Greater(t, cal.BrierScore, 0.0)
	assert.Equal(t, 0.5, cal.OverconfidenceRate)
}

func TestDeriveMultiplier_PredictionLowWinRate(t *testing.T) {
	stats := StrategyStats{WinRate: 0.3, TotalTrades: 10}
	got := deriveMultiplier("PREDICTION_BET", stats, nil)
	assert.Equal(t, 0.5, got)
}

func TestDeriveMultiplier_PredictionConfidentWins(t *testing.T) {
	stats := StrategyStats{WinRate: 0.7, RecentWinRate: 0.65, TotalTrades: 20}
	got := deriveMultiplier("PREDICTION_BET", stats, nil)
	assert.Equal(t, 1.25, got)
}

func TestDeriveMultiplier_LPWide(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	positions := []db.ClosedPosition{
		closedPosition(1, now, now.Add(24*time.Hour), map[string]any{"outOfRange": true}),
		closedPosition(1, now, now.Add(24*time.Hour), map[string]any{"outOfRange": true}),
		closedPosition(1, now, now.Add(24*time.Hour), map[string]any{"outOfRange": false}),
	}
	stats := StrategyStats{TotalTrades: 3}
	got := deriveMultiplier("LP_OPEN", stats, positions)
	assert.Equal(t, 1.3, got)
}

func TestDeriveMultiplier_Default(t *testing.T) {
	got := deriveMultiplier("UNKNOWN_STRATEGY", StrategyStats{}, nil)
	assert.Equal(t, 1.0, got)
}

func TestDeriveMultiplier_LendingNegativeSharpe(t *testing.T) {
	got := deriveMultiplier("LENDING_LOOP", StrategyStats{SharpeApprox: -0.5}, nil)
	assert.Equal(t, 0.7, got)
}
