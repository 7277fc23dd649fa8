// Package learning implements NOVA's progressive-learning retrospective:
// it scores closed positions per strategy, derives adaptive multipliers
// from the result, blends them with the prior value via an exponential
// moving average, and persists the blend so the decision engine's rule
// blocks can lean on realised performance instead of static constants.
package learning

import "time"

// Window is how far back the retrospective looks for closed positions.
const Window = 90 * 24 * time.Hour

// MinSamples is the minimum number of closed trades a strategy needs
// before its multiplier is allowed to deviate from 1.0.
const MinSamples = 5

// StrategyStats summarises one strategy's closed-position history over
// the retrospective window.
type StrategyStats struct {
	Strategy      string
	TotalTrades   int
	WinRate       float64
	AvgPnl        float64
	SharpeApprox  float64
	MaxDrawdown   float64
	RecentWinRate float64 // over the last 10 trades
	AvgHoldHours  float64
}

// LPStats carries the concentrated-LP-specific retrospective figures
// layered on top of StrategyStats for the "LP_OPEN" strategy.
type LPStats struct {
	OutOfRangeRate float64
	RebalanceCount int
	ByChain        []RankedPnL
	ByPair         []RankedPnL
}

// RankedPnL is one chain or pair's PnL-per-day figure, used to rank LP
// venues/pairs by realised performance.
type RankedPnL struct {
	Key       string
	PnlPerDay float64
}

// PolymarketCalibration carries the prediction-market-specific
// retrospective figures layered on top of StrategyStats for the
// "PREDICTION_BET" strategy.
type PolymarketCalibration struct {
	BrierScore         float64
	OverconfidenceRate float64
	CalibrationGap     float64
}

// AdaptiveParams is one strategy's current learned multiplier, as applied
// by the decision engine's rule blocks.
type AdaptiveParams struct {
	Strategy    string
	Multiplier  float64
	Confidence  float64
	SampleCount int
	UpdatedAt   time.Time
}

// Confidence is min(1, totalSamples/50) — the weight given to a learned
// multiplier when blending it against the rule's static base value.
func Confidence(totalSamples int) float64 {
	c := float64(totalSamples) / 50.0
	if c > 1 {
		return 1
	}
	return c
}

// Apply blends a base value with a learned multiplier, weighted by
// confidence: confidence=0 leaves base unchanged (no data yet),
// confidence=1 applies the multiplier in full.
func Apply(base, multiplier, confidence float64) float64 {
	return base * (1 + (multiplier-1)*confidence)
}
