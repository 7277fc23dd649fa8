package learning

import "github.com/wisbric/nova/internal/db"

// deriveMultiplier applies the piecewise rules for one strategy's raw
// (pre-EMA) multiplier from its retrospective stats. Strategies with
// fewer than MinSamples closed trades are forced to 1.0 by the caller
// regardless of what this returns.
func deriveMultiplier(strategy string, stats StrategyStats, positions []db.ClosedPosition) float64 {
	switch strategy {
	case "PREDICTION_BET":
		return predictionMultiplier(stats, computePolymarketCalibration(positions))
	case "LP_OPEN":
		return lpMultiplier(stats, computeLPStats(positions))
	case "CLOSE_LOSING":
		return stopLossMultiplier(stats)
	case "OPEN_HEDGE":
		return hedgeMultiplier(stats)
	case "LENDING_LOOP":
		return lendingMultiplier(stats)
	case "STAKE_IDLE":
		return stakingMultiplier(stats)
	default:
		return 1.0
	}
}

// predictionMultiplier scales the Kelly sizing used by the prediction-
// market rule block down after a run of losses, up after consistent,
// well-calibrated wins.
func predictionMultiplier(stats StrategyStats, cal PolymarketCalibration) float64 {
	switch {
	case stats.WinRate < 0.4:
		return 0.5
	case cal.OverconfidenceRate > 0.5:
		return 0.7
	case stats.WinRate > 0.65 && stats.RecentWinRate > 0.6:
		return 1.25
	default:
		return 1.0
	}
}

// lpMultiplier widens the LP range width after the position has spent
// too much time out of range, tightens it when it rarely leaves range.
// No CFO rule block reads this multiplier: lpRules opens positions at the
// candidate pool's own tick spacing.
func lpMultiplier(stats StrategyStats, lp LPStats) float64 {
	switch {
	case lp.OutOfRangeRate > 0.4:
		return 1.3
	case lp.OutOfRangeRate < 0.1 && stats.TotalTrades >= MinSamples:
		return 0.85
	default:
		return 1.0
	}
}

// stopLossMultiplier tightens the stop-loss threshold (multiplier < 1
// shrinks the configured percentage) when realised closes have been
// predominantly losing ones.
func stopLossMultiplier(stats StrategyStats) float64 {
	switch {
	case stats.WinRate < 0.4:
		return 0.8
	case stats.SharpeApprox > 1:
		return 1.1
	default:
		return 1.0
	}
}

// hedgeMultiplier nudges the base hedge ratio up when hedging has
// historically lost money net (implying under-hedging), down when it has
// been a consistent drag on upside (over-hedging).
func hedgeMultiplier(stats StrategyStats) float64 {
	switch {
	case stats.AvgPnl < 0 && stats.WinRate < 0.45:
		return 1.2
	case stats.SharpeApprox > 1.5:
		return 0.9
	default:
		return 1.0
	}
}

// lendingMultiplier scales back collateral-loop sizing after a
// negative-Sharpe run.
func lendingMultiplier(stats StrategyStats) float64 {
	if stats.SharpeApprox < 0 {
		return 0.7
	}
	return 1.0
}

// stakingMultiplier scales the idle-capital staking fraction down when
// recent staking cycles realised losses (e.g. repeated instant-unstake
// slippage), otherwise leaves it unchanged.
func stakingMultiplier(stats StrategyStats) float64 {
	if stats.AvgPnl < 0 {
		return 0.85
	}
	return 1.0
}
