package learning

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/wisbric/nova/internal/db"
)

// positionMeta is the subset of a closed position's schemaless metadata
// the retrospective reads. Fields absent from a given strategy's
// metadata are simply left at their zero value.
type positionMeta struct {
	Chain               string  `json:"chain"`
	Pair                string  `json:"pair"`
	OutOfRange          bool    `json:"outOfRange"`
	Rebalanced          bool    `json:"rebalanced"`
	PredictedProbability float64 `json:"predictedProbability"`
	Won                 bool    `json:"won"`
}

// computeStats builds a StrategyStats summary from one strategy's closed
// positions, oldest first (the order ListClosedPositionsSince returns).
func computeStats(strategy string, positions []db.ClosedPosition) StrategyStats {
	stats := StrategyStats{Strategy: strategy, TotalTrades: len(positions)}
	if len(positions) == 0 {
		return stats
	}

	wins := 0
	var pnls []float64
	var holdHours float64
	for _, p := range positions {
		pnls = append(pnls, p.PnlUSD)
		if p.PnlUSD > 0 {
			wins++
		}
		holdHours += p.ClosedAt.Sub(p.OpenedAt).Hours()
	}
	stats.WinRate = float64(wins) / float64(len(positions))
	stats.AvgPnl = mean(pnls)
	stats.SharpeApprox = sharpeApprox(pnls)
	stats.MaxDrawdown = maxDrawdown(pnls)
	stats.AvgHoldHours = holdHours / float64(len(positions))

	recent := positions
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	recentWins := 0
	for _, p := range recent {
		if p.PnlUSD > 0 {
			recentWins++
		}
	}
	stats.RecentWinRate = float64(recentWins) / float64(len(recent))

	return stats
}

// computeLPStats derives the LP-specific figures layered on top of
// StrategyStats for positions whose metadata carries LP fields.
func computeLPStats(positions []db.ClosedPosition) LPStats {
	var lp LPStats
	if len(positions) == 0 {
		return lp
	}

	outOfRange, rebalanced := 0, 0
	chainPnl := make(map[string]float64)
	chainDays := make(map[string]float64)
	pairPnl := make(map[string]float64)
	pairDays := make(map[string]float64)

	for _, p := range positions {
		var m positionMeta
		_ = json.Unmarshal(p.Metadata, &m)
		if m.OutOfRange {
			outOfRange++
		}
		if m.Rebalanced {
			rebalanced++
		}
		days := math.Max(p.ClosedAt.Sub(p.OpenedAt).Hours()/24, 1.0/24)
		if m.Chain != "" {
			chainPnl[m.Chain] += p.PnlUSD
			chainDays[m.Chain] += days
		}
		if m.Pair != "" {
			pairPnl[m.Pair] += p.PnlUSD
			pairDays[m.Pair] += days
		}
	}

	lp.OutOfRangeRate = float64(outOfRange) / float64(len(positions))
	lp.RebalanceCount = rebalanced
	lp.ByChain = rankByPnlPerDay(chainPnl, chainDays)
	lp.ByPair = rankByPnlPerDay(pairPnl, pairDays)
	return lp
}

func rankByPnlPerDay(pnl, days map[string]float64) []RankedPnL {
	out := make([]RankedPnL, 0, len(pnl))
	for key, total := range pnl {
		d := days[key]
		if d <= 0 {
			d = 1
		}
		out = append(out, RankedPnL{Key: key, PnlPerDay: total / d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PnlPerDay > out[j].PnlPerDay })
	return out
}

// computePolymarketCalibration derives prediction-market calibration
// figures from positions whose metadata carries a predicted probability
// and an outcome.
func computePolymarketCalibration(positions []db.ClosedPosition) PolymarketCalibration {
	var cal PolymarketCalibration
	scored := 0
	var brierSum, overconfident, gapSum float64

	for _, p := range positions {
		var m positionMeta
		if err := json.Unmarshal(p.Metadata, &m); err != nil || m.PredictedProbability <= 0 {
			continue
		}
		outcome := 0.0
		if m.Won {
			outcome = 1.0
		}
		diff := m.PredictedProbability - outcome
		brierSum += diff * diff
		gapSum += math.Abs(diff)
		if m.PredictedProbability > 0.5 && !m.Won {
			overconfident++
		}
		scored++
	}

	if scored > 0 {
		cal.BrierScore = brierSum / float64(scored)
		cal.CalibrationGap = gapSum / float64(scored)
		cal.OverconfidenceRate = overconfident / float64(scored)
	}
	return cal
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

// sharpeApprox is a crude per-trade Sharpe proxy: mean PnL over the
// standard deviation of PnL, zero when there is no variance to divide by.
func sharpeApprox(pnls []float64) float64 {
	sd := stddev(pnls)
	if sd == 0 {
		return 0
	}
	return mean(pnls) / sd
}

// maxDrawdown returns the largest peak-to-trough drop in cumulative PnL
// across the (already time-ordered) trade sequence.
func maxDrawdown(pnls []float64) float64 {
	var cumulative, peak, worst float64
	for _, pnl := range pnls {
		cumulative += pnl
		if cumulative > peak {
			peak = cumulative
		}
		if drop := peak - cumulative; drop > worst {
			worst = drop
		}
	}
	return worst
}

// since returns the start of the retrospective window relative to now.
func since(now time.Time) time.Time {
	return now.Add(-Window)
}
