package cfo

import (
	"context"

	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/report"
)

// formatPortfolioLine adapts the engine's gathered state into the report
// package's generic Portfolio and renders it as one briefing line.
func formatPortfolioLine(p PortfolioState) string {
	return report.FormatPortfolioLine(toReportPortfolio(p))
}

func toReportPortfolio(p PortfolioState) report.Portfolio {
	var netPerpUSD float64
	for _, pos := range p.PerpPositions {
		netPerpUSD += pos.UnrealizedPnl
	}
	return report.Portfolio{
		TotalUSD:         p.TotalUSD,
		IdleUSD:          p.IdleUSD,
		StakePositionUSD: p.StakePositionUSD,
		LendingDeposited: p.LendingDeposited,
		LendingBorrowed:  p.LendingBorrowed,
		LendingHealth:    p.LendingHealth,
		PerpCount:        len(p.PerpPositions),
		PerpNetUSD:       netPerpUSD,
		PredictionCount:  p.PredictionPositions,
		LPCount:          p.LPPositions,
		GatheredAt:       p.GatheredAt,
	}
}

func toReportOutcome(r DecisionResult) report.Outcome {
	return report.Outcome{
		Type:            string(r.Type),
		Description:     r.Description,
		Executed:        r.Executed,
		Success:         r.Success,
		TxID:            r.TxID,
		Error:           r.Error,
		DryRun:          r.DryRun,
		PendingApproval: r.PendingApproval,
		ApprovalID:      r.ApprovalID,
		ImpactUSD:       r.ImpactUSD,
	}
}

// reportCycle sends the completed cycle's digest to the supervisor, which
// relays it to the configured admin sink (Slack, if wired).
func (e *Engine) reportCycle(ctx context.Context, traceID string, portfolio PortfolioState, intel IntelSummary, results []DecisionResult) {
	outcomes := make([]report.Outcome, 0, len(results))
	failures := 0
	for _, r := range results {
		outcomes = append(outcomes, toReportOutcome(r))
		if r.Executed && !r.Success {
			failures++
		}
	}

	digest := report.FormatCycleDigest(report.CycleDigest{
		TraceID:         traceID,
		MarketCondition: string(intel.MarketCondition),
		RiskMultiplier:  intel.RiskMultiplier,
		Portfolio:       toReportPortfolio(portfolio),
		Outcomes:        outcomes,
	})

	priority := bus.PriorityLow
	if failures > 0 {
		priority = bus.PriorityHigh
	}

	e.ReportToSupervisor(ctx, "report", priority, map[string]any{
		"kind":     "cfo_cycle",
		"traceId":  traceID,
		"digest":   digest,
		"failures": failures,
	})
}
