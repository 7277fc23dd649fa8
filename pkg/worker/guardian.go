package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/collab"
)

// Guardian watches open perpetual positions for stop-loss and liquidation
// proximity and raises safety alerts.
type Guardian struct {
	*agent.Runtime

	perp               collab.PerpVenue
	pollInterval       time.Duration
	stopLossPct        float64
	liquidationWarnPct float64
}

// NewGuardian creates the Guardian worker agent.
func NewGuardian(rt *agent.Runtime, perp collab.PerpVenue, pollInterval time.Duration, stopLossPct, liquidationWarnPct float64) *Guardian {
	return &Guardian{
		Runtime:            rt,
		perp:               perp,
		pollInterval:       pollInterval,
		stopLossPct:        stopLossPct,
		liquidationWarnPct: liquidationWarnPct,
	}
}

// Start begins the Guardian's periodic sweep.
func (g *Guardian) Start(ctx context.Context) error {
	if err := g.Runtime.Start(ctx); err != nil {
		return err
	}
	g.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "watching" })
	g.AddInterval(g.pollInterval, g.sweep)
	return nil
}

func (g *Guardian) sweep(ctx context.Context) {
	summary, err := g.perp.GetAccountSummary(ctx)
	if err != nil {
		g.Logger.Debug("fetching perp account summary", "error", err)
		return
	}

	for _, pos := range summary.Positions {
		if pos.MarginUSD <= 0 {
			continue
		}
		lossPct := -pos.UnrealizedPnl / pos.MarginUSD * 100
		if lossPct >= g.stopLossPct {
			g.ReportToSupervisor(ctx, "alert", bus.PriorityHigh, map[string]any{
				"title":       fmt.Sprintf("%s position down %.1f%% of margin", pos.Coin, lossPct),
				"severity":    "high",
				"description": "Unrealized loss exceeds the configured stop-loss threshold.",
				"coin":        pos.Coin,
			})
		}

		if pos.LiquidationPx > 0 && pos.MarkPrice > 0 {
			distancePct := absPct(pos.MarkPrice, pos.LiquidationPx)
			if distancePct <= g.liquidationWarnPct {
				g.ReportToSupervisor(ctx, "alert", bus.PriorityCritical, map[string]any{
					"title":       fmt.Sprintf("%s within %.1f%% of liquidation", pos.Coin, distancePct),
					"severity":    "critical",
					"description": "Mark price is within the liquidation warning band.",
					"coin":        pos.Coin,
					"command":     "market_crash",
				})
			}
		}
	}
}

func absPct(mark, liq float64) float64 {
	d := mark - liq
	if d < 0 {
		d = -d
	}
	if mark == 0 {
		return 0
	}
	return d / mark * 100
}
