package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/collab"
)

// Analyst tracks DeFi positions and token prices, reporting TVL snapshots,
// volume spikes, and price alerts.
type Analyst struct {
	*agent.Runtime

	lending      collab.Lending
	market       collab.MarketData
	pollInterval time.Duration
	watchSymbols []string

	lastPrices map[string]float64
}

// NewAnalyst creates the Analyst worker agent.
func NewAnalyst(rt *agent.Runtime, lending collab.Lending, market collab.MarketData, pollInterval time.Duration, watchSymbols []string) *Analyst {
	return &Analyst{
		Runtime:      rt,
		lending:      lending,
		market:       market,
		pollInterval: pollInterval,
		watchSymbols: watchSymbols,
		lastPrices:   make(map[string]float64),
	}
}

// Start begins the Analyst's periodic scan.
func (a *Analyst) Start(ctx context.Context) error {
	if err := a.Runtime.Start(ctx); err != nil {
		return err
	}
	a.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "analyzing" })
	a.AddInterval(a.pollInterval, a.scan)
	return nil
}

func (a *Analyst) scan(ctx context.Context) {
	pos, err := a.lending.GetPosition(ctx)
	if err == nil {
		a.ReportToSupervisor(ctx, "intel", bus.PriorityLow, map[string]any{
			"kind":         "defi_snapshot",
			"depositedUsd": pos.DepositedUSD,
			"borrowedUsd":  pos.BorrowedUSD,
			"healthFactor": pos.HealthFactor,
		})
	}

	prices, err := a.market.GetPrices(ctx, a.watchSymbols)
	if err != nil {
		a.Logger.Debug("fetching prices", "error", err)
		return
	}

	for symbol, q := range prices {
		prior, seen := a.lastPrices[symbol]
		a.lastPrices[symbol] = q.USD
		if !seen || prior == 0 {
			continue
		}
		movePct := (q.USD - prior) / prior * 100
		if movePct >= 8 || movePct <= -8 {
			a.ReportToSupervisor(ctx, "alert", bus.PriorityMedium, map[string]any{
				"title":       fmt.Sprintf("%s moved %.1f%% since last scan", symbol, movePct),
				"severity":    "medium",
				"description": "Price alert triggered by the Analyst's tick-over-tick watch.",
				"symbol":      symbol,
				"volumeSpike": true,
			})
		}
	}
}
