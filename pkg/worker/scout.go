// Package worker implements NOVA's periodic worker agents: specialised
// producers of intel, alerts, and reports that feed the supervisor and
// the CFO over the bus.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/collab"
)

// Scout watches market narratives and reports sentiment-tagged intel.
type Scout struct {
	*agent.Runtime

	market       collab.MarketData
	pollInterval time.Duration
	watchSymbols []string
}

// NewScout creates the Scout worker agent.
func NewScout(rt *agent.Runtime, market collab.MarketData, pollInterval time.Duration, watchSymbols []string) *Scout {
	return &Scout{Runtime: rt, market: market, pollInterval: pollInterval, watchSymbols: watchSymbols}
}

// Start begins the Scout's periodic scan.
func (s *Scout) Start(ctx context.Context) error {
	if err := s.Runtime.Start(ctx); err != nil {
		return err
	}
	s.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "scanning" })
	s.AddInterval(s.pollInterval, s.scan)
	return nil
}

func (s *Scout) scan(ctx context.Context) {
	prices, err := s.market.GetPrices(ctx, s.watchSymbols)
	if err != nil {
		s.Logger.Debug("fetching prices", "error", err)
		return
	}

	var movers []string
	bullishCount, bearishCount := 0, 0
	for symbol, q := range prices {
		if q.Change24h >= 5 {
			movers = append(movers, fmt.Sprintf("%s +%.1f%%", symbol, q.Change24h))
			bullishCount++
		} else if q.Change24h <= -5 {
			movers = append(movers, fmt.Sprintf("%s %.1f%%", symbol, q.Change24h))
			bearishCount++
		}
	}
	if len(movers) == 0 {
		return
	}

	summary := strings.Join(movers, ", ")
	cryptoBullish := bullishCount > bearishCount

	s.ReportToSupervisor(ctx, "intel", intelPriority(bullishCount, bearishCount), map[string]any{
		"kind":          "narrative",
		"summary":       fmt.Sprintf("Market movers: %s", summary),
		"cryptoBullish": cryptoBullish,
		"movers":        movers,
	})
}

func intelPriority(bullish, bearish int) bus.Priority {
	if bullish+bearish >= 4 {
		return bus.PriorityHigh
	}
	return bus.PriorityMedium
}
