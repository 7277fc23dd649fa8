package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/collab"
)

// TokenChild is a short-lived agent the supervisor spawns per launched
// mint to watch its price for the first hours after launch.
type TokenChild struct {
	*agent.Runtime

	market       collab.MarketData
	mintAddress  string
	symbol       string
	pollInterval time.Duration
}

// ChildAgentName derives the TokenChild's registry/heartbeat name for a
// given mint address; Health's sweep relies on this prefix to recognise
// children.
func ChildAgentName(mintAddress string) string {
	return "nova-token-" + mintAddress
}

// NewTokenChild creates a TokenChild agent for the given mint.
func NewTokenChild(rt *agent.Runtime, market collab.MarketData, mintAddress, symbol string, pollInterval time.Duration) *TokenChild {
	return &TokenChild{Runtime: rt, market: market, mintAddress: mintAddress, symbol: symbol, pollInterval: pollInterval}
}

// Start begins the TokenChild's periodic price watch.
func (t *TokenChild) Start(ctx context.Context) error {
	if err := t.Runtime.Start(ctx); err != nil {
		return err
	}
	t.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "watching" })
	t.AddInterval(t.pollInterval, t.watch)
	return nil
}

func (t *TokenChild) watch(ctx context.Context) {
	quote, err := t.market.GetPrice(ctx, t.symbol)
	if err != nil {
		t.Logger.Debug("fetching token price", "error", err, "symbol", t.symbol)
		return
	}
	if quote <= 0 {
		return
	}
	t.ReportToSupervisor(ctx, "intel", bus.PriorityLow, map[string]any{
		"kind":        "token_child_price",
		"mintAddress": t.mintAddress,
		"symbol":      t.symbol,
		"priceUsd":    quote,
		"note":        fmt.Sprintf("%s trading at $%.6f", t.symbol, quote),
	})
}
