package worker

import (
	"context"
	"time"

	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
)

// staleAfter is how long a heartbeat can go unrefreshed before Health
// considers the agent dead.
const staleAfter = 2 * time.Minute

// Health monitors every agent's heartbeat row and tells the supervisor to
// deactivate any TokenChild whose heartbeat has gone stale.
type Health struct {
	*agent.Runtime

	pollInterval time.Duration
}

// NewHealth creates the Health worker agent.
func NewHealth(rt *agent.Runtime, pollInterval time.Duration) *Health {
	return &Health{Runtime: rt, pollInterval: pollInterval}
}

// Start begins Health's periodic sweep.
func (h *Health) Start(ctx context.Context) error {
	if err := h.Runtime.Start(ctx); err != nil {
		return err
	}
	h.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "monitoring" })
	h.AddInterval(h.pollInterval, h.sweep)
	return nil
}

func (h *Health) sweep(ctx context.Context) {
	if h.Queries == nil {
		return
	}
	heartbeats, err := h.Queries.ListHeartbeats(ctx)
	if err != nil {
		h.Logger.Debug("listing heartbeats", "error", err)
		return
	}

	cutoff := time.Now().Add(-staleAfter)
	for _, hb := range heartbeats {
		if hb.AgentName == h.Name {
			continue
		}
		if !isTokenChild(hb.AgentName) {
			continue
		}
		if hb.Status == string(agent.StatusDisabled) {
			continue
		}
		if hb.LastBeatAt.Before(cutoff) {
			h.ReportToSupervisor(ctx, "command", bus.PriorityMedium, map[string]any{
				"command":   "deactivate_child",
				"agentName": hb.AgentName,
			})
		}
	}
}

func isTokenChild(agentName string) bool {
	const prefix = "nova-token-"
	return len(agentName) > len(prefix) && agentName[:len(prefix)] == prefix
}
