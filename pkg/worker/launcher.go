package worker

import (
	"context"
	"time"

	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
)

// LaunchEvent is a single token-launch lifecycle event.
type LaunchEvent struct {
	MintAddress string
	Symbol      string
	Status      string // "launched" or "graduated"
}

// LaunchSource supplies new launch/graduation events since it was last
// polled.
type LaunchSource interface {
	PollEvents(ctx context.Context) ([]LaunchEvent, error)
}

// Launcher watches for new token launches and graduations, reporting each
// to the supervisor which auto-spawns a TokenChild per mint.
type Launcher struct {
	*agent.Runtime

	source       LaunchSource
	pollInterval time.Duration
}

// NewLauncher creates the Launcher worker agent.
func NewLauncher(rt *agent.Runtime, source LaunchSource, pollInterval time.Duration) *Launcher {
	return &Launcher{Runtime: rt, source: source, pollInterval: pollInterval}
}

// Start begins the Launcher's periodic poll.
func (l *Launcher) Start(ctx context.Context) error {
	if err := l.Runtime.Start(ctx); err != nil {
		return err
	}
	l.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "scanning" })
	l.AddInterval(l.pollInterval, l.poll)
	return nil
}

func (l *Launcher) poll(ctx context.Context) {
	events, err := l.source.PollEvents(ctx)
	if err != nil {
		l.Logger.Debug("polling launch events", "error", err)
		return
	}

	for _, ev := range events {
		if ev.Status != "launched" && ev.Status != "graduated" {
			continue
		}
		l.ReportToSupervisor(ctx, "report", bus.PriorityMedium, map[string]any{
			"kind":        ev.Status,
			"mintAddress": ev.MintAddress,
			"symbol":      ev.Symbol,
		})
	}
}
