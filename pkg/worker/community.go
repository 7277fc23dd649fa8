package worker

import (
	"context"
	"time"

	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
)

// EngagementSample is one poll's worth of community engagement counters,
// sourced from whatever social surface Community is wired to watch.
type EngagementSample struct {
	NewMembers int
	Mentions   int
	Bans       int
}

// EngagementSource supplies a fresh engagement sample each poll.
type EngagementSource interface {
	Sample(ctx context.Context) (EngagementSample, error)
}

// Community watches social engagement for spikes and moderation events.
type Community struct {
	*agent.Runtime

	source       EngagementSource
	pollInterval time.Duration

	banWindow   time.Duration
	banTimes    []time.Time
	banBurstMax int
}

// NewCommunity creates the Community worker agent. A ban burst is any
// window of banWindow containing more than banBurstMax bans.
func NewCommunity(rt *agent.Runtime, source EngagementSource, pollInterval, banWindow time.Duration, banBurstMax int) *Community {
	return &Community{
		Runtime:      rt,
		source:       source,
		pollInterval: pollInterval,
		banWindow:    banWindow,
		banBurstMax:  banBurstMax,
	}
}

// Start begins the Community's periodic sample.
func (c *Community) Start(ctx context.Context) error {
	if err := c.Runtime.Start(ctx); err != nil {
		return err
	}
	c.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "monitoring" })
	c.AddInterval(c.pollInterval, c.sample)
	return nil
}

func (c *Community) sample(ctx context.Context) {
	s, err := c.source.Sample(ctx)
	if err != nil {
		c.Logger.Debug("sampling engagement", "error", err)
		return
	}

	if s.Mentions >= 20 {
		c.ReportToSupervisor(ctx, "report", bus.PriorityHigh, map[string]any{
			"kind":     "engagement_spike",
			"mentions": s.Mentions,
		})
	}

	now := time.Now()
	for i := 0; i < s.Bans; i++ {
		c.banTimes = append(c.banTimes, now)
	}
	c.banTimes = pruneBefore(c.banTimes, now.Add(-c.banWindow))
	if len(c.banTimes) > c.banBurstMax {
		c.ReportToSupervisor(ctx, "report", bus.PriorityHigh, map[string]any{
			"kind":       "ban_burst",
			"banCount":   len(c.banTimes),
			"windowMin":  int(c.banWindow.Minutes()),
			"moderation": true,
		})
	}
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	out := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}
