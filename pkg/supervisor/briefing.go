package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/messaging"
)

// briefOnce builds and publishes both the admin and community briefing
// variants from the intel recorded since the last briefing.
func (s *Supervisor) briefOnce(ctx context.Context) {
	s.mu.Lock()
	windowStart := s.lastBriefingAt
	entries := append([]intelEntry(nil), s.recentIntel...)
	s.recentIntel = nil
	s.messagesProcessed = 0
	s.lastBriefingAt = time.Now()
	windowEnd := s.lastBriefingAt
	s.mu.Unlock()

	if windowStart.IsZero() {
		windowStart = windowEnd.Add(-s.cfg.BriefingInterval)
	}

	keyIntel, routine := bucketIntel(entries)

	portfolioLine := ""
	if s.portfolioStats != nil {
		if line, err := s.portfolioStats(ctx); err != nil {
			s.Logger.Debug("fetching portfolio stats for briefing", "error", err)
		} else {
			portfolioLine = line
		}
	}

	admin := messaging.BriefingMessage{
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		KeyIntel:       keyIntel,
		RoutineSummary: fmt.Sprintf("%d routine updates processed", routine),
		PortfolioLine:  portfolioLine,
		Audience:       "admin",
	}
	s.publishBriefing(ctx, admin)

	if len(keyIntel) > 0 || portfolioLine != "" {
		community := admin
		community.Audience = "community"
		s.publishBriefing(ctx, community)
	}

	s.persist(ctx)
}

// bucketIntel splits recorded intel into the critical/high items worth
// surfacing verbatim and a routine count, deduplicating near-identical
// entries by their normalized prefix.
func bucketIntel(entries []intelEntry) (keyIntel []string, routineCount int) {
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.Summary == "" {
			routineCount++
			continue
		}

		if e.Priority != bus.PriorityCritical && e.Priority != bus.PriorityHigh {
			routineCount++
			continue
		}

		key := messaging.Truncate(e.Summary, 100)
		if seen[key] {
			continue
		}
		seen[key] = true
		keyIntel = append(keyIntel, e.Summary)
	}
	return keyIntel, routineCount
}
