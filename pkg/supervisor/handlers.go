package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/wisbric/nova/internal/telemetry"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/contentfilter"
	"github.com/wisbric/nova/pkg/messaging"
)

// dispatch routes one bus message to the handler for its type.
func (s *Supervisor) dispatch(ctx context.Context, msg bus.Message) {
	switch msg.Type {
	case "intel":
		s.handleIntel(ctx, msg)
	case "alert":
		s.handleAlert(ctx, msg)
	case "report":
		s.handleReport(ctx, msg)
	case "command":
		s.handleCommand(ctx, msg)
	default:
		s.Logger.Debug("unrecognized message type", "type", msg.Type, "from", msg.From)
	}
}

func (s *Supervisor) handleIntel(ctx context.Context, msg bus.Message) {
	var p map[string]any
	if !s.decodePayload(msg, &p) {
		return
	}

	summary := stringField(p, "summary")
	if summary != "" {
		s.recordIntel(msg.From, msg.Priority, summary)
	}

	kind := stringField(p, "kind")
	if kind != "narrative" {
		return
	}

	s.publishNarrativeIfDue(ctx, msg.From, summary)
}

// publishNarrativeIfDue publishes a narrative update unless it is still
// inside the cooldown window, a duplicate of a recently posted topic, or
// flagged critical by the content filter.
func (s *Supervisor) publishNarrativeIfDue(ctx context.Context, from, summary string) {
	if summary == "" {
		return
	}

	s.mu.Lock()
	sinceLast := time.Since(s.lastNarrativePostAt)
	onCooldown := !s.lastNarrativePostAt.IsZero() && sinceLast < s.cfg.NarrativeCooldown
	s.mu.Unlock()
	if onCooldown {
		return
	}

	fp := messaging.TopicFingerprint(summary)
	if fp == "" {
		return
	}

	s.mu.Lock()
	duplicate := false
	for _, seen := range s.recentFingerprints {
		if messaging.TopicsCollide(seen, fp) {
			duplicate = true
			break
		}
	}
	s.mu.Unlock()
	if duplicate {
		telemetry.NarrativesDeduplicatedTotal.Inc()
		return
	}

	if s.filter != nil {
		result, err := s.filter.ScanOutbound(ctx, summary, "narrative")
		if err != nil {
			s.Logger.Warn("scanning narrative", "error", err)
		} else if result.HasSeverity(contentfilter.SeverityCritical) {
			telemetry.OutboundBlockedTotal.WithLabelValues("narrative").Inc()
			s.Logger.Warn("blocked narrative on content filter", "reason", result.String())
			return
		}
	}

	s.publishNarrative(ctx, messaging.NarrativeMessage{
		Topic:     messaging.Truncate(summary, 100),
		Summary:   messaging.Truncate(summary, 280),
		Source:    from,
		CreatedAt: time.Now(),
	})

	s.mu.Lock()
	s.lastNarrativePostAt = time.Now()
	s.recentFingerprints = append(s.recentFingerprints, fp)
	if len(s.recentFingerprints) > maxRecentFingerprints {
		s.recentFingerprints = s.recentFingerprints[len(s.recentFingerprints)-maxRecentFingerprints:]
	}
	s.mu.Unlock()
}

func (s *Supervisor) handleAlert(ctx context.Context, msg bus.Message) {
	var p map[string]any
	if !s.decodePayload(msg, &p) {
		return
	}

	severity := stringField(p, "severity")
	if severity == "" {
		severity = "medium"
	}

	alert := messaging.AlertMessage{
		Title:       stringField(p, "title"),
		Severity:    severity,
		Description: stringField(p, "description"),
		Source:      msg.From,
		CreatedAt:   time.Now(),
	}
	s.recordIntel(msg.From, msg.Priority, alert.Title)

	command := stringField(p, "command")

	switch severity {
	case "critical":
		if s.filter != nil {
			result, err := s.filter.ScanOutbound(ctx, alert.Title+" "+alert.Description, "alert")
			if err == nil && result.HasSeverity(contentfilter.SeverityCritical) {
				telemetry.OutboundBlockedTotal.WithLabelValues("alert").Inc()
				s.Logger.Warn("blocked critical alert on content filter", "reason", result.String())
				break
			}
		}
		s.publishAlert(ctx, alert)
		s.forwardCFOCommand(ctx, command, p)
	case "high":
		if command != "" || boolField(p, "volumeSpike") {
			s.forwardCFOCommand(ctx, command, p)
		}
		s.publishAlert(ctx, alert)
	default:
		// medium/low: recorded above for the briefing digest, not published.
	}
}

// forwardCFOCommand relays a safety command embedded in an alert payload
// to the CFO agent so it can react without waiting on a poll of its own
// intel window.
func (s *Supervisor) forwardCFOCommand(ctx context.Context, command string, p map[string]any) {
	if command == "" {
		return
	}
	s.SendMessage(ctx, "nova-cfo", "command", bus.PriorityCritical, map[string]any{
		"command": command,
		"detail":  p,
	})
}

func (s *Supervisor) handleReport(ctx context.Context, msg bus.Message) {
	var p map[string]any
	if !s.decodePayload(msg, &p) {
		return
	}

	switch stringField(p, "kind") {
	case "engagement_spike":
		mentions := int(floatField(p, "mentions"))
		s.publishNarrative(ctx, messaging.NarrativeMessage{
			Topic:     "Community engagement spike",
			Summary:   fmt.Sprintf("Mentions spiked to %d in the current window.", mentions),
			Source:    msg.From,
			CreatedAt: time.Now(),
		})
	case "ban_burst":
		s.publishAdmin(ctx, messaging.AdminMessage{
			Title:   "Moderation: ban burst detected",
			Body:    fmt.Sprintf("%.0f bans within the configured window.", floatField(p, "banCount")),
			Kind:    "moderation",
			Urgency: "high",
		})
	case "launched", "graduated":
		s.handleLaunchEvent(ctx, p)
	case "cfo_cycle":
		s.handleCFOCycle(ctx, p)
	case "cfo_status":
		s.publishAdmin(ctx, messaging.AdminMessage{
			Title:   "CFO status",
			Body:    fmt.Sprintf("%s, %d pending approval(s), %d decision(s) in last cycle", stringField(p, "status"), int(floatField(p, "pendingApprovals")), int(floatField(p, "lastCycleResults"))),
			Kind:    "status",
			Urgency: "low",
		})
	default:
		s.recordIntel(msg.From, msg.Priority, stringField(p, "kind"))
	}
}

// handleCFOCycle surfaces a completed decision cycle's digest to the admin
// sink when it contains an executed failure; clean cycles are only
// recorded for the briefing digest, not pushed.
func (s *Supervisor) handleCFOCycle(ctx context.Context, p map[string]any) {
	traceID := stringField(p, "traceId")
	s.recordIntel("nova-cfo", bus.PriorityLow, "decision cycle "+traceID)

	if int(floatField(p, "failures")) == 0 {
		return
	}

	s.publishAdmin(ctx, messaging.AdminMessage{
		Title:   "CFO cycle had execution failures",
		Body:    stringField(p, "digest"),
		Kind:    "cfo",
		Urgency: "high",
	})
}

func (s *Supervisor) handleLaunchEvent(ctx context.Context, p map[string]any) {
	mint := stringField(p, "mintAddress")
	if mint == "" || s.spawn == nil {
		return
	}

	s.mu.Lock()
	_, exists := s.children[mint]
	s.mu.Unlock()
	if exists {
		return
	}

	symbol := stringField(p, "symbol")
	stop, err := s.spawn(ctx, mint, symbol)
	if err != nil {
		s.Logger.Error("spawning token child", "mint", mint, "error", err)
		return
	}

	s.mu.Lock()
	s.children[mint] = stop
	s.mu.Unlock()

	s.Logger.Info("spawned token child", "mint", mint, "symbol", symbol)
}

func (s *Supervisor) handleCommand(ctx context.Context, msg bus.Message) {
	var p map[string]any
	if !s.decodePayload(msg, &p) {
		return
	}
	if stringField(p, "command") != "deactivate_child" {
		return
	}
	s.deactivateChildByAgentName(stringField(p, "agentName"))
}
