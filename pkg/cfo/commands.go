package cfo

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/collab"
)

// pollCommands reads and acknowledges every command addressed to the CFO,
// accepting both the raw IncomingCommand shape forwarded verbatim by the
// Slack provider (capitalized "Command"/"Args" fields, no json tags) and
// the lowercase {"command", "detail"} shape the supervisor uses to relay
// a safety command embedded in a Guardian alert.
func (e *Engine) pollCommands(ctx context.Context) {
	msgs := e.ReadMessages(ctx, 10)
	for _, m := range msgs {
		if m.Type == "command" {
			cmd, args := parseCommandPayload(m.Payload)
			if cmd != "" {
				e.handleCommand(ctx, cmd, args)
			}
		}
		e.AcknowledgeMessage(ctx, m.ID)
	}
}

// parseCommandPayload extracts a command name and argument string from
// either payload convention.
func parseCommandPayload(raw json.RawMessage) (cmd, args string) {
	var p map[string]any
	if json.Unmarshal(raw, &p) != nil {
		return "", ""
	}
	if v, ok := p["Command"].(string); ok {
		args, _ = p["Args"].(string)
		return v, args
	}
	if v, ok := p["command"].(string); ok {
		return v, ""
	}
	return "", ""
}

// handleCommand dispatches one parsed admin or swarm-forwarded command.
func (e *Engine) handleCommand(ctx context.Context, cmd, args string) {
	fields := strings.Fields(args)

	switch cmd {
	case "cfo_stop":
		e.enabled.Store(false)
		e.logger.Info("CFO paused via command")
	case "cfo_start":
		e.enabled.Store(true)
		e.logger.Info("CFO resumed via command")
	case "cfo_status":
		e.reportStatus(ctx)
	case "cfo_scan", "cfo_decide":
		go e.RunCycle(ctx)
	case "cfo_approve":
		if len(fields) < 1 {
			return
		}
		e.approveDecision(ctx, fields[0])
	case "cfo_close_poly":
		e.closeAllPrediction(ctx)
	case "cfo_close_hl":
		e.closeAllPerp(ctx)
	case "cfo_close_all":
		e.closeAllPrediction(ctx)
		e.closeAllPerp(ctx)
	case "cfo_stake":
		if len(fields) < 1 {
			return
		}
		amount, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || e.staking == nil {
			return
		}
		if _, err := e.staking.StakeSol(ctx, amount); err != nil {
			e.logger.Error("manual stake failed", "error", err)
		}
	case "cfo_deposit":
		if len(fields) < 2 || e.lending == nil {
			return
		}
		amount, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return
		}
		if _, err := e.lending.Deposit(ctx, fields[0], amount); err != nil {
			e.logger.Error("manual deposit failed", "error", err)
		}
	case "cfo_hedge":
		if len(fields) < 2 || e.perp == nil {
			return
		}
		exposureUSD, err1 := strconv.ParseFloat(fields[0], 64)
		leverage, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			return
		}
		if _, err := e.perp.HedgeTreasury(ctx, collab.HedgeParams{Coin: "SOL", ExposureUSD: exposureUSD, Leverage: leverage}); err != nil {
			e.logger.Error("manual hedge failed", "error", err)
		}
	case "market_crash", "emergency_exit":
		e.logger.Warn("emergency command received", "command", cmd)
		e.closeAllPrediction(ctx)
		e.closeAllPerp(ctx)
		go e.RunCycle(ctx)
	case "scout_intel":
		e.logger.Debug("scout intel forwarded command received")
	default:
		e.logger.Debug("unrecognized command", "command", cmd)
	}
}

func (e *Engine) approveDecision(ctx context.Context, id string) {
	txID, cooldownKey, err, found := e.approvals.approve(id)
	if !found {
		e.logger.Warn("approval not found or expired", "approvalId", id)
		return
	}
	if err != nil {
		e.logger.Error("approved decision failed to execute", "approvalId", id, "error", err)
		return
	}
	if cooldownKey != "" {
		e.cooldowns.mark(ctx, cooldownKey)
	}
	e.logger.Info("approved decision executed", "approvalId", id, "txId", txID)
}

func (e *Engine) closeAllPrediction(ctx context.Context) {
	if e.prediction == nil {
		return
	}
	positions, err := e.prediction.FetchPositions(ctx)
	if err != nil {
		e.logger.Debug("listing prediction positions", "error", err)
		return
	}
	for _, pos := range positions {
		if _, err := e.prediction.ExitPosition(ctx, pos, 1.0); err != nil {
			e.logger.Error("closing prediction position", "marketId", pos.MarketID, "error", err)
		}
	}
}

func (e *Engine) closeAllPerp(ctx context.Context) {
	if e.perp == nil {
		return
	}
	summary, err := e.perp.GetAccountSummary(ctx)
	if err != nil {
		e.logger.Debug("fetching perp account summary", "error", err)
		return
	}
	for _, pos := range summary.Positions {
		if _, err := e.perp.ClosePosition(ctx, pos.Coin, pos.SizeUSD, pos.IsShort); err != nil {
			e.logger.Error("closing perp position", "coin", pos.Coin, "error", err)
		}
	}
}

// reportStatus sends the CFO's current run state to the supervisor for
// relay to the admin sink.
func (e *Engine) reportStatus(ctx context.Context) {
	pending := e.approvals.list()
	status := "running"
	if !e.enabled.Load() {
		status = "paused"
	}
	e.ReportToSupervisor(ctx, "report", bus.PriorityMedium, map[string]any{
		"kind":             "cfo_status",
		"status":           status,
		"pendingApprovals": len(pending),
		"lastCycleResults": len(e.lastResults),
	})
}
