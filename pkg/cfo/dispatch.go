package cfo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/nova/internal/db"
	"github.com/wisbric/nova/internal/telemetry"
)

// dispatch executes one decision, honoring its tier and dry-run flag, and
// records the outcome. tier=APPROVAL never calls the collaborator action
// directly; it queues the action for a later admin approval instead.
func (e *Engine) dispatch(ctx context.Context, traceID string, d Decision) DecisionResult {
	result := DecisionResult{
		TraceID:     traceID,
		Type:        d.Type,
		Description: d.Description,
		ImpactUSD:   d.ImpactUSD,
		DryRun:      d.DryRun,
	}

	if d.Tier == TierApproval {
		id := e.approvals.queue(d.Description, d.ImpactUSD, d.CooldownKey, func() (string, error) { return e.execute(ctx, d) })
		result.Success = true
		result.PendingApproval = true
		result.ApprovalID = id
		telemetry.DecisionsTotal.WithLabelValues(string(d.Type), string(d.Tier)).Inc()
		e.logger.Info("decision queued for approval", "type", d.Type, "approvalId", id, "impactUsd", d.ImpactUSD)
		return result
	}

	telemetry.DecisionsTotal.WithLabelValues(string(d.Type), string(d.Tier)).Inc()

	if d.DryRun {
		e.logger.Info("dry-run decision", "type", d.Type, "description", d.Description, "impactUsd", d.ImpactUSD)
		e.cooldowns.mark(ctx, d.CooldownKey)
		result.Executed = false
		result.Success = true
		return result
	}

	txID, err := e.execute(ctx, d)
	result.Executed = true
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		telemetry.ExecutionFailuresTotal.WithLabelValues(string(d.Type)).Inc()
		e.logger.Error("decision execution failed", "type", d.Type, "error", err)
		return result
	}

	result.Success = true
	result.TxID = txID
	e.cooldowns.mark(ctx, d.CooldownKey)
	e.logger.Info("decision executed", "type", d.Type, "txId", txID, "impactUsd", d.ImpactUSD)
	return result
}

// execute invokes the decision's stored action. Closed-position retrospect
// rows are recorded by the rule blocks that know a realized PnL at the
// moment of closing (e.g. stopLossRules), not here — dispatch only knows
// about txIDs and errors, not position economics.
func (e *Engine) execute(ctx context.Context, d Decision) (string, error) {
	return d.Action()
}

// recordClosedPerp persists a CLOSE_LOSING retrospective row the moment a
// stop-loss actually fires, using the unrealized PnL last observed at
// decision time as the realized outcome. Open time is unknown from the
// perp collaborator's contract, so hold duration reads as zero for these
// rows; the learning engine still gets a usable win/loss signal.
func (e *Engine) recordClosedPerp(ctx context.Context, pos PerpExposure) {
	if e.learning == nil {
		return
	}
	now := time.Now()
	meta, _ := json.Marshal(map[string]any{"liquidationPx": pos.LiquidationPx, "markPrice": pos.MarkPrice})
	if err := e.learning.RecordClose(ctx, db.InsertClosedPositionParams{
		ID:          uuid.New(),
		Strategy:    string(CloseLosing),
		Asset:       pos.Coin,
		OpenedAt:    now,
		ClosedAt:    now,
		PnlUSD:      pos.UnrealizedPnl,
		NotionalUSD: pos.SizeUSD,
		Metadata:    meta,
	}); err != nil {
		e.logger.Warn("recording closed position", "error", err)
	}
}
