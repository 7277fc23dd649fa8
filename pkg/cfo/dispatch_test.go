package cfo

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	return &Engine{
		logger:    slog.Default(),
		cooldowns: newCooldowns(nil, slog.Default()),
		approvals: newApprovalQueue(),
	}
}

func TestDispatch_AutoTierSuccess(t *testing.T) {
	e := testEngine()
	d := Decision{
		Type:        StakeIdle,
		Tier:        TierAuto,
		CooldownKey: "stake",
		Action:      func() (string, error) { return "tx-123", nil },
	}

	result := e.dispatch(context.Background(), "trace-1", d)

	assert.True(t, result.Executed)
	assert.True(t, result.Success)
	assert.Equal(t, "tx-123", result.TxID)
	assert.False(t, e.cooldowns.ready(context.Background(), "stake", time.Hour))
}

func TestDispatch_AutoTierFailureDoesNotMarkCooldown(t *testing.T) {
	e := testEngine()
	d := Decision{
		Type:        OpenHedge,
		Tier:        TierAuto,
		CooldownKey: "hedge:SOL",
		Action:      func() (string, error) { return "", errors.New("venue unavailable") },
	}

	result := e.dispatch(context.Background(), "trace-2", d)

	assert.True(t, result.Executed)
	assert.False(t, result.Success)
	assert.Equal(t, "venue unavailable", result.Error)
	assert.True(t, e.cooldowns.ready(context.Background(), "hedge:SOL", time.Hour))
}

func TestDispatch_DryRunNeverExecutesButMarksCooldown(t *testing.T) {
	e := testEngine()
	called := false
	d := Decision{
		Type:        LPOpen,
		Tier:        TierAuto,
		DryRun:      true,
		CooldownKey: "lp:orca",
		Action:      func() (string, error) { called = true; return "tx", nil },
	}

	result := e.dispatch(context.Background(), "trace-3", d)

	assert.False(t, result.Executed)
	assert.True(t, result.Success)
	assert.False(t, called)
}

func TestDispatch_ApprovalTierNeverCallsActionImmediately(t *testing.T) {
	e := testEngine()
	called := false
	d := Decision{
		Type:        LendingLoop,
		Tier:        TierApproval,
		ImpactUSD:   1000,
		Description: "loop jitoSOL",
		CooldownKey: "lending_loop",
		Action:      func() (string, error) { called = true; return "tx", nil },
	}

	result := e.dispatch(context.Background(), "trace-4", d)

	require.True(t, result.PendingApproval)
	assert.NotEmpty(t, result.ApprovalID)
	assert.False(t, called)
	assert.Len(t, e.approvals.list(), 1)
}
