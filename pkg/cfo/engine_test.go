package cfo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunCycle_OverlappingInvocationIsDropped(t *testing.T) {
	e := testEngine()
	e.running.Store(true) // a cycle is already in flight

	assert.Nil(t, e.RunCycle(context.Background()))
}

func TestCapDecisions_KeepsMostUrgent(t *testing.T) {
	decisions := []Decision{
		{Type: StakeIdle, Urgency: UrgencyLow},
		{Type: CloseLosing, Urgency: UrgencyCritical},
		{Type: OpenHedge, Urgency: UrgencyHigh},
		{Type: LPOpen, Urgency: UrgencyMedium},
		{Type: PredictionBet, Urgency: UrgencyLow},
	}

	capped := capDecisions(decisions, 3)

	assert.Len(t, capped, 3)
	assert.Equal(t, CloseLosing, capped[0].Type)
	assert.Equal(t, OpenHedge, capped[1].Type)
	assert.Equal(t, LPOpen, capped[2].Type)
}

func TestCapDecisions_NoCapWhenUnderLimit(t *testing.T) {
	decisions := []Decision{
		{Type: StakeIdle, Urgency: UrgencyLow},
		{Type: OpenHedge, Urgency: UrgencyHigh},
	}

	capped := capDecisions(decisions, 3)

	assert.Len(t, capped, 2)
	assert.Equal(t, OpenHedge, capped[0].Type)
}

func TestSortByUrgency_StableWithinSameRank(t *testing.T) {
	decisions := []Decision{
		{Type: StakeIdle, Urgency: UrgencyMedium},
		{Type: LPOpen, Urgency: UrgencyMedium},
		{Type: CloseLosing, Urgency: UrgencyCritical},
	}

	sortByUrgency(decisions)

	assert.Equal(t, CloseLosing, decisions[0].Type)
	assert.Equal(t, StakeIdle, decisions[1].Type)
	assert.Equal(t, LPOpen, decisions[2].Type)
}
