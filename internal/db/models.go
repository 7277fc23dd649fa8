package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Message is a row in the durable message bus.
type Message struct {
	ID             uuid.UUID
	FromAgent      string
	ToAgent        string
	Type           string
	Priority       string
	Payload        []byte
	CreatedAt      time.Time
	ExpiresAt      pgtype.Timestamptz
	AcknowledgedAt pgtype.Timestamptz
}

// AgentRegistration is a row recording an agent's presence in the swarm.
type AgentRegistration struct {
	Name         string
	Kind         string
	RegisteredAt time.Time
	LastSeenAt   time.Time
}

// Heartbeat is the most recent liveness report for a registered agent.
type Heartbeat struct {
	AgentName  string
	Status     string
	Detail     string
	LastBeatAt time.Time
}

// AgentState is a single JSON document of persisted agent runtime state,
// keyed by agent name. Used for Runtime.saveState/restoreState.
type AgentState struct {
	AgentName string
	State     []byte
	UpdatedAt time.Time
}

// ClosedPosition is a single closed strategy position used by the learning
// engine's retrospective.
type ClosedPosition struct {
	ID          uuid.UUID
	Strategy    string
	Asset       string
	OpenedAt    time.Time
	ClosedAt    time.Time
	PnlUSD      float64
	NotionalUSD float64
	Metadata    []byte
}

// AdaptiveParam is the persisted, EMA-blended multiplier for one strategy.
type AdaptiveParam struct {
	Strategy    string
	Multiplier  float64
	Confidence  float64
	SampleCount int32
	UpdatedAt   time.Time
}
