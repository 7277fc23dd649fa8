package db

import (
	"context"
	"fmt"
	"time"
)

// UpsertAgentRegistrationParams registers or refreshes an agent's presence.
type UpsertAgentRegistrationParams struct {
	Name string
	Kind string
}

// UpsertAgentRegistration inserts an agent registration or refreshes its
// last-seen timestamp if it already exists.
func (q *Queries) UpsertAgentRegistration(ctx context.Context, arg UpsertAgentRegistrationParams) error {
	const query = `
		INSERT INTO agent_registrations (name, kind, registered_at, last_seen_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (name) DO UPDATE SET kind = EXCLUDED.kind, last_seen_at = now()`

	if _, err := q.db.Exec(ctx, query, arg.Name, arg.Kind); err != nil {
		return fmt.Errorf("upserting agent registration: %w", err)
	}
	return nil
}

// ListAgentRegistrations returns every registered agent.
func (q *Queries) ListAgentRegistrations(ctx context.Context) ([]AgentRegistration, error) {
	const query = `SELECT name, kind, registered_at, last_seen_at FROM agent_registrations ORDER BY name`

	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing agent registrations: %w", err)
	}
	defer rows.Close()

	var out []AgentRegistration
	for rows.Next() {
		var r AgentRegistration
		if err := rows.Scan(&r.Name, &r.Kind, &r.RegisteredAt, &r.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scanning agent registration: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertHeartbeatParams records a liveness report for an agent.
type UpsertHeartbeatParams struct {
	AgentName string
	Status    string
	Detail    string
}

// UpsertHeartbeat records the latest heartbeat for an agent.
func (q *Queries) UpsertHeartbeat(ctx context.Context, arg UpsertHeartbeatParams) error {
	const query = `
		INSERT INTO heartbeats (agent_name, status, detail, last_beat_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (agent_name) DO UPDATE SET status = EXCLUDED.status, detail = EXCLUDED.detail, last_beat_at = now()`

	if _, err := q.db.Exec(ctx, query, arg.AgentName, arg.Status, arg.Detail); err != nil {
		return fmt.Errorf("upserting heartbeat: %w", err)
	}
	return nil
}

// ListHeartbeats returns the latest heartbeat row for every agent.
func (q *Queries) ListHeartbeats(ctx context.Context) ([]Heartbeat, error) {
	const query = `SELECT agent_name, status, detail, last_beat_at FROM heartbeats ORDER BY agent_name`

	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing heartbeats: %w", err)
	}
	defer rows.Close()

	var out []Heartbeat
	for rows.Next() {
		var h Heartbeat
		if err := rows.Scan(&h.AgentName, &h.Status, &h.Detail, &h.LastBeatAt); err != nil {
			return nil, fmt.Errorf("scanning heartbeat: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SaveAgentState upserts an agent's persisted runtime state blob.
func (q *Queries) SaveAgentState(ctx context.Context, agentName string, state []byte) error {
	const query = `
		INSERT INTO agent_state (agent_name, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (agent_name) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`

	if _, err := q.db.Exec(ctx, query, agentName, state); err != nil {
		return fmt.Errorf("saving agent state: %w", err)
	}
	return nil
}

// GetAgentState returns an agent's persisted state blob, or nil if none
// has been saved yet.
func (q *Queries) GetAgentState(ctx context.Context, agentName string) ([]byte, error) {
	const query = `SELECT state FROM agent_state WHERE agent_name = $1`

	var state []byte
	err := q.db.QueryRow(ctx, query, agentName).Scan(&state)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// DeleteStaleHeartbeats removes heartbeat rows for agents that reported a
// terminal disabled status before the cutoff. Live rows are never pruned,
// whatever their age — a silent agent should show up as stale, not vanish.
func (q *Queries) DeleteStaleHeartbeats(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM heartbeats
		WHERE status = 'disabled' AND last_beat_at <= $1`

	tag, err := q.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting stale heartbeats: %w", err)
	}
	return tag.RowsAffected(), nil
}
