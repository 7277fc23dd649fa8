// Package bus implements NOVA's durable message bus: a Postgres-backed
// inbox per agent with priority ordering, ack-once delivery, expiry, and
// periodic garbage collection of the audit trail.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/nova/internal/db"
	"github.com/wisbric/nova/internal/telemetry"
)

// Priority is the bus's total delivery order: Critical < High < Medium < Low.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Message is a single bus entry as seen by a consumer.
type Message struct {
	ID        uuid.UUID
	From      string
	To        string
	Type      string
	Priority  Priority
	Payload   json.RawMessage
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Bus is a durable, priority-ordered message bus shared by every agent in
// the swarm.
type Bus struct {
	pool *pgxpool.Pool
	q    *db.Queries
}

// New creates a Bus over the given connection pool.
func New(pool *pgxpool.Pool) *Bus {
	return &Bus{pool: pool, q: db.New(pool)}
}

// SendParams describes a message to enqueue.
type SendParams struct {
	From     string
	To       string
	Type     string
	Priority Priority
	Payload  any
	TTL      time.Duration // zero means no expiry
}

// Send enqueues a message on the bus, returning its assigned ID.
func (b *Bus) Send(ctx context.Context, p SendParams) (uuid.UUID, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling payload: %w", err)
	}

	priority := p.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	var expiresAt *time.Time
	if p.TTL > 0 {
		t := time.Now().Add(p.TTL)
		expiresAt = &t
	}

	row, err := b.q.SendMessage(ctx, db.SendMessageParams{
		ID:        uuid.New(),
		FromAgent: p.From,
		ToAgent:   p.To,
		Type:      p.Type,
		Priority:  string(priority),
		Payload:   payload,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("sending message: %w", err)
	}

	telemetry.MessagesSentTotal.WithLabelValues(p.Type, string(priority)).Inc()
	return row.ID, nil
}

// Poll returns the next batch of deliverable messages addressed to an
// agent, ordered critical-first then oldest-first, capped at limit.
// Acknowledged and expired messages are never returned.
func (b *Bus) Poll(ctx context.Context, to string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := b.q.PollMessages(ctx, db.PollMessagesParams{ToAgent: to, Limit: int32(limit)})
	if err != nil {
		return nil, fmt.Errorf("polling messages: %w", err)
	}

	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, toMessage(r))
	}
	return out, nil
}

// Acknowledge marks a message as delivered. Acknowledging an
// already-acknowledged or nonexistent message is a no-op, never an error.
func (b *Bus) Acknowledge(ctx context.Context, id uuid.UUID) error {
	acked, err := b.q.AcknowledgeMessage(ctx, id)
	if err != nil {
		return fmt.Errorf("acknowledging message: %w", err)
	}
	if acked {
		telemetry.MessagesAcknowledgedTotal.Inc()
	}
	return nil
}

// Since returns every message created at or after the given time,
// regardless of recipient or ack state — the CFO's swarm intel window.
func (b *Bus) Since(ctx context.Context, since time.Time) ([]Message, error) {
	rows, err := b.q.ListMessagesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, toMessage(r))
	}
	return out, nil
}

func toMessage(r db.Message) Message {
	m := Message{
		ID:        r.ID,
		From:      r.FromAgent,
		To:        r.ToAgent,
		Type:      r.Type,
		Priority:  Priority(r.Priority),
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		m.ExpiresAt = &t
	}
	return m
}
