package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// SendMessageParams are the fields needed to enqueue a new bus message.
type SendMessageParams struct {
	ID        uuid.UUID
	FromAgent string
	ToAgent   string
	Type      string
	Priority  string
	Payload   []byte
	ExpiresAt *time.Time
}

// SendMessage inserts a new message row.
func (q *Queries) SendMessage(ctx context.Context, arg SendMessageParams) (Message, error) {
	const query = `
		INSERT INTO messages (id, from_agent, to_agent, type, priority, payload, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, from_agent, to_agent, type, priority, payload, created_at, expires_at, acknowledged_at`

	var expiresAt pgtype.Timestamptz
	if arg.ExpiresAt != nil {
		expiresAt = pgtype.Timestamptz{Time: *arg.ExpiresAt, Valid: true}
	}

	row := q.db.QueryRow(ctx, query, arg.ID, arg.FromAgent, arg.ToAgent, arg.Type, arg.Priority, arg.Payload, expiresAt)
	return scanMessage(row)
}

// PollMessagesParams selects the next unacknowledged, unexpired messages
// addressed to an agent, ordered by priority (critical first) then age
// (oldest first), capped at Limit.
type PollMessagesParams struct {
	ToAgent string
	Limit   int32
}

// PollMessages returns the next batch of deliverable messages for an agent.
func (q *Queries) PollMessages(ctx context.Context, arg PollMessagesParams) ([]Message, error) {
	const query = `
		SELECT id, from_agent, to_agent, type, priority, payload, created_at, expires_at, acknowledged_at
		FROM messages
		WHERE to_agent = $1
		  AND acknowledged_at IS NULL
		  AND (expires_at IS NULL OR expires_at > now())
		ORDER BY
			CASE priority
				WHEN 'critical' THEN 0
				WHEN 'high' THEN 1
				WHEN 'medium' THEN 2
				ELSE 3
			END,
			created_at ASC
		LIMIT $2`

	rows, err := q.db.Query(ctx, query, arg.ToAgent, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("polling messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessageRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AcknowledgeMessage marks a message acknowledged, idempotently. Returns
// true if this call performed the acknowledgement (false if it was already
// acknowledged or does not exist).
func (q *Queries) AcknowledgeMessage(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `
		UPDATE messages SET acknowledged_at = now()
		WHERE id = $1 AND acknowledged_at IS NULL`

	tag, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("acknowledging message: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpiredMessages removes messages past their expiry, plus
// acknowledged messages older than the audit window, returning the
// number of rows removed. An unacknowledged message with no expiry is
// never pruned by age alone — it is still undelivered, and deleting it
// would silently drop a backlogged recipient's inbox.
func (q *Queries) DeleteExpiredMessages(ctx context.Context, auditCutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM messages
		WHERE (expires_at IS NOT NULL AND expires_at <= now())
		   OR (acknowledged_at IS NOT NULL AND created_at <= $1)`

	tag, err := q.db.Exec(ctx, query, auditCutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListMessagesSince returns all messages from any sender, addressed to
// anyone, created at or after since — used by the CFO's swarm intel
// consult step to scan the recent audit trail rather than a single inbox.
func (q *Queries) ListMessagesSince(ctx context.Context, since time.Time) ([]Message, error) {
	const query = `
		SELECT id, from_agent, to_agent, type, priority, payload, created_at, expires_at, acknowledged_at
		FROM messages
		WHERE created_at >= $1
		ORDER BY created_at DESC`

	rows, err := q.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("listing messages since: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessageRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.FromAgent, &m.ToAgent, &m.Type, &m.Priority, &m.Payload, &m.CreatedAt, &m.ExpiresAt, &m.AcknowledgedAt)
	if err != nil {
		return Message{}, fmt.Errorf("scanning message: %w", err)
	}
	return m, nil
}

func scanMessageRows(rows pgx.Rows) (Message, error) {
	var m Message
	err := rows.Scan(&m.ID, &m.FromAgent, &m.ToAgent, &m.Type, &m.Priority, &m.Payload, &m.CreatedAt, &m.ExpiresAt, &m.AcknowledgedAt)
	if err != nil {
		return Message{}, fmt.Errorf("scanning message: %w", err)
	}
	return m, nil
}
