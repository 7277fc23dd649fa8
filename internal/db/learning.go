package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertClosedPositionParams records a completed strategy position for
// later retrospective scoring.
type InsertClosedPositionParams struct {
	ID          uuid.UUID
	Strategy    string
	Asset       string
	OpenedAt    time.Time
	ClosedAt    time.Time
	PnlUSD      float64
	NotionalUSD float64
	Metadata    []byte
}

// InsertClosedPosition inserts one closed-position row.
func (q *Queries) InsertClosedPosition(ctx context.Context, arg InsertClosedPositionParams) error {
	const query = `
		INSERT INTO closed_positions (id, strategy, asset, opened_at, closed_at, pnl_usd, notional_usd, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.db.Exec(ctx, query, arg.ID, arg.Strategy, arg.Asset, arg.OpenedAt, arg.ClosedAt, arg.PnlUSD, arg.NotionalUSD, arg.Metadata)
	if err != nil {
		return fmt.Errorf("inserting closed position: %w", err)
	}
	return nil
}

// ListClosedPositionsSince returns every closed position for a strategy
// closed at or after since, oldest first — the learning engine's
// retrospective window.
func (q *Queries) ListClosedPositionsSince(ctx context.Context, strategy string, since time.Time) ([]ClosedPosition, error) {
	const query = `
		SELECT id, strategy, asset, opened_at, closed_at, pnl_usd, notional_usd, metadata
		FROM closed_positions
		WHERE strategy = $1 AND closed_at >= $2
		ORDER BY closed_at ASC`

	rows, err := q.db.Query(ctx, query, strategy, since)
	if err != nil {
		return nil, fmt.Errorf("listing closed positions: %w", err)
	}
	defer rows.Close()

	var out []ClosedPosition
	for rows.Next() {
		var p ClosedPosition
		if err := rows.Scan(&p.ID, &p.Strategy, &p.Asset, &p.OpenedAt, &p.ClosedAt, &p.PnlUSD, &p.NotionalUSD, &p.Metadata); err != nil {
			return nil, fmt.Errorf("scanning closed position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertAdaptiveParamParams persists the EMA-blended multiplier for one
// strategy.
type UpsertAdaptiveParamParams struct {
	Strategy    string
	Multiplier  float64
	Confidence  float64
	SampleCount int32
}

// UpsertAdaptiveParam writes a strategy's current adaptive multiplier.
func (q *Queries) UpsertAdaptiveParam(ctx context.Context, arg UpsertAdaptiveParamParams) error {
	const query = `
		INSERT INTO adaptive_params (strategy, multiplier, confidence, sample_count, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (strategy) DO UPDATE SET
			multiplier = EXCLUDED.multiplier,
			confidence = EXCLUDED.confidence,
			sample_count = EXCLUDED.sample_count,
			updated_at = now()`

	_, err := q.db.Exec(ctx, query, arg.Strategy, arg.Multiplier, arg.Confidence, arg.SampleCount)
	if err != nil {
		return fmt.Errorf("upserting adaptive param: %w", err)
	}
	return nil
}

// GetAdaptiveParam returns the persisted multiplier for a strategy.
// pgx.ErrNoRows is returned if none has been computed yet.
func (q *Queries) GetAdaptiveParam(ctx context.Context, strategy string) (AdaptiveParam, error) {
	const query = `SELECT strategy, multiplier, confidence, sample_count, updated_at FROM adaptive_params WHERE strategy = $1`

	var p AdaptiveParam
	err := q.db.QueryRow(ctx, query, strategy).Scan(&p.Strategy, &p.Multiplier, &p.Confidence, &p.SampleCount, &p.UpdatedAt)
	if err != nil {
		return AdaptiveParam{}, err
	}
	return p, nil
}

// ListAdaptiveParams returns every strategy's current adaptive multiplier.
func (q *Queries) ListAdaptiveParams(ctx context.Context) ([]AdaptiveParam, error) {
	const query = `SELECT strategy, multiplier, confidence, sample_count, updated_at FROM adaptive_params ORDER BY strategy`

	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing adaptive params: %w", err)
	}
	defer rows.Close()

	var out []AdaptiveParam
	for rows.Next() {
		var p AdaptiveParam
		if err := rows.Scan(&p.Strategy, &p.Multiplier, &p.Confidence, &p.SampleCount, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning adaptive param: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PruneClosedPositions removes ledger rows closed before the cutoff, once
// they are too old for any retrospective window to read.
func (q *Queries) PruneClosedPositions(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM closed_positions WHERE closed_at <= $1`

	tag, err := q.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning closed positions: %w", err)
	}
	return tag.RowsAffected(), nil
}
