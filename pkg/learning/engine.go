package learning

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wisbric/nova/internal/db"
	"github.com/wisbric/nova/internal/telemetry"
)

// cacheTTL is how long a refreshed multiplier is trusted before the next
// read forces a recomputation from the closed-position ledger.
const cacheTTL = 15 * time.Minute

// blendAlpha is the EMA weight given to the newly computed multiplier;
// the remainder (1-blendAlpha) is carried over from the prior value.
const blendAlpha = 0.3

// Strategies the learning engine keeps a multiplier for. RefreshAll
// recomputes every one of these each cycle. The CFO's rule blocks apply
// all of them except LP_OPEN, whose multiplier is computed and persisted
// but read by no rule block. Apply works for any strategy name, known or
// not (an unknown strategy just reads as zero confidence, i.e. "no data
// yet").
var Strategies = []string{
	"CLOSE_LOSING",
	"OPEN_HEDGE",
	"STAKE_IDLE",
	"PREDICTION_BET",
	"LENDING_LOOP",
	"LP_OPEN",
}

type cacheEntry struct {
	params    AdaptiveParams
	expiresAt time.Time
}

// Engine computes and serves NOVA's adaptive multipliers: one retrospective
// over closed positions per strategy, blended with the prior via EMA and
// cached in memory for cacheTTL.
type Engine struct {
	q      *db.Queries
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New creates a learning Engine bound to the shared DB pool.
func New(q *db.Queries, logger *slog.Logger) *Engine {
	return &Engine{q: q, logger: logger, cache: make(map[string]cacheEntry)}
}

// Get returns a strategy's current adaptive parameters, refreshing them
// from the closed-position ledger if the cache has expired. A strategy
// with no closed positions yet returns a neutral multiplier (1.0) and
// zero confidence, so Apply leaves the caller's base value unchanged.
func (e *Engine) Get(ctx context.Context, strategy string) AdaptiveParams {
	e.mu.Lock()
	entry, ok := e.cache[strategy]
	e.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.params
	}

	params, err := e.refresh(ctx, strategy, time.Now())
	if err != nil {
		e.logger.Warn("refreshing adaptive params", "strategy", strategy, "error", err)
		if ok {
			return entry.params
		}
		return AdaptiveParams{Strategy: strategy, Multiplier: 1.0}
	}
	return params
}

// Apply blends base with the strategy's current learned multiplier,
// weighted by confidence.
func (e *Engine) Apply(ctx context.Context, strategy string, base float64) float64 {
	params := e.Get(ctx, strategy)
	return Apply(base, params.Multiplier, params.Confidence)
}

// RefreshAll recomputes every known strategy's multiplier. Meant to be
// called once per decision cycle, ahead of decision generation, so every
// rule block that applies a multiplier reads a fresh value; a failure for
// one strategy does not
// block the others.
func (e *Engine) RefreshAll(ctx context.Context) {
	now := time.Now()
	var lastConfidence float64
	for _, strategy := range Strategies {
		params, err := e.refresh(ctx, strategy, now)
		if err != nil {
			e.logger.Warn("refreshing adaptive params", "strategy", strategy, "error", err)
			continue
		}
		lastConfidence = params.Confidence
	}
	telemetry.AdaptiveConfidenceGauge.Set(lastConfidence)
}

// refresh recomputes one strategy's multiplier from its closed-position
// history, blends it with the persisted prior, and persists + caches the
// result.
func (e *Engine) refresh(ctx context.Context, strategy string, now time.Time) (AdaptiveParams, error) {
	positions, err := e.q.ListClosedPositionsSince(ctx, strategy, since(now))
	if err != nil {
		return AdaptiveParams{}, err
	}

	stats := computeStats(strategy, positions)
	raw := deriveMultiplier(strategy, stats, positions)
	confidence := Confidence(stats.TotalTrades)

	prior, priorErr := e.q.GetAdaptiveParam(ctx, strategy)
	priorMultiplier := 1.0
	if priorErr == nil {
		priorMultiplier = prior.Multiplier
	}

	blended := blendAlpha*raw + (1-blendAlpha)*priorMultiplier
	if stats.TotalTrades < MinSamples {
		blended = 1.0
	}

	params := AdaptiveParams{
		Strategy:    strategy,
		Multiplier:  blended,
		Confidence:  confidence,
		SampleCount: stats.TotalTrades,
		UpdatedAt:   now,
	}

	if err := e.q.UpsertAdaptiveParam(ctx, db.UpsertAdaptiveParamParams{
		Strategy:    strategy,
		Multiplier:  blended,
		Confidence:  confidence,
		SampleCount: int32(stats.TotalTrades),
	}); err != nil {
		return AdaptiveParams{}, err
	}

	e.mu.Lock()
	e.cache[strategy] = cacheEntry{params: params, expiresAt: now.Add(cacheTTL)}
	e.mu.Unlock()

	return params, nil
}

// RecordClose records one closed position for future retrospectives.
func (e *Engine) RecordClose(ctx context.Context, arg db.InsertClosedPositionParams) error {
	return e.q.InsertClosedPosition(ctx, arg)
}
