package cfo

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCooldowns_NilRedisFallsBackToLocalMap exercises the in-process map
// used when no Redis client is configured (or Redis is unreachable) — the
// same ready/mark contract the hot path provides, just without a client to
// back it.
func TestCooldowns_NilRedisFallsBackToLocalMap(t *testing.T) {
	c := newCooldowns(nil, slog.Default())
	ctx := context.Background()

	assert.True(t, c.ready(ctx, "stake", time.Hour), "a never-marked key is always ready")

	c.mark(ctx, "stake")
	assert.False(t, c.ready(ctx, "stake", time.Hour), "a just-marked key is inside its window")
	time.Sleep(5 * time.Millisecond)
	assert.True(t, c.ready(ctx, "stake", time.Millisecond), "the same key clears once the (shorter) window elapses")
}

func TestCooldowns_IndependentKeysDoNotInterfere(t *testing.T) {
	c := newCooldowns(nil, slog.Default())
	ctx := context.Background()

	c.mark(ctx, "hedge:SOL")
	assert.True(t, c.ready(ctx, "hedge:BTC", time.Hour), "marking one key must not cool down a different key")
}
