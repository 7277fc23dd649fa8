package agent

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRuntime_StartStop_Idempotent(t *testing.T) {
	r := NewRuntime("nova-test", "test", nil, nil, testLogger())

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Start(context.Background())) // second Start is a no-op

	r.Stop()
	r.Stop() // second Stop is a no-op, must not panic or block
}

func TestRuntime_AddInterval_StopsOnStop(t *testing.T) {
	r := NewRuntime("nova-test", "test", nil, nil, testLogger())
	require.NoError(t, r.Start(context.Background()))

	var calls int64
	r.AddInterval(5*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&calls, 1)
	})

	time.Sleep(30 * time.Millisecond)
	r.Stop()

	seenAtStop := atomic.LoadInt64(&calls)
	assert.Greater(t, seenAtStop, int64(0), "interval should have fired at least once")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, seenAtStop, atomic.LoadInt64(&calls), "no further ticks should fire after Stop")
}

func TestRuntime_SendMessage_NilBusPanics(t *testing.T) {
	r := NewRuntime("nova-test", "test", nil, nil, testLogger())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.Panics(t, func() {
		r.SendMessage(context.Background(), "nova-supervisor", "narrative", "", nil)
	}, "a nil bus is a programmer error, not a runtime condition to swallow")
}

func TestRuntime_RestoreState_NoRowIsNotError(t *testing.T) {
	r := NewRuntime("nova-test", "test", nil, nil, testLogger())
	var out map[string]any
	err := r.RestoreState(context.Background(), &out)
	assert.NoError(t, err)
}
