package cfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalQueue_QueueAndApprove(t *testing.T) {
	q := newApprovalQueue()
	called := false
	id := q.queue("open hedge", 500, "hedge:SOL", func() (string, error) {
		called = true
		return "tx-1", nil
	})
	require.NotEmpty(t, id)

	pending := q.list()
	require.Len(t, pending, 1)
	assert.Equal(t, "open hedge", pending[0].Description)

	txID, cooldownKey, err, found := q.approve(id)
	require.True(t, found)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "tx-1", txID)
	assert.Equal(t, "hedge:SOL", cooldownKey)

	assert.Empty(t, q.list())
}

func TestApprovalQueue_ApproveUnknownID(t *testing.T) {
	q := newApprovalQueue()
	_, _, err, found := q.approve("does-not-exist")
	assert.False(t, found)
	assert.NoError(t, err)
}

func TestApprovalQueue_ApproveOnlyInvokesActionOnce(t *testing.T) {
	q := newApprovalQueue()
	calls := 0
	id := q.queue("stake idle", 100, "stake", func() (string, error) {
		calls++
		return "tx", nil
	})

	_, _, _, found := q.approve(id)
	require.True(t, found)

	_, _, _, found = q.approve(id)
	assert.False(t, found)
	assert.Equal(t, 1, calls)
}

func TestApprovalQueue_SweepExpired(t *testing.T) {
	q := newApprovalQueue()
	id := q.queue("deposit", 50, "lend", func() (string, error) { return "", nil })

	q.mu.Lock()
	entry := q.entries[id]
	entry.ExpiresAt = time.Now().Add(-time.Minute)
	q.entries[id] = entry
	q.mu.Unlock()

	dropped := q.sweepExpired()
	assert.Equal(t, 1, dropped)
	assert.Empty(t, q.list())
}

func TestApprovalQueue_SweepExpiredKeepsFreshEntries(t *testing.T) {
	q := newApprovalQueue()
	q.queue("loop lst", 200, "lending_loop", func() (string, error) { return "", nil })

	dropped := q.sweepExpired()
	assert.Equal(t, 0, dropped)
	assert.Len(t, q.list(), 1)
}
