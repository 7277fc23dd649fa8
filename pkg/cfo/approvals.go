package cfo

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultApprovalTTL is how long a queued decision waits for an admin to
// approve it before the sweeper drops it, absent a configured override.
const defaultApprovalTTL = 15 * time.Minute

// approvalEntry is one decision awaiting admin sign-off.
type approvalEntry struct {
	ID          string
	Description string
	AmountUSD   float64
	CooldownKey string
	Action      func() (string, error)
	ExpiresAt   time.Time
}

// approvalQueue holds APPROVAL-tier decisions until an admin approves them
// or the sweeper expires them.
type approvalQueue struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]approvalEntry
}

func newApprovalQueue() *approvalQueue {
	return newApprovalQueueTTL(defaultApprovalTTL)
}

func newApprovalQueueTTL(ttl time.Duration) *approvalQueue {
	if ttl <= 0 {
		ttl = defaultApprovalTTL
	}
	return &approvalQueue{ttl: ttl, entries: make(map[string]approvalEntry)}
}

// queue stores a decision's action for later approval, returning its id.
func (q *approvalQueue) queue(description string, amountUSD float64, cooldownKey string, action func() (string, error)) string {
	id := uuid.NewString()
	q.mu.Lock()
	q.entries[id] = approvalEntry{
		ID:          id,
		Description: description,
		AmountUSD:   amountUSD,
		CooldownKey: cooldownKey,
		Action:      action,
		ExpiresAt:   time.Now().Add(q.ttl),
	}
	q.mu.Unlock()
	return id
}

// approve invokes the stored action exactly once and removes the entry.
// Approving an unknown or expired id is reported, not panicked.
func (q *approvalQueue) approve(id string) (txID string, cooldownKey string, err error, found bool) {
	q.mu.Lock()
	entry, ok := q.entries[id]
	if ok {
		delete(q.entries, id)
	}
	q.mu.Unlock()
	if !ok {
		return "", "", nil, false
	}
	txID, err = entry.Action()
	return txID, entry.CooldownKey, err, true
}

// sweepExpired drops every entry past its expiry.
func (q *approvalQueue) sweepExpired() int {
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := 0
	for id, entry := range q.entries {
		if now.After(entry.ExpiresAt) {
			delete(q.entries, id)
			dropped++
		}
	}
	return dropped
}

// list returns a snapshot of pending approvals, for status reporting.
func (q *approvalQueue) list() []approvalEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]approvalEntry, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e)
	}
	return out
}
