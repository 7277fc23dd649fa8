package bus

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestMessageLess_PriorityBeforeAge(t *testing.T) {
	now := time.Now()
	older := Message{Priority: PriorityLow, CreatedAt: now.Add(-time.Hour)}
	newerCritical := Message{Priority: PriorityCritical, CreatedAt: now}

	assert.True(t, newerCritical.Less(older), "critical must sort before low regardless of age")
	assert.False(t, older.Less(newerCritical))
}

func TestMessageLess_AgeWithinSamePriority(t *testing.T) {
	now := time.Now()
	older := Message{Priority: PriorityHigh, CreatedAt: now.Add(-time.Hour)}
	newer := Message{Priority: PriorityHigh, CreatedAt: now}

	assert.True(t, older.Less(newer), "within equal priority, older sorts first")
}

func TestSortByDeliveryOrder(t *testing.T) {
	now := time.Now()
	msgs := []Message{
		{Priority: PriorityLow, CreatedAt: now.Add(-time.Minute)},
		{Priority: PriorityCritical, CreatedAt: now},
		{Priority: PriorityHigh, CreatedAt: now.Add(-2 * time.Hour)},
		{Priority: PriorityCritical, CreatedAt: now.Add(-time.Hour)},
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Less(msgs[j]) })

	assert.Equal(t, PriorityCritical, msgs[0].Priority)
	assert.Equal(t, PriorityCritical, msgs[1].Priority)
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt), "older critical message must come first")
	assert.Equal(t, PriorityHigh, msgs[2].Priority)
	assert.Equal(t, PriorityLow, msgs[3].Priority)
}

func TestSendParams_DefaultsAndTTL(t *testing.T) {
	p := SendParams{From: "nova-scout", To: "nova-supervisor", Type: "narrative"}
	assert.Empty(t, p.Priority, "zero value priority is resolved by Send, not SendParams itself")
	assert.Zero(t, p.TTL)
}
