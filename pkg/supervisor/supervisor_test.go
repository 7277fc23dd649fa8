package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/messaging"
)

func TestStringField(t *testing.T) {
	assert.Equal(t, "narrative", stringField(map[string]any{"kind": "narrative"}, "kind"))
	assert.Equal(t, "", stringField(map[string]any{"kind": 5}, "kind"))
	assert.Equal(t, "", stringField(map[string]any{}, "missing"))
}

func TestBoolField(t *testing.T) {
	assert.True(t, boolField(map[string]any{"volumeSpike": true}, "volumeSpike"))
	assert.False(t, boolField(map[string]any{}, "volumeSpike"))
}

func TestFloatField(t *testing.T) {
	assert.Equal(t, 20.0, floatField(map[string]any{"mentions": 20.0}, "mentions"))
	assert.Equal(t, 0.0, floatField(map[string]any{}, "mentions"))
}

func TestBucketIntel(t *testing.T) {
	entries := []intelEntry{
		{Priority: bus.PriorityCritical, Summary: "SOL liquidation imminent"},
		{Priority: bus.PriorityCritical, Summary: "SOL liquidation imminent"}, // duplicate, dropped
		{Priority: bus.PriorityHigh, Summary: "Market movers: SOL +9.0%"},
		{Priority: bus.PriorityLow, Summary: "routine intel"},
		{Priority: bus.PriorityMedium, Summary: ""},
	}

	keyIntel, routine := bucketIntel(entries)

	assert.Len(t, keyIntel, 2)
	assert.Equal(t, 2, routine)
}

func TestBucketIntel_Empty(t *testing.T) {
	keyIntel, routine := bucketIntel(nil)
	assert.Empty(t, keyIntel)
	assert.Equal(t, 0, routine)
}

// TestPublishNarrativeIfDue_DedupsSpecNarrativeScenario is spec.md §8
// scenario 5, run through the actual handler rather than the bare
// fingerprint function: two differently-worded summaries of the same
// narrative, 10 minutes apart, must only publish once. NarrativeCooldown
// is zeroed so the cooldown gate can't coincidentally mask a dedup bug.
func TestPublishNarrativeIfDue_DedupsSpecNarrativeScenario(t *testing.T) {
	s := &Supervisor{
		cfg:       Config{NarrativeCooldown: 0},
		providers: messaging.NewRegistry(),
	}

	s.publishNarrativeIfDue(context.Background(), "nova-scout", "AI agents are going viral on Solana")
	assert.Len(t, s.recentFingerprints, 1)

	s.publishNarrativeIfDue(context.Background(), "nova-scout", "AI agents are trending on Solana after major launches")
	assert.Len(t, s.recentFingerprints, 1, "the second summary describes the same narrative and must not be republished")
}

func TestPublishNarrativeIfDue_DistinctTopicsBothPublish(t *testing.T) {
	s := &Supervisor{
		cfg:       Config{NarrativeCooldown: 0},
		providers: messaging.NewRegistry(),
	}

	s.publishNarrativeIfDue(context.Background(), "nova-scout", "Agent swarms trending hard across Solana launches fast")
	s.publishNarrativeIfDue(context.Background(), "nova-scout", "Liquidation cascade wipes out leveraged perpetual traders overnight")

	assert.Len(t, s.recentFingerprints, 2)
}
