package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicFingerprint_CollidesOnSharedContentWords(t *testing.T) {
	a := TopicFingerprint("Agent swarms trending hard across Solana launches fast these days")
	b := TopicFingerprint("Agent swarms so trending it hard at across via Solana and launches ok fast now")

	assert.Equal(t, a, b, "the same 8 qualifying content words in the same order must collapse to the same fingerprint, regardless of short filler words")
}

func TestTopicFingerprint_DiffersOnDistinctTopic(t *testing.T) {
	a := TopicFingerprint("Agent swarms trending hard across Solana launches fast")
	b := TopicFingerprint("Liquidation cascade wipes out leveraged perpetual traders overnight")

	assert.NotEqual(t, a, b)
	assert.False(t, TopicsCollide(a, b))
}

// TestTopicsCollide_SpecNarrativeDedupScenario is the literal seed test
// from spec.md §8 scenario 5: two narrative summaries about the same
// underlying topic, phrased differently enough that only their first
// qualifying word and one later word actually recur — an exact
// fingerprint match would miss this pair entirely.
func TestTopicsCollide_SpecNarrativeDedupScenario(t *testing.T) {
	a := TopicFingerprint("AI agents are going viral on Solana")
	b := TopicFingerprint("AI agents are trending on Solana after major launches")

	assert.NotEqual(t, a, b, "the literal fingerprint strings diverge after the first qualifying word")
	assert.True(t, TopicsCollide(a, b), "the two summaries describe the same narrative and must be treated as a duplicate")
}

func TestTopicFingerprint_SkipsShortWords(t *testing.T) {
	got := TopicFingerprint("a an on is it AI ok go cat dog elephant")
	assert.Equal(t, "elephant", got)
}

func TestTruncate_CutsAtWordBoundary(t *testing.T) {
	s := "the quick brown fox jumps over the lazy dog"
	got := Truncate(s, 20)
	assert.LessOrEqual(t, len(got), 20)
	assert.Contains(t, got, "...")
}

func TestTruncate_NoOpWhenShortEnough(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 280))
}

func TestSeverityEmoji_KnownLevels(t *testing.T) {
	assert.NotEmpty(t, SeverityEmoji("critical"))
	assert.NotEqual(t, SeverityEmoji("critical"), SeverityEmoji("low"))
}
