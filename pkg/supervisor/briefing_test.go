package supervisor

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/messaging"
)

// captureProvider records everything published to it.
type captureProvider struct {
	briefings []messaging.BriefingMessage
}

func (c *captureProvider) Name() string { return "capture" }
func (c *captureProvider) PostNarrative(ctx context.Context, msg messaging.NarrativeMessage) error {
	return nil
}
func (c *captureProvider) PostAlert(ctx context.Context, msg messaging.AlertMessage) error {
	return nil
}
func (c *captureProvider) PostBriefing(ctx context.Context, msg messaging.BriefingMessage) error {
	c.briefings = append(c.briefings, msg)
	return nil
}
func (c *captureProvider) PostToAdmin(ctx context.Context, msg messaging.AdminMessage) error {
	return nil
}

func TestBriefOnce_AggregatesWindowAndResetsCounter(t *testing.T) {
	capture := &captureProvider{}
	registry := messaging.NewRegistry()
	registry.Register(capture)

	s := New(
		agent.NewRuntime("nova-supervisor", "supervisor", nil, nil, slog.Default()),
		Config{},
		registry,
		nil,
		nil,
	)

	for i := 0; i < 10; i++ {
		s.recordIntel("nova-scout", bus.PriorityLow, "routine scan update")
	}
	s.recordIntel("nova-guardian", bus.PriorityCritical, "SOL position near liquidation")
	s.recordIntel("nova-guardian", bus.PriorityCritical, "ETH LP pool draining fast")
	s.messagesProcessed = 12

	s.briefOnce(context.Background())

	// Admin variant always goes out; the community variant follows because
	// the window held key intel.
	require.Len(t, capture.briefings, 2)
	admin := capture.briefings[0]
	assert.Equal(t, "admin", admin.Audience)
	assert.ElementsMatch(t, []string{"SOL position near liquidation", "ETH LP pool draining fast"}, admin.KeyIntel)
	assert.Equal(t, "10 routine updates processed", admin.RoutineSummary)
	assert.Equal(t, "community", capture.briefings[1].Audience)

	assert.Equal(t, 0, s.messagesProcessed)
	assert.Empty(t, s.recentIntel)
}

func TestBriefOnce_QuietWindowSkipsCommunityVariant(t *testing.T) {
	capture := &captureProvider{}
	registry := messaging.NewRegistry()
	registry.Register(capture)

	s := New(
		agent.NewRuntime("nova-supervisor", "supervisor", nil, nil, slog.Default()),
		Config{},
		registry,
		nil,
		nil,
	)

	s.briefOnce(context.Background())

	require.Len(t, capture.briefings, 1)
	assert.Equal(t, "admin", capture.briefings[0].Audience)
	assert.Equal(t, "0 routine updates processed", capture.briefings[0].RoutineSummary)
}
