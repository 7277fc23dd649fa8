package slack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wisbric/nova/pkg/messaging"
)

// Provider implements messaging.Provider for Slack.
type Provider struct {
	notifier *Notifier
	logger   *slog.Logger
}

// NewProvider creates a Slack messaging provider wrapping the notifier.
func NewProvider(notifier *Notifier, logger *slog.Logger) *Provider {
	return &Provider{notifier: notifier, logger: logger}
}

func (p *Provider) Name() string { return "slack" }

func (p *Provider) PostNarrative(ctx context.Context, msg messaging.NarrativeMessage) error {
	blocks := NarrativeBlocks(msg)
	fallback := fmt.Sprintf("%s: %s", msg.Topic, messaging.Truncate(msg.Summary, 200))
	if err := p.notifier.PostBlocks(ctx, blocks, fallback); err != nil {
		return fmt.Errorf("posting narrative to slack: %w", err)
	}
	return nil
}

func (p *Provider) PostAlert(ctx context.Context, msg messaging.AlertMessage) error {
	blocks := AlertBlocks(msg)
	if err := p.notifier.PostBlocks(ctx, blocks, messaging.AlertSummary(msg)); err != nil {
		return fmt.Errorf("posting alert to slack: %w", err)
	}
	return nil
}

func (p *Provider) PostBriefing(ctx context.Context, msg messaging.BriefingMessage) error {
	blocks := BriefingBlocks(msg)
	if err := p.notifier.PostBlocks(ctx, blocks, "Swarm briefing"); err != nil {
		return fmt.Errorf("posting briefing to slack: %w", err)
	}
	return nil
}

func (p *Provider) PostToAdmin(ctx context.Context, msg messaging.AdminMessage) error {
	blocks := AdminBlocks(msg)
	if err := p.notifier.PostBlocks(ctx, blocks, msg.Title); err != nil {
		return fmt.Errorf("posting admin message to slack: %w", err)
	}
	return nil
}
