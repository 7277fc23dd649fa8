package slack

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"
)

// Notifier posts messages to a single configured Slack channel. With no bot
// token it is a noop — callers can check IsEnabled() but don't have to.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier creates a Slack Notifier. If botToken is empty, the notifier
// is a noop (logging only).
func NewNotifier(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// IsEnabled returns true if the notifier has a valid client and channel.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// PostBlocks posts Block Kit blocks with a fallback text to the configured
// channel.
func (n *Notifier) PostBlocks(ctx context.Context, blocks []goslack.Block, fallbackText string) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping post", "text", fallbackText)
		return nil
	}

	opts := []goslack.MsgOption{
		goslack.MsgOptionBlocks(blocks...),
		goslack.MsgOptionText(fallbackText, false),
	}

	channelID, ts, err := n.client.PostMessageContext(ctx, n.channel, opts...)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}

	n.logger.Debug("posted to slack", "channel", channelID, "ts", ts)
	return nil
}

// SendDM sends a direct message to a user by their Slack user ID.
func (n *Notifier) SendDM(ctx context.Context, slackUserID, text string) error {
	if !n.IsEnabled() {
		return nil
	}

	channel, _, _, err := n.client.OpenConversationContext(ctx, &goslack.OpenConversationParameters{
		Users: []string{slackUserID},
	})
	if err != nil {
		return fmt.Errorf("opening DM conversation: %w", err)
	}

	_, _, err = n.client.PostMessageContext(ctx, channel.ID, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("sending DM: %w", err)
	}
	return nil
}
