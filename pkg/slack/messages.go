package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"

	"github.com/wisbric/nova/pkg/messaging"
)

// NarrativeBlocks builds Block Kit blocks for a narrative-shift post.
func NarrativeBlocks(msg messaging.NarrativeMessage) []goslack.Block {
	header := goslack.NewHeaderBlock(
		goslack.NewTextBlockObject(goslack.PlainTextType, "📡 "+messaging.Truncate(msg.Topic, 140), true, false),
	)
	body := goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, messaging.Truncate(msg.Summary, 2800), false, false),
		nil, nil,
	)
	ctxBlock := goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("source: %s", msg.Source), false, false))

	return []goslack.Block{header, body, ctxBlock}
}

// AlertBlocks builds Block Kit blocks for a safety or market alert.
func AlertBlocks(msg messaging.AlertMessage) []goslack.Block {
	header := goslack.NewHeaderBlock(
		goslack.NewTextBlockObject(goslack.PlainTextType,
			fmt.Sprintf("%s %s: %s", messaging.SeverityEmoji(msg.Severity), messaging.SeverityLabel(msg.Severity), msg.Title), true, false),
	)

	blocks := []goslack.Block{header}

	if msg.Description != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, messaging.Truncate(msg.Description, 2800), false, false),
			nil, nil,
		))
	}

	blocks = append(blocks, goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("source: %s", msg.Source), false, false)))

	return blocks
}

// BriefingBlocks builds Block Kit blocks for a periodic swarm briefing.
func BriefingBlocks(msg messaging.BriefingMessage) []goslack.Block {
	header := goslack.NewHeaderBlock(
		goslack.NewTextBlockObject(goslack.PlainTextType, "🗞️ Swarm Briefing", true, false),
	)

	window := goslack.NewContextBlock("", goslack.NewTextBlockObject(goslack.MarkdownType,
		fmt.Sprintf("%s → %s", msg.WindowStart.Format("Jan 2 15:04"), msg.WindowEnd.Format("Jan 2 15:04")), false, false))

	blocks := []goslack.Block{header, window}

	if len(msg.KeyIntel) > 0 {
		text := "*Key intel:*\n"
		for _, line := range msg.KeyIntel {
			text += "• " + line + "\n"
		}
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, messaging.Truncate(text, 2800), false, false),
			nil, nil,
		))
	}

	if msg.PortfolioLine != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, msg.PortfolioLine, false, false),
			nil, nil,
		))
	}

	if msg.RoutineSummary != "" {
		blocks = append(blocks, goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType, msg.RoutineSummary, false, false)))
	}

	return blocks
}

// AdminBlocks builds Block Kit blocks for an admin-only notification.
func AdminBlocks(msg messaging.AdminMessage) []goslack.Block {
	header := goslack.NewHeaderBlock(
		goslack.NewTextBlockObject(goslack.PlainTextType,
			fmt.Sprintf("%s %s", messaging.SeverityEmoji(msg.Urgency), msg.Title), true, false),
	)

	blocks := []goslack.Block{header}

	if msg.Body != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, messaging.Truncate(msg.Body, 2800), false, false),
			nil, nil,
		))
	}

	blocks = append(blocks, goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("kind: %s", msg.Kind), false, false)))

	return blocks
}
