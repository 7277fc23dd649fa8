// Package messaging defines the provider-agnostic interface for NOVA's
// publication sinks — the external channels the supervisor fans narrative
// shifts, alerts, and briefings out to — plus a Registry of configured
// providers and the admin command ingress each provider may offer.
package messaging

import "context"

// Provider is a publication sink NOVA can post to. It mirrors spec.md
// §6's abstract publication-sink contract (onPostToX, onPostToChannel,
// onPostToAdmin, onPostToFarcaster, onPostToTelegram); a single Provider
// implementation may answer to one or more of these destinations.
type Provider interface {
	// Name returns the provider identifier ("slack", "x", "farcaster", "telegram").
	Name() string

	// PostNarrative publishes a narrative-shift update to the provider's
	// public channel.
	PostNarrative(ctx context.Context, msg NarrativeMessage) error

	// PostAlert publishes a safety or market alert.
	PostAlert(ctx context.Context, msg AlertMessage) error

	// PostBriefing publishes a periodic swarm briefing digest.
	PostBriefing(ctx context.Context, msg BriefingMessage) error

	// PostToAdmin sends an admin-only notification (approval requests,
	// execution failures, moderation notes).
	PostToAdmin(ctx context.Context, msg AdminMessage) error
}

// CommandHandler handles incoming admin slash commands from a provider.
type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd IncomingCommand) (*CommandResponse, error)
}
