package messaging

import "time"

// NarrativeMessage is a deduplicated, filtered narrative-shift update
// ready for publication.
type NarrativeMessage struct {
	Topic     string
	Summary   string
	Source    string // "scout"
	CreatedAt time.Time
}

// AlertMessage is a safety or market alert ready for publication.
type AlertMessage struct {
	Title       string
	Severity    string // critical, high, medium, low
	Description string
	Source      string // "guardian", "analyst"
	CreatedAt   time.Time
}

// BriefingMessage is a periodic swarm-wide digest.
type BriefingMessage struct {
	WindowStart    time.Time
	WindowEnd      time.Time
	KeyIntel       []string // critical/high items, verbatim
	RoutineSummary string   // e.g. "10 routine updates processed"
	PortfolioLine  string   // one-line PnL/stats summary, may be empty
	Audience       string   // "admin" or "community"
}

// AdminMessage is an admin-only notification: approval requests,
// execution failures, moderation notes.
type AdminMessage struct {
	Title   string
	Body    string
	Kind    string // "approval_request", "execution_failure", "moderation", "status"
	Urgency string // critical, high, medium, low
}

// IncomingCommand represents an admin slash command from any provider.
type IncomingCommand struct {
	Command   string // "cfo_stop", "cfo_approve", ...
	Args      string // everything after the command
	UserRef   string // platform user identifier
	ChannelID string
}

// CommandResponse is what we send back to the command's invoker.
type CommandResponse struct {
	Text      string
	Ephemeral bool // only visible to the command invoker
}
