package messaging

import "fmt"

// SeverityEmoji returns the emoji prefix for a given severity level.
func SeverityEmoji(severity string) string {
	switch severity {
	case "critical":
		return "\U0001F534" // red circle
	case "high":
		return "\U0001F7E0" // orange circle
	case "medium":
		return "\U0001F7E1" // yellow circle
	case "low":
		return "\U0001F535" // blue circle
	default:
		return "⚪" // white circle
	}
}

// SeverityLabel returns a human-readable uppercase label for a severity.
func SeverityLabel(s string) string {
	switch s {
	case "critical":
		return "CRITICAL"
	case "high":
		return "HIGH"
	case "medium":
		return "MEDIUM"
	case "low":
		return "LOW"
	default:
		return s
	}
}

// AlertSummary builds a one-line text summary for an alert.
func AlertSummary(msg AlertMessage) string {
	return fmt.Sprintf("%s %s: %s", SeverityEmoji(msg.Severity), SeverityLabel(msg.Severity), msg.Title)
}

// SeverityColor returns a hex color string for a severity level.
func SeverityColor(severity string) string {
	switch severity {
	case "critical":
		return "#DC2626"
	case "high":
		return "#EA580C"
	case "medium":
		return "#CA8A04"
	case "low":
		return "#2563EB"
	default:
		return "#6B7280"
	}
}

// Truncate returns s truncated to max characters, cut at the nearest
// preceding word boundary, with "..." appended.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && s[cut] != ' ' {
		cut--
	}
	if cut <= 0 {
		cut = max - 3
	}
	return s[:cut] + "..."
}
