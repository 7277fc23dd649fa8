// Package contentfilter scans outbound publications for safety threats
// before the supervisor fans them out to public sinks. The scan algorithm
// itself (e.g. secret detection, PII detection) is out of scope per spec;
// this package fixes the interface and a conservative default
// implementation.
package contentfilter

import (
	"context"
	"regexp"
	"strings"
)

// Severity is how serious a detected threat is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityLow      Severity = "low"
)

// Threat is one detected problem with a piece of outbound content.
type Threat struct {
	Severity    Severity
	Description string
}

// Result is the outcome of scanning one piece of outbound text.
type Result struct {
	Clean   bool
	Threats []Threat
}

// Filter scans outbound content bound for a named destination sink.
// A nil Filter is treated as fail-open by callers (see Supervisor.publishNarrativeIfDue and handleAlert).
type Filter interface {
	ScanOutbound(ctx context.Context, text, destination string) (Result, error)
}

// Default is a conservative pattern-based filter: it flags content that
// looks like it contains a secret or private key as critical, and
// all-caps "URGENT"-style spam framing as a low-severity note.
type Default struct{}

var secretPattern = regexp.MustCompile(`(?i)(private[_ ]?key|seed[_ ]?phrase|sk-[a-zA-Z0-9]{10,}|api[_ ]?key\s*[:=])`)

// NewDefault creates the default content filter.
func NewDefault() Default { return Default{} }

// ScanOutbound implements Filter.
func (Default) ScanOutbound(ctx context.Context, text, destination string) (Result, error) {
	var threats []Threat

	if secretPattern.MatchString(text) {
		threats = append(threats, Threat{Severity: SeverityCritical, Description: "content resembles a secret or private key"})
	}

	if upperRatio(text) > 0.6 && len(text) > 20 {
		threats = append(threats, Threat{Severity: SeverityLow, Description: "content is mostly uppercase"})
	}

	return Result{Clean: len(threats) == 0, Threats: threats}, nil
}

func upperRatio(s string) float64 {
	var letters, upper int
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			letters++
		} else if r >= 'A' && r <= 'Z' {
			letters++
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// HasSeverity reports whether any threat in r matches sev.
func (r Result) HasSeverity(sev Severity) bool {
	for _, t := range r.Threats {
		if t.Severity == sev {
			return true
		}
	}
	return false
}

// String renders threats for logging.
func (r Result) String() string {
	if r.Clean {
		return "clean"
	}
	descs := make([]string, 0, len(r.Threats))
	for _, t := range r.Threats {
		descs = append(descs, string(t.Severity)+": "+t.Description)
	}
	return strings.Join(descs, "; ")
}
