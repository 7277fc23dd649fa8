// Package report formats NOVA's treasury state and decision outcomes into
// the human-readable text posted to the swarm's admin sink, kept separate
// from pkg/cfo so the formatting rules (number rounding, emoji markers,
// section ordering) can be tested without the decision engine's
// collaborator wiring.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Portfolio is the subset of gathered treasury state a digest formats.
type Portfolio struct {
	TotalUSD         float64
	IdleUSD          float64
	StakePositionUSD float64
	LendingDeposited float64
	LendingBorrowed  float64
	LendingHealth    float64
	PerpCount        int
	PerpNetUSD       float64
	PredictionCount  int
	LPCount          int
	GatheredAt       time.Time
}

// FormatPortfolioLine renders a one-line treasury summary for briefings.
func FormatPortfolioLine(p Portfolio) string {
	line := fmt.Sprintf("treasury $%s (idle $%s, staked $%s",
		money(p.TotalUSD), money(p.IdleUSD), money(p.StakePositionUSD))
	if p.LendingDeposited > 0 {
		line += fmt.Sprintf(", lending $%s/$%s @ %.2fx health", money(p.LendingDeposited), money(p.LendingBorrowed), p.LendingHealth)
	}
	if p.PerpCount > 0 {
		line += fmt.Sprintf(", %d hedge(s) net $%s", p.PerpCount, money(p.PerpNetUSD))
	}
	if p.PredictionCount > 0 {
		line += fmt.Sprintf(", %d prediction position(s)", p.PredictionCount)
	}
	if p.LPCount > 0 {
		line += fmt.Sprintf(", %d LP position(s)", p.LPCount)
	}
	line += ")"
	return line
}

// Outcome is one dispatched decision's result, as formatted in a cycle digest.
type Outcome struct {
	Type            string
	Description     string
	Executed        bool
	Success         bool
	TxID            string
	Error           string
	DryRun          bool
	PendingApproval bool
	ApprovalID      string
	ImpactUSD       float64
}

// CycleDigest is everything a single decision cycle's report needs.
type CycleDigest struct {
	TraceID         string
	MarketCondition string
	RiskMultiplier  float64
	Portfolio       Portfolio
	Outcomes        []Outcome
}

// FormatCycleDigest renders a full cycle's report: the portfolio line,
// the market read, and one line per decision outcome. Failures are
// marked with a leading cross so they stand out in a scroll of mostly-
// routine AUTO-tier executions.
func FormatCycleDigest(d CycleDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s — %s\n", d.TraceID, FormatPortfolioLine(d.Portfolio))
	fmt.Fprintf(&b, "market: %s (risk x%.2f)\n", d.MarketCondition, d.RiskMultiplier)

	if len(d.Outcomes) == 0 {
		b.WriteString("no decisions this cycle\n")
		return b.String()
	}

	for _, o := range d.Outcomes {
		b.WriteString(FormatOutcomeLine(o))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatOutcomeLine renders one decision outcome as a single line.
func FormatOutcomeLine(o Outcome) string {
	marker := "✅"
	switch {
	case o.PendingApproval:
		marker = "⏳"
	case !o.Success:
		marker = "❌"
	case o.DryRun:
		marker = "\U0001f9ea"
	}

	line := fmt.Sprintf("%s %s — %s ($%s)", marker, o.Type, o.Description, money(o.ImpactUSD))
	switch {
	case o.PendingApproval:
		line += fmt.Sprintf(" [awaiting approval %s]", o.ApprovalID)
	case !o.Success:
		line += fmt.Sprintf(" [failed: %s]", o.Error)
	case o.DryRun:
		line += " [dry-run, no action taken]"
	case o.TxID != "":
		line += fmt.Sprintf(" [tx %s]", o.TxID)
	}
	return line
}

// FormatLearningSummary renders one line per strategy's adaptive state,
// sorted by strategy name for stable output.
func FormatLearningSummary(params map[string]StrategyParam) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		p := params[k]
		fmt.Fprintf(&b, "%s: x%.2f (confidence %.0f%%, n=%d)\n", k, p.Multiplier, p.Confidence*100, p.SampleCount)
	}
	return b.String()
}

// StrategyParam is one strategy's learned multiplier, as reported.
type StrategyParam struct {
	Multiplier  float64
	Confidence  float64
	SampleCount int
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
