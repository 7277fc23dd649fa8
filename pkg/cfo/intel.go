package cfo

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/wisbric/nova/pkg/bus"
)

// intelWindow is how far back the consult step reads bus history.
const intelWindow = 4 * time.Hour

var bullishLexicon = []string{"rally", "pump", "bullish", "surge", "breakout", "moon", "accumulate"}
var bearishLexicon = []string{"crash", "dump", "bearish", "selloff", "liquidation", "capitulation", "plunge"}

// classifySentiment infers a bullish/bearish lean from keyword counts
// over a small lexicon when the Scout's own explicit flag is absent.
// Moved here (rather than into pkg/worker/scout.go) because inferring
// from free-text summary is the CFO's own intel-classification job, not
// the Scout's production contract.
func classifySentiment(summary string) (bullish, bearish bool) {
	lower := strings.ToLower(summary)
	bullCount, bearCount := 0, 0
	for _, w := range bullishLexicon {
		if strings.Contains(lower, w) {
			bullCount++
		}
	}
	for _, w := range bearishLexicon {
		if strings.Contains(lower, w) {
			bearCount++
		}
	}
	return bullCount > bearCount, bearCount > bullCount
}

// consultIntel reads bus messages addressed to the CFO or the supervisor
// from the last intelWindow and classifies the freshest message per (sender, kind)
// category into an IntelSummary.
func (e *Engine) consultIntel(ctx context.Context) IntelSummary {
	summary := IntelSummary{RiskMultiplier: 1.0, MarketCondition: ConditionNeutral}

	msgs, err := e.bus.Since(ctx, time.Now().Add(-intelWindow))
	if err != nil {
		e.logger.Warn("consulting swarm intel", "error", err)
		return summary
	}

	var latestScout, latestGuardian, latestAnalystDefi, latestAnalystAlert *bus.Message
	for i := range msgs {
		m := &msgs[i]
		if m.To != "nova-cfo" && m.To != "nova-supervisor" {
			continue
		}
		switch {
		case m.From == "nova-scout" && m.Type == "intel":
			if latestScout == nil || m.CreatedAt.After(latestScout.CreatedAt) {
				latestScout = m
			}
		case m.From == "nova-guardian" && m.Type == "alert":
			if latestGuardian == nil || m.CreatedAt.After(latestGuardian.CreatedAt) {
				latestGuardian = m
			}
			summary.GuardianAlertUSD++
		case m.From == "nova-analyst" && m.Type == "intel":
			if latestAnalystDefi == nil || m.CreatedAt.After(latestAnalystDefi.CreatedAt) {
				latestAnalystDefi = m
			}
		case m.From == "nova-analyst" && m.Type == "alert":
			if latestAnalystAlert == nil || m.CreatedAt.After(latestAnalystAlert.CreatedAt) {
				latestAnalystAlert = m
			}
		}
	}

	if latestScout != nil {
		var p map[string]any
		if json.Unmarshal(latestScout.Payload, &p) == nil {
			summary.ScoutFresh = time.Since(latestScout.CreatedAt) < intelWindow
			if v, ok := p["cryptoBullish"].(bool); ok {
				summary.ScoutBullish = v
			} else if s, ok := p["summary"].(string); ok {
				bullish, _ := classifySentiment(s)
				summary.ScoutBullish = bullish
			}
		}
	}

	if latestGuardian != nil {
		var p map[string]any
		if json.Unmarshal(latestGuardian.Payload, &p) == nil {
			if latestGuardian.Priority == bus.PriorityCritical {
				summary.GuardianCritical = true
			}
			if cmd, _ := p["command"].(string); cmd == "market_crash" {
				summary.GuardianCritical = true
			}
		}
	}

	if latestAnalystDefi != nil {
		var p map[string]any
		if json.Unmarshal(latestAnalystDefi.Payload, &p) == nil {
			if v, ok := p["depositedUsd"].(float64); ok {
				summary.TVLUsd = v
			}
		}
	}

	if latestAnalystAlert != nil {
		var p map[string]any
		if json.Unmarshal(latestAnalystAlert.Payload, &p) == nil {
			if v, _ := p["volumeSpike"].(bool); v {
				summary.VolumeSpikeFresh = time.Since(latestAnalystAlert.CreatedAt) < 2*time.Hour
			}
			if s, ok := p["symbol"].(string); ok {
				summary.PriceMovers = append(summary.PriceMovers, s)
			}
		}
	}

	summary.RiskMultiplier = riskComposite(summary)
	summary.MarketCondition = marketCondition(summary)
	return summary
}

// riskComposite computes the intel-derived risk multiplier, clamped to
// [0.5, 2.0].
func riskComposite(s IntelSummary) float64 {
	m := 1.0
	if s.ScoutFresh && s.ScoutBullish {
		m -= 0.2
	} else if s.ScoutFresh && !s.ScoutBullish {
		m += 0.3
	}
	if s.GuardianCritical {
		m += 0.5
	} else if s.GuardianAlertUSD > 0 {
		m += 0.2
	}
	if s.VolumeSpikeFresh {
		m += 0.15
	}
	if m < 0.5 {
		m = 0.5
	}
	if m > 2.0 {
		m = 2.0
	}
	return m
}

func marketCondition(s IntelSummary) MarketCondition {
	switch {
	case s.GuardianCritical:
		return ConditionDanger
	case s.RiskMultiplier >= 1.3:
		return ConditionBearish
	case s.RiskMultiplier <= 0.7:
		return ConditionBullish
	default:
		return ConditionNeutral
	}
}
