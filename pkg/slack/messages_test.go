package slack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wisbric/nova/pkg/messaging"
)

func TestNarrativeBlocks_NonEmpty(t *testing.T) {
	blocks := NarrativeBlocks(messaging.NarrativeMessage{
		Topic:     "Agent swarms trending on Solana",
		Summary:   "Several agent-driven tokens saw volume spikes overnight.",
		Source:    "scout",
		CreatedAt: time.Now(),
	})
	assert.Len(t, blocks, 3)
}

func TestAlertBlocks_IncludesDescription(t *testing.T) {
	blocks := AlertBlocks(messaging.AlertMessage{
		Title:       "Stop-loss triggered",
		Severity:    "critical",
		Description: "HL position closed at -26% PnL.",
		Source:      "guardian",
	})
	assert.GreaterOrEqual(t, len(blocks), 3)
}

func TestAlertBlocks_OmitsEmptyDescription(t *testing.T) {
	blocks := AlertBlocks(messaging.AlertMessage{Title: "ping", Severity: "low", Source: "analyst"})
	assert.Len(t, blocks, 2)
}

func TestBriefingBlocks_IncludesKeyIntel(t *testing.T) {
	now := time.Now()
	blocks := BriefingBlocks(messaging.BriefingMessage{
		WindowStart:    now.Add(-4 * time.Hour),
		WindowEnd:      now,
		KeyIntel:       []string{"Liquidation cascade on majors", "New LP pool launched"},
		RoutineSummary: "12 routine updates processed",
		PortfolioLine:  "Treasury: $128,400 (+2.1% 24h)",
	})
	assert.Len(t, blocks, 5)
}

func TestAdminBlocks_IncludesKindContext(t *testing.T) {
	blocks := AdminBlocks(messaging.AdminMessage{
		Title:   "Approval needed",
		Body:    "Hedge $4,200 notional at 3x leverage.",
		Kind:    "approval_request",
		Urgency: "high",
	})
	assert.Len(t, blocks, 3)
}
