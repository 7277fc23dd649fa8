package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/wisbric/nova/internal/telemetry"
)

// ledgerRetention is how long closed-position ledger rows outlive the
// largest retrospective window before the GC reclaims them.
const ledgerRetention = 180 * 24 * time.Hour

// GC periodically reclaims expired messages, prunes the audit trail
// beyond the configured retention window, and sweeps terminal heartbeats
// and aged ledger rows.
type GC struct {
	bus         *Bus
	logger      *slog.Logger
	interval    time.Duration
	auditWindow time.Duration
}

// NewGC creates a garbage collector for the bus.
func NewGC(b *Bus, logger *slog.Logger, interval, auditWindow time.Duration) *GC {
	return &GC{bus: b, logger: logger, interval: interval, auditWindow: auditWindow}
}

// Run starts the GC loop. It blocks until ctx is cancelled.
func (g *GC) Run(ctx context.Context) error {
	g.logger.Info("bus gc started", "interval", g.interval, "audit_window", g.auditWindow)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("bus gc stopped")
			return nil
		case <-ticker.C:
			if err := g.tick(ctx); err != nil {
				g.logger.Error("bus gc tick", "error", err)
			}
		}
	}
}

func (g *GC) tick(ctx context.Context) error {
	cutoff := time.Now().Add(-g.auditWindow)
	n, err := g.bus.q.DeleteExpiredMessages(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		g.logger.Info("bus gc reclaimed messages", "count", n)
		telemetry.MessagesExpiredTotal.Add(float64(n))
	}

	if n, err := g.bus.q.DeleteStaleHeartbeats(ctx, cutoff); err != nil {
		g.logger.Warn("bus gc sweeping heartbeats", "error", err)
	} else if n > 0 {
		g.logger.Info("bus gc swept stale heartbeats", "count", n)
	}

	if n, err := g.bus.q.PruneClosedPositions(ctx, time.Now().Add(-ledgerRetention)); err != nil {
		g.logger.Warn("bus gc pruning closed positions", "error", err)
	} else if n > 0 {
		g.logger.Info("bus gc pruned ledger rows", "count", n)
	}
	return nil
}
