package cfo

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/nova/internal/config"
	"github.com/wisbric/nova/internal/telemetry"
	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/collab"
	"github.com/wisbric/nova/pkg/learning"
)

// CycleCompleteChannel is the Redis pub/sub channel the CFO publishes to
// once a decision cycle finishes, so other processes (the supervisor, in
// the current swarm topology) can react without polling the bus.
const CycleCompleteChannel = "nova:decision_cycle:complete"

// cycleCompleteEvent is the JSON payload published on CycleCompleteChannel.
type cycleCompleteEvent struct {
	TraceID       string `json:"traceId"`
	DecisionCount int    `json:"decisionCount"`
	Failures      int    `json:"failures"`
}

// Engine is NOVA's autonomous decision engine, addressed as "nova-cfo" on
// the bus. It runs one gather→consult→assess→decide→execute→report cycle
// per DecisionIntervalMin, guarded against overlap by a non-blocking
// re-entrancy flag.
type Engine struct {
	*agent.Runtime

	cfg      *config.Config
	learning *learning.Engine

	wallet     collab.Wallet
	market     collab.MarketData
	perp       collab.PerpVenue
	prediction collab.PredictionVenue
	staking    collab.Staking
	lending    collab.Lending
	lpVenues   []collab.LPVenue
	bridge     collab.Bridge

	logger *slog.Logger
	bus    *bus.Bus
	rdb    *redis.Client

	running   atomic.Bool
	enabled   atomic.Bool
	cooldowns *cooldowns
	approvals *approvalQueue

	lastResults []DecisionResult
}

// Dependencies bundles every external collaborator the engine is wired
// against. Concrete venue integrations are out of scope per spec; nil
// fields are simply skipped by the gather step and their rule blocks.
type Dependencies struct {
	Wallet     collab.Wallet
	Market     collab.MarketData
	Perp       collab.PerpVenue
	Prediction collab.PredictionVenue
	Staking    collab.Staking
	Lending    collab.Lending
	LPVenues   []collab.LPVenue
	Bridge     collab.Bridge
}

// New creates the decision engine. rdb may be nil, in which case the
// cooldown cache runs in-process only and no cycle-complete event is
// published.
func New(rt *agent.Runtime, cfg *config.Config, learningEngine *learning.Engine, deps Dependencies, rdb *redis.Client) *Engine {
	e := &Engine{
		Runtime:    rt,
		cfg:        cfg,
		learning:   learningEngine,
		wallet:     deps.Wallet,
		market:     deps.Market,
		perp:       deps.Perp,
		prediction: deps.Prediction,
		staking:    deps.Staking,
		lending:    deps.Lending,
		lpVenues:   deps.LPVenues,
		bridge:     deps.Bridge,
		logger:     rt.Logger,
		bus:        rt.Bus,
		rdb:        rdb,
		cooldowns:  newCooldowns(rdb, rt.Logger),
		approvals:  newApprovalQueueTTL(time.Duration(cfg.ApprovalExpiryMin) * time.Minute),
	}
	e.enabled.Store(true)
	return e
}

// Start begins the CFO's periodic decision cycle, command handling, and
// approval sweeper.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Runtime.Start(ctx); err != nil {
		return err
	}

	e.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "idle" })

	if e.cfg.AutoDecisions {
		e.AddInterval(time.Duration(e.cfg.DecisionIntervalMin)*time.Minute, func(cycleCtx context.Context) {
			if e.enabled.Load() {
				e.RunCycle(cycleCtx)
			}
		})
	}
	e.AddInterval(5*time.Second, e.pollCommands)
	e.AddInterval(2*time.Minute, func(context.Context) { e.approvals.sweepExpired() })

	return nil
}

// PortfolioLine returns a one-line PnL/stats summary for the supervisor's
// briefing digest, built from a fresh gather of the portfolio state.
func (e *Engine) PortfolioLine(ctx context.Context) (string, error) {
	state := e.gatherPortfolio(ctx)
	return portfolioLine(state), nil
}

// RunCycle executes one full decision cycle. Overlapping invocations are
// dropped, not queued.
func (e *Engine) RunCycle(ctx context.Context) []DecisionResult {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Debug("cycle already in progress, skipping")
		return nil
	}
	defer e.running.Store(false)

	started := time.Now()
	defer func() { telemetry.DecisionCycleDuration.Observe(time.Since(started).Seconds()) }()

	traceID := uuid.NewString()
	e.logger.Info("decision cycle starting", "traceId", traceID)

	if e.learning != nil {
		e.learning.RefreshAll(ctx)
	}

	portfolio := e.gatherPortfolio(ctx)
	intel := e.consultIntel(ctx)
	telemetry.RiskMultiplierGauge.Set(intel.RiskMultiplier)

	candidates := e.generateCandidates(ctx, portfolio, intel)
	candidates = capDecisions(candidates, e.cfg.MaxDecisionsPerCycle)

	results := make([]DecisionResult, 0, len(candidates))
	for i, d := range candidates {
		if i > 0 {
			time.Sleep(2 * time.Second)
		}
		results = append(results, e.dispatch(ctx, traceID, d))
	}

	e.lastResults = results
	e.reportCycle(ctx, traceID, portfolio, intel, results)
	e.publishCycleComplete(ctx, traceID, results)
	return results
}

// publishCycleComplete notifies any subscribed process that a decision
// cycle finished, mirroring the teacher's escalation engine publishing to
// Redis after processing an alert. A nil client or publish error is
// logged and swallowed: the supervisor's own bus poll still picks up the
// "cfo_cycle" report this function's caller already sent.
func (e *Engine) publishCycleComplete(ctx context.Context, traceID string, results []DecisionResult) {
	if e.rdb == nil {
		return
	}

	failures := 0
	for _, r := range results {
		if !r.Success {
			failures++
		}
	}

	payload, err := json.Marshal(cycleCompleteEvent{TraceID: traceID, DecisionCount: len(results), Failures: failures})
	if err != nil {
		e.logger.Warn("marshaling cycle-complete event", "error", err)
		return
	}
	if err := e.rdb.Publish(ctx, CycleCompleteChannel, payload).Err(); err != nil {
		e.logger.Warn("publishing cycle-complete event", "error", err)
	}
}

// capDecisions sorts by urgency and keeps the top max.
func capDecisions(decisions []Decision, max int) []Decision {
	sortByUrgency(decisions)
	if max <= 0 || len(decisions) <= max {
		return decisions
	}
	return decisions[:max]
}

func sortByUrgency(decisions []Decision) {
	for i := 1; i < len(decisions); i++ {
		for j := i; j > 0 && decisions[j].Urgency.rank() < decisions[j-1].Urgency.rank(); j-- {
			decisions[j], decisions[j-1] = decisions[j-1], decisions[j]
		}
	}
}

func portfolioLine(p PortfolioState) string {
	return formatPortfolioLine(p)
}
