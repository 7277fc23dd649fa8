// Package supervisor implements NOVA's routing layer: it consumes worker
// messages off the bus, cooldown-gates and deduplicates outbound
// publication, scans content before it leaves the swarm, spawns and tears
// down per-token child agents, and emits periodic digests.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wisbric/nova/internal/telemetry"
	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/contentfilter"
	"github.com/wisbric/nova/pkg/messaging"
)

// maxRecentFingerprints bounds the narrative-dedup set; the oldest entry
// is evicted on overflow.
const maxRecentFingerprints = 20

// ChildSpawner starts a new per-token child agent keyed by mint address.
// It returns a stop function the supervisor calls on teardown.
type ChildSpawner func(ctx context.Context, mintAddress, symbol string) (stop func(), err error)

// Config holds the Supervisor's tunables, all sourced from NOVA's
// environment configuration.
type Config struct {
	PollInterval      time.Duration
	BatchSize         int
	BriefingInterval  time.Duration
	NarrativeCooldown time.Duration
}

// Supervisor is the routing agent addressed as "nova-supervisor" on the
// bus.
type Supervisor struct {
	*agent.Runtime

	cfg       Config
	providers *messaging.Registry
	filter    contentfilter.Filter
	spawn     ChildSpawner

	mu                  sync.Mutex
	messagesProcessed   int
	lastBriefingAt      time.Time
	lastNarrativePostAt time.Time
	recentFingerprints  []string
	children            map[string]func() // mint address -> stop func

	recentIntel []intelEntry

	portfolioStats func(context.Context) (string, error)

	rdb          *redis.Client
	cycleChannel string
}

// SetPortfolioSource wires an optional callback the briefing loop uses to
// fold a live one-line PnL/stats summary into each digest. Its absence
// (or a failing call) just omits the portfolio line.
func (s *Supervisor) SetPortfolioSource(fn func(context.Context) (string, error)) {
	s.portfolioStats = fn
}

// SetCycleEvents wires the optional Redis subscription on which the CFO
// announces completed decision cycles, so the next briefing reflects them
// without waiting on a bus poll. Must be called before Start.
func (s *Supervisor) SetCycleEvents(rdb *redis.Client, channel string) {
	s.rdb = rdb
	s.cycleChannel = channel
}

type intelEntry struct {
	From      string
	Priority  bus.Priority
	Summary   string
	CreatedAt time.Time
}

// persistedState is the schemaless blob round-tripped through
// agent.Runtime.SaveState/RestoreState across restarts.
type persistedState struct {
	MessagesProcessed   int       `json:"messagesProcessed"`
	LastBriefingAt      time.Time `json:"lastBriefingAt"`
	LastNarrativePostAt time.Time `json:"lastNarrativePostAt"`
	RecentFingerprints  []string  `json:"recentXPostHashes"`
}

// New creates a Supervisor.
func New(rt *agent.Runtime, cfg Config, providers *messaging.Registry, filter contentfilter.Filter, spawn ChildSpawner) *Supervisor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Supervisor{
		Runtime:   rt,
		cfg:       cfg,
		providers: providers,
		filter:    filter,
		spawn:     spawn,
		children:  make(map[string]func()),
	}
}

// Start restores persisted state and begins the poll and briefing loops.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.Runtime.Start(ctx); err != nil {
		return err
	}

	var saved persistedState
	if err := s.RestoreState(ctx, &saved); err != nil {
		s.Logger.Warn("restoring supervisor state", "error", err)
	} else {
		s.messagesProcessed = saved.MessagesProcessed
		s.lastBriefingAt = saved.LastBriefingAt
		s.lastNarrativePostAt = saved.LastNarrativePostAt
		s.recentFingerprints = saved.RecentFingerprints
	}

	s.StartHeartbeat(30*time.Second, func() (agent.Status, string) { return agent.StatusAlive, "routing" })
	s.AddInterval(s.cfg.PollInterval, s.pollOnce)
	s.AddInterval(s.cfg.BriefingInterval, s.briefOnce)
	if s.rdb != nil && s.cycleChannel != "" {
		s.AddTask(s.listenCycleEvents)
	}
	return nil
}

// listenCycleEvents consumes the CFO's cycle-complete announcements off
// Redis pub/sub and records each as briefing intel. The subscription is
// best-effort: a dropped connection just means the next briefing leans on
// the bus-delivered "cfo_cycle" report alone.
func (s *Supervisor) listenCycleEvents(ctx context.Context) {
	sub := s.rdb.Subscribe(ctx, s.cycleChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev struct {
				TraceID       string `json:"traceId"`
				DecisionCount int    `json:"decisionCount"`
				Failures      int    `json:"failures"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.Logger.Debug("decoding cycle event", "error", err)
				continue
			}
			priority := bus.PriorityLow
			if ev.Failures > 0 {
				priority = bus.PriorityHigh
			}
			s.recordIntel("nova-cfo", priority, fmt.Sprintf("decision cycle %s: %d decision(s), %d failure(s)", ev.TraceID, ev.DecisionCount, ev.Failures))
		}
	}
}

// Stop concurrently tears down every spawned child before stopping the
// runtime itself.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	children := s.children
	s.children = make(map[string]func())
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, stop := range children {
		wg.Add(1)
		go func(stop func()) {
			defer wg.Done()
			stop()
		}(stop)
	}
	wg.Wait()

	s.Runtime.Stop()
}

func (s *Supervisor) pollOnce(ctx context.Context) {
	msgs := s.ReadMessages(ctx, s.cfg.BatchSize)
	if len(msgs) == 0 {
		return
	}

	for _, msg := range msgs {
		s.dispatchSafely(ctx, msg)
		s.AcknowledgeMessage(ctx, msg.ID)
	}

	s.mu.Lock()
	s.messagesProcessed += len(msgs)
	s.mu.Unlock()

	s.persist(ctx)
}

// dispatchSafely recovers a panicking handler so one poisoned message
// cannot block the rest of the batch; the message is still acknowledged
// by the caller.
func (s *Supervisor) dispatchSafely(ctx context.Context, msg bus.Message) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.HandlerPanicsTotal.WithLabelValues(msg.From, msg.Type).Inc()
			s.Logger.Error("handler panicked", "from", msg.From, "type", msg.Type, "panic", r)
		}
	}()
	s.dispatch(ctx, msg)
}

func (s *Supervisor) persist(ctx context.Context) {
	s.mu.Lock()
	state := persistedState{
		MessagesProcessed:   s.messagesProcessed,
		LastBriefingAt:      s.lastBriefingAt,
		LastNarrativePostAt: s.lastNarrativePostAt,
		RecentFingerprints:  s.recentFingerprints,
	}
	s.mu.Unlock()

	if err := s.SaveState(ctx, state); err != nil {
		s.Logger.Warn("persisting supervisor state", "error", err)
	}
}

// decodePayload unmarshals a message's opaque payload into dst, logging
// and returning false on malformed input rather than failing the batch.
func (s *Supervisor) decodePayload(msg bus.Message, dst any) bool {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		s.Logger.Debug("decoding payload", "from", msg.From, "type", msg.Type, "error", err)
		return false
	}
	return true
}

func (s *Supervisor) recordIntel(from string, priority bus.Priority, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentIntel = append(s.recentIntel, intelEntry{From: from, Priority: priority, Summary: summary, CreatedAt: time.Now()})
	if len(s.recentIntel) > 200 {
		s.recentIntel = s.recentIntel[len(s.recentIntel)-200:]
	}
}

// publishNarrative fans a narrative out to every registered provider, logging
// per-provider failures without aborting the others.
func (s *Supervisor) publishNarrative(ctx context.Context, msg messaging.NarrativeMessage) {
	for _, p := range s.providers.All() {
		if err := p.PostNarrative(ctx, msg); err != nil {
			s.Logger.Error("posting narrative", "provider", p.Name(), "error", err)
		}
	}
}

func (s *Supervisor) publishAlert(ctx context.Context, msg messaging.AlertMessage) {
	for _, p := range s.providers.All() {
		if err := p.PostAlert(ctx, msg); err != nil {
			s.Logger.Error("posting alert", "provider", p.Name(), "error", err)
		}
	}
}

func (s *Supervisor) publishBriefing(ctx context.Context, msg messaging.BriefingMessage) {
	for _, p := range s.providers.All() {
		if err := p.PostBriefing(ctx, msg); err != nil {
			s.Logger.Error("posting briefing", "provider", p.Name(), "error", err)
		}
	}
}

func (s *Supervisor) publishAdmin(ctx context.Context, msg messaging.AdminMessage) {
	for _, p := range s.providers.All() {
		if err := p.PostToAdmin(ctx, msg); err != nil {
			s.Logger.Error("posting admin message", "provider", p.Name(), "error", err)
		}
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func floatField(m map[string]any, key string) float64 {
	v, _ := m[key].(float64)
	return v
}
