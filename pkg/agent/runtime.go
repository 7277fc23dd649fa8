// Package agent provides the runtime contract every NOVA swarm member
// embeds: lifecycle management, heartbeats, message I/O against the bus,
// and persisted state round-tripping.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/nova/internal/db"
	"github.com/wisbric/nova/pkg/bus"
)

// Status is an agent's self-reported health.
type Status string

const (
	StatusAlive    Status = "alive"
	StatusDegraded Status = "degraded"
	StatusDead     Status = "dead"
	StatusDisabled Status = "disabled"
)

// Runtime is the embeddable lifecycle contract for a swarm agent. It is
// not safe for concurrent Start/Stop, but addInterval'd work and
// heartbeats run concurrently with the agent's own goroutines.
type Runtime struct {
	Name string
	Kind string

	Bus    *bus.Bus
	Queries *db.Queries
	Logger *slog.Logger

	mu        sync.Mutex
	started   bool
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	teardowns []func()
}

// NewRuntime creates a Runtime for an agent named name of the given kind.
func NewRuntime(name, kind string, b *bus.Bus, q *db.Queries, logger *slog.Logger) *Runtime {
	return &Runtime{
		Name:    name,
		Kind:    kind,
		Bus:     b,
		Queries: q,
		Logger:  logger.With("agent", name),
	}
}

// Start registers the agent's presence and marks it started. Starting an
// already-started runtime is a no-op.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.runCtx = runCtx
	r.cancel = cancel
	r.started = true

	if r.Queries != nil {
		if err := r.Queries.UpsertAgentRegistration(ctx, db.UpsertAgentRegistrationParams{Name: r.Name, Kind: r.Kind}); err != nil {
			r.Logger.Warn("registering agent", "error", err)
		}
	}

	r.Logger.Info("agent started")
	return nil
}

// Stop cancels every interval and heartbeat goroutine and waits for them
// to return. Stopping an already-stopped runtime is a no-op.
func (r *Runtime) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	teardowns := r.teardowns
	r.teardowns = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, td := range teardowns {
		td()
	}
	r.wg.Wait()

	if r.Queries != nil {
		ctx, cancelHB := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelHB()
		if err := r.Queries.UpsertHeartbeat(ctx, db.UpsertHeartbeatParams{
			AgentName: r.Name,
			Status:    string(StatusDisabled),
			Detail:    "stopped",
		}); err != nil {
			r.Logger.Warn("reporting terminal heartbeat", "error", err)
		}
	}
	r.Logger.Info("agent stopped")
}

// AddInterval runs fn every d until the runtime is stopped. The first run
// happens after one interval elapses, not immediately. Must be called
// after Start.
func (r *Runtime) AddInterval(d time.Duration, fn func(context.Context)) {
	r.mu.Lock()
	parent := r.runCtx
	if parent == nil {
		parent = context.Background()
	}
	intervalCtx, cancel := context.WithCancel(parent)
	r.teardowns = append(r.teardowns, cancel)
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-intervalCtx.Done():
				return
			case <-ticker.C:
				fn(intervalCtx)
			}
		}
	}()
}

// AddTask runs fn once in its own goroutine, passing it a context scoped
// to the runtime's lifetime. Unlike AddInterval, fn is expected to block
// until taskCtx is cancelled (e.g. a pub/sub subscriber loop) rather than
// return promptly; Stop still waits for it via the same wg/teardown
// machinery. Must be called after Start.
func (r *Runtime) AddTask(fn func(taskCtx context.Context)) {
	r.mu.Lock()
	parent := r.runCtx
	if parent == nil {
		parent = context.Background()
	}
	taskCtx, cancel := context.WithCancel(parent)
	r.teardowns = append(r.teardowns, cancel)
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(taskCtx)
	}()
}

// StartHeartbeat begins reporting this agent's status every d until the
// runtime is stopped.
func (r *Runtime) StartHeartbeat(d time.Duration, statusFn func() (Status, string)) {
	r.AddInterval(d, func(hbCtx context.Context) {
		status, detail := statusFn()
		if r.Queries == nil {
			return
		}
		if err := r.Queries.UpsertHeartbeat(hbCtx, db.UpsertHeartbeatParams{
			AgentName: r.Name,
			Status:    string(status),
			Detail:    detail,
		}); err != nil {
			r.Logger.Warn("reporting heartbeat", "error", err)
		}
	})
}

// SendMessage enqueues a message addressed to another agent. Failures are
// logged and swallowed: a dropped outbound message must never crash the
// sender.
func (r *Runtime) SendMessage(ctx context.Context, to, msgType string, priority bus.Priority, payload any) {
	if _, err := r.Bus.Send(ctx, bus.SendParams{From: r.Name, To: to, Type: msgType, Priority: priority, Payload: payload}); err != nil {
		r.Logger.Error("sending message", "to", to, "type", msgType, "error", err)
	}
}

// ReportToSupervisor is a convenience wrapper for the common case of
// SendMessage addressed to "nova-supervisor".
func (r *Runtime) ReportToSupervisor(ctx context.Context, msgType string, priority bus.Priority, payload any) {
	r.SendMessage(ctx, "nova-supervisor", msgType, priority, payload)
}

// ReadMessages polls the bus for this agent's next batch of deliverable
// messages. A poll failure is logged and returns an empty slice rather
// than an error, since message polling runs on a best-effort ticker.
func (r *Runtime) ReadMessages(ctx context.Context, limit int) []bus.Message {
	msgs, err := r.Bus.Poll(ctx, r.Name, limit)
	if err != nil {
		r.Logger.Error("polling messages", "error", err)
		return nil
	}
	return msgs
}

// AcknowledgeMessage marks a message delivered. Failures are logged, not
// returned: a missed ack just means the message is retried next poll.
func (r *Runtime) AcknowledgeMessage(ctx context.Context, id uuid.UUID) {
	if err := r.Bus.Acknowledge(ctx, id); err != nil {
		r.Logger.Error("acknowledging message", "id", id, "error", err)
	}
}

// SaveState persists an arbitrary JSON-serializable snapshot of the
// agent's in-memory state.
func (r *Runtime) SaveState(ctx context.Context, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if r.Queries == nil {
		return nil
	}
	if err := r.Queries.SaveAgentState(ctx, r.Name, data); err != nil {
		r.Logger.Error("saving state", "error", err)
		return err
	}
	return nil
}

// RestoreState loads the agent's last persisted state into out. A missing
// state row is not an error; out is left unchanged.
func (r *Runtime) RestoreState(ctx context.Context, out any) error {
	if r.Queries == nil {
		return nil
	}
	data, err := r.Queries.GetAgentState(ctx, r.Name)
	if err != nil {
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
