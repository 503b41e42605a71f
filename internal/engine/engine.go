// Package engine is the task lifecycle engine: the state machine that
// drives a submitted goal from planning through safety screening,
// bounded retry execution with visual verification, to terminal
// success or failure, streaming every transition and log entry to
// subscribers along the way.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/internal/tasks"
	"github.com/Shivay00001/RemotePilot/pkg/metrics"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// Options collects the engine's collaborators and tuning knobs.
// Registry, Planner, Action, Verifier, Security and Vision are
// required; the rest may be nil to disable the concern.
type Options struct {
	Registry *tasks.Registry
	Planner  Planner
	Action   Actor
	Verifier Verifier
	Security Screener
	Vision   Vision
	Research Researcher
	Memory   Memory
	History  HistoryWriter
	Audit    AuditSink
	Abort    AbortChecker
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger

	MaxReplans        int
	PlanCallTimeout   time.Duration
	StepVerifyTimeout time.Duration
}

// Engine owns the lifecycle workers. One worker runs per submitted
// task; the engine itself is safe for concurrent use.
type Engine struct {
	registry *tasks.Registry
	planner  Planner
	action   Actor
	verifier Verifier
	security Screener
	vision   Vision
	research Researcher
	memory   Memory
	history  HistoryWriter
	audit    AuditSink
	abort    AbortChecker
	metrics  *metrics.Metrics
	log      *logrus.Logger

	maxReplans  int
	planTimeout time.Duration
	stepTimeout time.Duration

	wg sync.WaitGroup
}

// New validates the wiring and builds an engine.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Registry == nil:
		return nil, fmt.Errorf("engine: registry is required")
	case opts.Planner == nil:
		return nil, fmt.Errorf("engine: planner is required")
	case opts.Action == nil:
		return nil, fmt.Errorf("engine: action is required")
	case opts.Verifier == nil:
		return nil, fmt.Errorf("engine: verifier is required")
	case opts.Security == nil:
		return nil, fmt.Errorf("engine: security is required")
	case opts.Vision == nil:
		return nil, fmt.Errorf("engine: vision is required")
	case opts.Logger == nil:
		return nil, fmt.Errorf("engine: logger is required")
	}

	if opts.MaxReplans <= 0 {
		opts.MaxReplans = 10
	}
	if opts.PlanCallTimeout <= 0 {
		opts.PlanCallTimeout = 30 * time.Second
	}
	if opts.StepVerifyTimeout <= 0 {
		opts.StepVerifyTimeout = 30 * time.Second
	}

	return &Engine{
		registry:    opts.Registry,
		planner:     opts.Planner,
		action:      opts.Action,
		verifier:    opts.Verifier,
		security:    opts.Security,
		vision:      opts.Vision,
		research:    opts.Research,
		memory:      opts.Memory,
		history:     opts.History,
		audit:       opts.Audit,
		abort:       opts.Abort,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		maxReplans:  opts.MaxReplans,
		planTimeout: opts.PlanCallTimeout,
		stepTimeout: opts.StepVerifyTimeout,
	}, nil
}

// Submit registers a goal and starts its lifecycle worker. It returns
// the new task id immediately.
func (e *Engine) Submit(goal string) string {
	id := e.registry.Create(goal)
	ctx, cancel := context.WithCancel(context.Background())
	e.registry.SetCancel(id, cancel)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		e.run(ctx, id, goal)
	}()
	return id
}

// Get returns a snapshot of one task.
func (e *Engine) Get(id string) (tasks.Snapshot, error) {
	return e.registry.Get(id)
}

// Cancel requests cancellation of a running task. The task reaches
// FAILED with reason CANCELLED.
func (e *Engine) Cancel(id string) error {
	return e.registry.Cancel(id)
}

// Subscribe attaches an event subscriber; the returned function
// detaches it.
func (e *Engine) Subscribe() (<-chan types.Event, func()) {
	return e.registry.Subscribe()
}

// Shutdown cancels every running task and waits for the workers to
// reach their terminal states.
func (e *Engine) Shutdown() {
	for _, snap := range e.registry.Tasks() {
		if !snap.Status.Terminal() {
			_ = e.registry.Cancel(snap.ID)
		}
	}
	e.wg.Wait()
}
