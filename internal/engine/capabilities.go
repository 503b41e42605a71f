package engine

import (
	"context"

	"github.com/Shivay00001/RemotePilot/internal/history"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// The lifecycle engine drives its collaborators through these narrow
// capabilities. Production wiring uses the implementations in
// internal/agents; tests substitute scripted fakes.

// Planner produces an initial plan and replacement plans after a
// failed step.
type Planner interface {
	Plan(ctx context.Context, goal string) (types.Plan, error)
	RePlan(ctx context.Context, goal string, failed types.Step, errDetail, visionContext string) (types.Plan, error)
}

// Actor executes one step and reports the outcome in-band.
type Actor interface {
	Execute(ctx context.Context, step types.Step) types.ActionResult
}

// Verifier decides whether an expectation holds on-screen.
type Verifier interface {
	Verify(ctx context.Context, expectation string) (types.VerifyResult, error)
}

// Screener applies the safety screen to a plan.
type Screener interface {
	Screen(ctx context.Context, plan types.Plan) types.SecurityVerdict
}

// Vision describes the current screen for re-planning context.
type Vision interface {
	Analyze(ctx context.Context, instruction string) (string, error)
}

// Researcher condenses browsed page content into a summary.
type Researcher interface {
	Synthesize(ctx context.Context, topic string, pages []string) (types.ResearchSummary, error)
}

// Memory records successful (goal, plan) pairs for future retrieval.
type Memory interface {
	Add(ctx context.Context, goal string, plan types.Plan) error
}

// HistoryWriter persists one row per terminal task.
type HistoryWriter interface {
	Save(ctx context.Context, entry history.Entry) error
}

// AuditSink records structured audit events.
type AuditSink interface {
	LogEvent(event string, details map[string]interface{})
}

// AbortChecker reports whether the daemon-wide abort switch is armed.
type AbortChecker interface {
	AbortRequested() bool
}
