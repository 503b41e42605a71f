package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/internal/history"
	"github.com/Shivay00001/RemotePilot/internal/tasks"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// errAborted marks a task stopped by the daemon-wide abort switch. It
// surfaces to subscribers the same way cancellation does.
var errAborted = errors.New("abort requested")

// run drives one task to a terminal state and then persists the
// outcome. Memory, history and audit failures are logged, never
// propagated.
func (e *Engine) run(ctx context.Context, id, goal string) {
	log := e.log.WithFields(logrus.Fields{"component": "lifecycle", "task_id": id})
	log.Infof("starting task: %s", goal)

	if e.metrics != nil {
		e.metrics.ActiveTasks.Inc()
		defer e.metrics.ActiveTasks.Dec()
	}
	e.auditEvent("task_submitted", map[string]interface{}{"task_id": id, "goal": goal})

	err := e.drive(ctx, id, goal)

	snap, snapErr := e.registry.Get(id)
	if snapErr != nil {
		log.Errorf("task record vanished: %v", snapErr)
		return
	}

	if err == nil {
		log.Info("task done")
		if e.metrics != nil {
			e.metrics.TasksTotal.WithLabelValues(string(types.StatusDone)).Inc()
		}
		e.auditEvent("task_completed", map[string]interface{}{"task_id": id, "goal": goal, "steps": len(snap.Plan)})
		e.persist(id, goal, snap, types.StatusDone, "")
		return
	}

	reason := failureReason(err)
	log.Warnf("task failed: %s", reason)

	e.registry.AppendLog(id, "Monitor", fmt.Sprintf("CRITICAL: %s", reason), types.LevelError)
	e.registry.SetStatus(id, types.StatusFailed)

	if e.metrics != nil {
		e.metrics.TasksTotal.WithLabelValues(string(types.StatusFailed)).Inc()
	}
	e.auditEvent("task_failed", map[string]interface{}{"task_id": id, "goal": goal, "reason": reason})
	e.persist(id, goal, snap, types.StatusFailed, reason)
}

// drive is the state machine proper. A nil return means the task
// reached DONE and the terminal event is already broadcast; an error
// return leaves the terminal FAILED transition to the caller.
func (e *Engine) drive(ctx context.Context, id, goal string) error {
	// PLANNING
	e.registry.SetStatus(id, types.StatusPlanning)
	plan, err := e.plan(ctx, goal)
	if err != nil {
		return fmt.Errorf("Planning failed: %w", err)
	}
	e.registry.ReplacePlan(id, plan)

	if verdict := e.screen(ctx, plan); verdict.Blocked() {
		return fmt.Errorf("Security Alert: %s", verdict.Reason)
	}
	e.registry.AppendLog(id, "Planner", fmt.Sprintf("Generated & Secured %d steps.", len(plan)), types.LevelInfo)

	// MODEL_CHECK and SANDBOX_SETUP are observable transitions with no
	// gating behavior yet.
	e.registry.SetStatus(id, types.StatusModelCheck)
	e.registry.SetStatus(id, types.StatusSandboxSetup)

	var researchFragments []string
	stepIndex := 0
	retryCount := 0

	for stepIndex < len(plan) {
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		step := plan[stepIndex]

		// ACT
		e.registry.SetStatus(id, types.StatusAct)
		actionRes := e.act(ctx, step)
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		if actionRes.Content != "" {
			researchFragments = append(researchFragments, actionRes.Content)
		}
		e.registry.AppendLog(id, "Action", fmt.Sprintf("Step %d: %s", stepIndex+1, actionDetail(actionRes)), types.LevelInfo)

		// VERIFY
		e.registry.SetStatus(id, types.StatusVerify)
		verifyRes, verifyErr := e.verify(ctx, step)
		if verifyErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Verifier errors count as a failed verification.
			verifyRes = types.VerifyResult{Verified: false, Details: verifyErr.Error()}
		}

		if verifyRes.Verified {
			stepIndex++
			retryCount = 0
			continue
		}

		// SELF-CORRECTION
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		if retryCount >= e.maxReplans {
			return errors.New("max re-plans exceeded")
		}
		retryCount++
		if e.metrics != nil {
			e.metrics.ReplansTotal.Inc()
		}

		e.registry.SetStatus(id, types.StatusPlanning)
		e.registry.AppendLog(id, "Monitor", fmt.Sprintf("Verification FAILED. Triggering Re-Plan (Attempt %d).", retryCount), types.LevelWarning)

		visionContext := e.describeScreen(ctx)
		details := verifyRes.Details
		if details == "" {
			details = "Visual mismatch"
		}
		newPlan, err := e.replan(ctx, goal, step, details, visionContext)
		if err != nil {
			return fmt.Errorf("Self-correction failed: %w", err)
		}
		plan = newPlan
		e.registry.ReplacePlan(id, plan)
		stepIndex = 0

		if verdict := e.screen(ctx, plan); verdict.Blocked() {
			return fmt.Errorf("Security Alert: %s", verdict.Reason)
		}
		e.registry.AppendLog(id, "Planner", "Pivot successful. New plan generated.", types.LevelInfo)
	}

	// RESEARCH SYNTHESIS
	if len(researchFragments) > 0 {
		e.registry.AppendLog(id, "Research", e.synthesize(ctx, goal, researchFragments), types.LevelInfo)
	}

	e.registry.SetStatus(id, types.StatusDone)
	return nil
}

// checkpoint surfaces cancellation and the daemon abort switch between
// collaborator calls.
func (e *Engine) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.abort != nil && e.abort.AbortRequested() {
		return errAborted
	}
	return nil
}

func (e *Engine) plan(ctx context.Context, goal string) (types.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, e.planTimeout)
	defer cancel()
	return e.planner.Plan(ctx, goal)
}

func (e *Engine) replan(ctx context.Context, goal string, failed types.Step, errDetail, visionContext string) (types.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, e.planTimeout)
	defer cancel()
	return e.planner.RePlan(ctx, goal, failed, errDetail, visionContext)
}

func (e *Engine) screen(ctx context.Context, plan types.Plan) types.SecurityVerdict {
	verdict := e.security.Screen(ctx, plan)
	if verdict.Blocked() && e.metrics != nil {
		e.metrics.SecurityBlocks.Inc()
	}
	if verdict.Blocked() {
		e.auditEvent("security_blocked", map[string]interface{}{"reason": verdict.Reason})
	}
	return verdict
}

func (e *Engine) act(ctx context.Context, step types.Step) types.ActionResult {
	ctx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	return e.action.Execute(ctx, step)
}

func (e *Engine) verify(ctx context.Context, step types.Step) (types.VerifyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	return e.verifier.Verify(ctx, fmt.Sprintf("Goal state after action: %s", step.Tag()))
}

// describeScreen fetches the current screen description for re-plan
// context. Failures yield an empty context rather than failing the
// task.
func (e *Engine) describeScreen(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	desc, err := e.vision.Analyze(ctx, "Describe detailed UI state")
	if err != nil {
		e.log.WithField("component", "lifecycle").Debugf("vision context unavailable: %v", err)
		return ""
	}
	return desc
}

// synthesize asks the research collaborator for a summary of gathered
// page content. Failures degrade to a fixed line; they never fail the
// task.
func (e *Engine) synthesize(ctx context.Context, goal string, pages []string) string {
	if e.research == nil {
		return "Synthesis done."
	}
	ctx, cancel := context.WithTimeout(ctx, e.planTimeout)
	defer cancel()
	summary, err := e.research.Synthesize(ctx, goal, pages)
	if err != nil || summary.Summary == "" {
		if err != nil {
			e.log.WithField("component", "lifecycle").Warnf("research synthesis failed: %v", err)
		}
		return "Synthesis done."
	}
	return summary.Summary
}

// persist writes the terminal outcome to semantic memory (successes
// only) and the history store. Both writes run on a fresh context: the
// task context is already cancelled on the CANCELLED path.
func (e *Engine) persist(id, goal string, snap tasks.Snapshot, status types.TaskStatus, reason string) {
	ctx := context.Background()

	if status == types.StatusDone && e.memory != nil {
		if err := e.memory.Add(ctx, goal, snap.Plan); err != nil {
			e.log.WithField("component", "lifecycle").Warnf("memory store failed: %v", err)
		}
	}

	if e.history != nil {
		entry := history.Entry{
			ID:         id,
			Goal:       goal,
			Status:     string(status),
			Plan:       snap.Plan,
			Error:      reason,
			CreatedAt:  snap.CreatedAt,
			FinishedAt: time.Now(),
		}
		if err := e.history.Save(ctx, entry); err != nil {
			e.log.WithField("component", "lifecycle").Warnf("history store failed: %v", err)
		}
	}
}

func (e *Engine) auditEvent(event string, details map[string]interface{}) {
	if e.audit != nil {
		e.audit.LogEvent(event, details)
	}
}

// actionDetail picks the log line for an action result: the detail
// when present, the error otherwise.
func actionDetail(res types.ActionResult) string {
	if res.Detail != "" {
		return res.Detail
	}
	if res.Err != "" {
		return res.Err
	}
	return "Executed"
}

// failureReason renders the terminal reason string. Cancellation and
// operator abort both surface as CANCELLED.
func failureReason(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, errAborted) {
		return "CANCELLED"
	}
	return err.Error()
}
