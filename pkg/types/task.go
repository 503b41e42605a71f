package types

import (
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusIdle         TaskStatus = "IDLE"
	StatusPlanning     TaskStatus = "PLANNING"
	StatusModelCheck   TaskStatus = "MODEL_CHECK"
	StatusSandboxSetup TaskStatus = "SANDBOX_SETUP"
	StatusObserve      TaskStatus = "OBSERVE"
	StatusAct          TaskStatus = "ACT"
	StatusVerify       TaskStatus = "VERIFY"
	StatusDone         TaskStatus = "DONE"
	StatusFailed       TaskStatus = "FAILED"
)

// Terminal reports whether the status ends a task's lifecycle.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// LogLevel is the severity of a task log entry.
type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

// LogEntry is one append-only line in a task's log. Entries are never
// mutated after creation.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Message   string    `json:"message"`
	Level     LogLevel  `json:"level"`
}

// EventType tags a broadcast frame as a state transition or a log line.
type EventType string

const (
	EventLog   EventType = "log"
	EventState EventType = "state"
)

// Event is one frame on the subscriber stream. Data is a LogEntry for
// log events and a StatePayload for state events.
type Event struct {
	TaskID string      `json:"task_id"`
	Type   EventType   `json:"type"`
	Data   interface{} `json:"data"`
}

// StatePayload is the data of a state event.
type StatePayload struct {
	Status TaskStatus `json:"status"`
}

// ActionResult is the outcome of executing one step. Driver-level
// failures are reported in-band (Status "error" with Err set) so the
// lifecycle loop can route them through verification and re-planning.
type ActionResult struct {
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Content string `json:"content,omitempty"`
	Err     string `json:"error,omitempty"`
}

// OK reports whether the action completed without a driver error.
func (r ActionResult) OK() bool {
	return r.Status == "success"
}

// VerifyResult is the verifier's judgement on one expectation.
type VerifyResult struct {
	Verified bool   `json:"verified"`
	Details  string `json:"details"`
}

// SecurityStatus is the outcome of screening a plan.
type SecurityStatus string

const (
	SecuritySafe    SecurityStatus = "SAFE"
	SecurityBlocked SecurityStatus = "BLOCKED"
)

// SecurityVerdict is the result of the two-stage security screen.
type SecurityVerdict struct {
	Status SecurityStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`
}

// Blocked reports whether the plan was rejected.
func (v SecurityVerdict) Blocked() bool {
	return v.Status == SecurityBlocked
}

// ResearchSummary is the model's synthesis of browsed page content.
type ResearchSummary struct {
	Summary         string   `json:"summary"`
	KeyFindings     []string `json:"key_findings"`
	SourcesAnalyzed int      `json:"sources_analyzed"`
}
