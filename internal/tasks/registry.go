// Package tasks is the task registry: the single point of mutation for
// task records and the broadcast hub streaming state and log events to
// subscribers.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/pkg/metrics"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// ErrTaskNotFound is returned for lookups of unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// Snapshot is a point-in-time copy of one task record, shaped for the
// state endpoint. CreatedAt is excluded from the wire form.
type Snapshot struct {
	ID        string           `json:"id"`
	Status    types.TaskStatus `json:"status"`
	Goal      string           `json:"goal"`
	Plan      types.Plan       `json:"plan"`
	Logs      []types.LogEntry `json:"logs"`
	CreatedAt time.Time        `json:"-"`
}

type record struct {
	id        string
	goal      string
	status    types.TaskStatus
	plan      types.Plan
	logs      []types.LogEntry
	createdAt time.Time
	cancel    context.CancelFunc
}

// Registry maps task ids to records and fans events out to
// subscribers. Record mutations and subscriber set mutations are
// guarded by separate locks so a slow broadcast can never block a
// state read.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*record

	subMu   sync.Mutex
	subs    map[chan types.Event]struct{}
	backlog int

	metrics *metrics.Metrics
	log     *logrus.Logger
}

// NewRegistry builds an empty registry. backlog is the per-subscriber
// queue depth before a non-reading subscriber is dropped.
func NewRegistry(backlog int, m *metrics.Metrics, log *logrus.Logger) *Registry {
	if backlog <= 0 {
		backlog = 64
	}
	return &Registry{
		tasks:   make(map[string]*record),
		subs:    make(map[chan types.Event]struct{}),
		backlog: backlog,
		metrics: m,
		log:     log,
	}
}

// Create allocates a record in IDLE and returns its id.
func (r *Registry) Create(goal string) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.tasks[id] = &record{
		id:        id,
		goal:      goal,
		status:    types.StatusIdle,
		createdAt: time.Now(),
	}
	r.mu.Unlock()
	return id
}

// SetCancel binds the cancellation handle for a task's worker.
func (r *Registry) SetCancel(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	if rec, ok := r.tasks[id]; ok {
		rec.cancel = cancel
	}
	r.mu.Unlock()
}

// Cancel requests cancellation of a running task.
func (r *Registry) Cancel(id string) error {
	r.mu.RLock()
	rec, ok := r.tasks[id]
	var cancel context.CancelFunc
	if ok {
		cancel = rec.cancel
	}
	r.mu.RUnlock()

	if !ok {
		return ErrTaskNotFound
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Get returns a snapshot of one task.
func (r *Registry) Get(id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tasks[id]
	if !ok {
		return Snapshot{}, ErrTaskNotFound
	}
	return snapshotLocked(rec), nil
}

// Tasks returns snapshots of every known task.
func (r *Registry) Tasks() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.tasks))
	for _, rec := range r.tasks {
		out = append(out, snapshotLocked(rec))
	}
	return out
}

func snapshotLocked(rec *record) Snapshot {
	plan := make(types.Plan, len(rec.plan))
	copy(plan, rec.plan)
	logs := make([]types.LogEntry, len(rec.logs))
	copy(logs, rec.logs)
	return Snapshot{
		ID:        rec.id,
		Status:    rec.status,
		Goal:      rec.goal,
		Plan:      plan,
		Logs:      logs,
		CreatedAt: rec.createdAt,
	}
}

// SetStatus records a transition and broadcasts the state event.
// Mutations after a terminal status are dropped so the terminal event
// stays last.
func (r *Registry) SetStatus(id string, status types.TaskStatus) {
	r.mu.Lock()
	rec, ok := r.tasks[id]
	if !ok || rec.status.Terminal() {
		r.mu.Unlock()
		return
	}
	rec.status = status
	r.mu.Unlock()

	r.broadcast(types.Event{
		TaskID: id,
		Type:   types.EventState,
		Data:   types.StatePayload{Status: status},
	})
}

// AppendLog appends an entry to the task's log and broadcasts it. The
// append happens before the broadcast so a snapshot taken after
// delivery always contains the entry.
func (r *Registry) AppendLog(id, agent, message string, level types.LogLevel) {
	entry := types.LogEntry{
		Timestamp: time.Now(),
		Agent:     agent,
		Message:   message,
		Level:     level,
	}

	r.mu.Lock()
	rec, ok := r.tasks[id]
	if !ok || rec.status.Terminal() {
		r.mu.Unlock()
		return
	}
	rec.logs = append(rec.logs, entry)
	r.mu.Unlock()

	r.broadcast(types.Event{TaskID: id, Type: types.EventLog, Data: entry})
}

// ReplacePlan swaps the task's plan atomically.
func (r *Registry) ReplacePlan(id string, plan types.Plan) {
	r.mu.Lock()
	if rec, ok := r.tasks[id]; ok {
		rec.plan = plan
	}
	r.mu.Unlock()
}

// Subscribe attaches a new event subscriber. The returned function
// detaches it; calling it after the subscriber was dropped for not
// reading is safe.
func (r *Registry) Subscribe() (<-chan types.Event, func()) {
	ch := make(chan types.Event, r.backlog)

	r.subMu.Lock()
	r.subs[ch] = struct{}{}
	r.subMu.Unlock()

	unsubscribe := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// broadcast delivers ev to every subscriber without blocking. A
// subscriber whose queue is full is closed and removed; the lifecycle
// worker never waits on a slow consumer.
func (r *Registry) broadcast(ev types.Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- ev:
		default:
			delete(r.subs, ch)
			close(ch)
			if r.metrics != nil {
				r.metrics.SubscriberDrops.Inc()
			}
			r.log.WithField("component", "tasks").Warn("dropped slow subscriber")
		}
	}
}
