// Package scheduler submits goals on cron schedules. Specs use the
// standard five fields: minute, hour, day-of-month, month,
// day-of-week.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Submitter starts a task for a goal. The engine's Submit satisfies it
// modulo the discarded task id.
type Submitter func(goal string)

// Job describes one registered schedule.
type Job struct {
	ID      string    `json:"job_id"`
	Goal    string    `json:"goal"`
	Cron    string    `json:"cron"`
	NextRun time.Time `json:"next_run"`
}

type entry struct {
	id   cron.EntryID
	goal string
	spec string
}

// Scheduler wraps a cron runner and tracks its jobs by external id.
type Scheduler struct {
	cron   *cron.Cron
	submit Submitter
	log    *logrus.Logger

	mu   sync.Mutex
	jobs map[string]entry
}

func New(submit Submitter, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		submit: submit,
		log:    log,
		jobs:   make(map[string]entry),
	}
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the runner; jobs already firing finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Schedule registers goal under a five-field cron spec and returns the
// job id.
func (s *Scheduler) Schedule(goal, spec string) (string, error) {
	if goal == "" || spec == "" {
		return "", fmt.Errorf("goal and cron are required")
	}

	id := s.nextID()
	entryID, err := s.cron.AddFunc(spec, func() {
		s.log.WithField("component", "scheduler").Infof("job %s fired: %s", id, goal)
		s.submit(goal)
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule job: %w", err)
	}

	s.mu.Lock()
	s.jobs[id] = entry{id: entryID, goal: goal, spec: spec}
	s.mu.Unlock()

	s.log.WithField("component", "scheduler").Infof("scheduled %s (%s): %s", id, spec, goal)
	return id, nil
}

// Jobs lists registered schedules with their next fire times.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for id, e := range s.jobs {
		out = append(out, Job{
			ID:      id,
			Goal:    e.goal,
			Cron:    e.spec,
			NextRun: s.cron.Entry(e.id).Next,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// nextID derives a job id from the clock, bumping on collision so two
// schedules registered in the same second stay distinct.
func (s *Scheduler) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := time.Now().Unix()
	for {
		id := fmt.Sprintf("job_%d", base)
		if _, exists := s.jobs[id]; !exists {
			return id
		}
		base++
	}
}
