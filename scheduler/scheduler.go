// Package scheduler manages the request/cancel boundary for time-delayed
// actions. Durability and retry of the firing itself belong to the backend:
// the process that schedules an action may not be the process that executes
// it, so callers never block on execution and fired handlers must be
// idempotent against duplicate firing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable: the job backend could not be reached. Callers retry with
// backoff; a missed cancel is safe because fired handlers are idempotent.
var ErrUnavailable = errors.New("scheduler backend unavailable")

const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusFired     = "fired"
)

// Backend is the external job-execution collaborator. Firing is
// at-least-once.
type Backend interface {
	Schedule(ctx context.Context, kind string, payload []byte, at time.Time) (jobID string, err error)
	Cancel(ctx context.Context, jobID string) error
}

// Action is one scheduled request as this process knows it. Not persisted;
// the backend owns the durable job.
type Action struct {
	ID     string
	JobID  string
	Kind   string
	At     time.Time
	Status string
}

// Scheduler tracks only live (still-scheduled) actions; entries are pruned
// once an action reaches a terminal state, so the table stays bounded by the
// number of actions in flight.
type Scheduler struct {
	backend Backend

	mu      sync.Mutex
	actions map[string]*Action
	byJob   map[string]string // backend job id -> action id
}

func New(backend Backend) *Scheduler {
	return &Scheduler{
		backend: backend,
		actions: make(map[string]*Action),
		byJob:   make(map[string]string),
	}
}

// Schedule asks the backend to fire the action at the given time and returns
// an opaque action id with the confirmed execution time.
func (s *Scheduler) Schedule(ctx context.Context, kind string, payload []byte, at time.Time) (Action, error) {
	jobID, err := s.backend.Schedule(ctx, kind, payload, at)
	if err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	a := &Action{
		ID:     uuid.NewString(),
		JobID:  jobID,
		Kind:   kind,
		At:     at,
		Status: StatusScheduled,
	}
	s.mu.Lock()
	s.actions[a.ID] = a
	s.byJob[a.JobID] = a.ID
	s.mu.Unlock()
	return *a, nil
}

// Cancel is idempotent: cancelling an already-fired, already-cancelled or
// unknown action is a no-op, never an error. Only a reachable-backend failure
// while a live cancel is still needed surfaces, as ErrUnavailable.
func (s *Scheduler) Cancel(ctx context.Context, actionID string) error {
	s.mu.Lock()
	a, ok := s.actions[actionID]
	if !ok || a.Status != StatusScheduled {
		s.mu.Unlock()
		return nil
	}
	jobID := a.JobID
	s.mu.Unlock()

	if err := s.backend.Cancel(ctx, jobID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.mu.Lock()
	a.Status = StatusCancelled
	s.prune(a)
	s.mu.Unlock()
	return nil
}

// MarkFired records that the action's job executed and drops the entry. A
// firing that raced a cancel is covered by the handler's idempotency.
func (s *Scheduler) MarkFired(actionID string) {
	s.mu.Lock()
	if a, ok := s.actions[actionID]; ok {
		a.Status = StatusFired
		s.prune(a)
	}
	s.mu.Unlock()
}

// MarkFiredJob is MarkFired keyed by the backend's job id; the worker reports
// completions with the job id, not the action id.
func (s *Scheduler) MarkFiredJob(jobID string) {
	s.mu.Lock()
	if actionID, ok := s.byJob[jobID]; ok {
		if a, ok := s.actions[actionID]; ok {
			a.Status = StatusFired
			s.prune(a)
		}
	}
	s.mu.Unlock()
}

// prune removes a terminal action from both indexes. Caller holds mu.
func (s *Scheduler) prune(a *Action) {
	delete(s.actions, a.ID)
	delete(s.byJob, a.JobID)
}

// Lookup returns a copy of the action if it is still scheduled in this
// process. Fired and cancelled actions are pruned and report not-found.
func (s *Scheduler) Lookup(actionID string) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[actionID]
	if !ok {
		return Action{}, false
	}
	return *a, true
}

// Pending reports how many actions are still scheduled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}
