package scheduler

import (
	"context"
	"log"
	"time"

	"food-market/db"

	"golang.org/x/sync/errgroup"
)

// Handler executes one fired job. Firing is at-least-once, so handlers must
// re-check the state they act on (e.g. a recovery check re-reads receivable
// status) and tolerate duplicates.
type Handler func(ctx context.Context, payload []byte) error

const claimBatchSize = 20

// Worker polls scheduled_jobs and dispatches due jobs to registered handlers.
type Worker struct {
	poll        time.Duration
	maxParallel int
	handlers    map[string]Handler
	onFired     func(jobID string)
}

func NewWorker(poll time.Duration, maxParallel int) *Worker {
	if poll <= 0 {
		poll = 15 * time.Second
	}
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &Worker{
		poll:        poll,
		maxParallel: maxParallel,
		handlers:    make(map[string]Handler),
	}
}

// Handle registers the handler for a job kind. Register everything before
// calling Run.
func (w *Worker) Handle(kind string, h Handler) {
	w.handlers[kind] = h
}

// OnFired registers a callback invoked with the job id after a claimed job
// reaches a terminal state. The scheduler uses it to drop the job's action
// from its in-memory table. Set before calling Run.
func (w *Worker) OnFired(fn func(jobID string)) {
	w.onFired = fn
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.runDue(ctx); err != nil {
				log.Printf("worker: %v", err)
			}
		}
	}
}

type claimedJob struct {
	ID      string
	Kind    string
	Payload []byte
}

// runDue atomically claims a batch of due jobs and dispatches them. The
// scheduled->running guard plus SKIP LOCKED means two workers never run the
// same job.
func (w *Worker) runDue(ctx context.Context) error {
	rows, err := db.Pool.Query(ctx, `
		UPDATE scheduled_jobs SET status = 'running', attempts = attempts + 1, updated_at = now()
		WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE status = 'scheduled' AND run_at <= now()
			ORDER BY run_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload`,
		claimBatchSize,
	)
	if err != nil {
		return err
	}
	var jobs []claimedJob
	for rows.Next() {
		var j claimedJob
		if err := rows.Scan(&j.ID, &j.Kind, &j.Payload); err != nil {
			rows.Close()
			return err
		}
		jobs = append(jobs, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxParallel)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			w.dispatch(gctx, j)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) dispatch(ctx context.Context, j claimedJob) {
	h, ok := w.handlers[j.Kind]
	if !ok {
		w.finish(ctx, j.ID, "failed", "no handler for kind "+j.Kind)
		return
	}
	if err := h(ctx, j.Payload); err != nil {
		log.Printf("worker: job %s (%s): %v", j.ID, j.Kind, err)
		w.finish(ctx, j.ID, "failed", err.Error())
		return
	}
	w.finish(ctx, j.ID, "done", "")
}

// finish records the job's terminal state and reports it to the onFired hook,
// so a scheduler in this process can drop its bookkeeping for the job.
func (w *Worker) finish(ctx context.Context, jobID, status, lastError string) {
	_, err := db.Pool.Exec(ctx, `
		UPDATE scheduled_jobs SET status = $2, last_error = NULLIF($3, ''), updated_at = now()
		WHERE id = $1 AND status = 'running'`,
		jobID, status, lastError,
	)
	if err != nil {
		log.Printf("worker: finish job %s: %v", jobID, err)
	}
	if w.onFired != nil {
		w.onFired(jobID)
	}
}
