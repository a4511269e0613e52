package scheduler

import (
	"context"
	"fmt"
	"time"

	"food-market/db"

	"github.com/google/uuid"
)

// PGBackend is the default job-execution backend: jobs live in the
// scheduled_jobs table and any worker process picks them up when due.
type PGBackend struct{}

func NewPGBackend() *PGBackend {
	return &PGBackend{}
}

func (b *PGBackend) Schedule(ctx context.Context, kind string, payload []byte, at time.Time) (string, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	id := uuid.NewString()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO scheduled_jobs (id, kind, payload, run_at, status)
		VALUES ($1, $2, $3::jsonb, $4, 'scheduled')`,
		id, kind, string(payload), at,
	)
	if err != nil {
		return "", fmt.Errorf("schedule job: %w", err)
	}
	return id, nil
}

// Cancel marks a still-scheduled job cancelled. Jobs already running, done or
// missing are left alone; that is a successful cancel from the caller's view.
func (b *PGBackend) Cancel(ctx context.Context, jobID string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE scheduled_jobs SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'scheduled'`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return nil
}
