package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeBackend records calls and can be told to fail.
type fakeBackend struct {
	scheduled []string // job ids handed out
	cancelled []string
	fail      bool
}

func (f *fakeBackend) Schedule(ctx context.Context, kind string, payload []byte, at time.Time) (string, error) {
	if f.fail {
		return "", errors.New("connection refused")
	}
	id := fmt.Sprintf("job-%d", len(f.scheduled)+1)
	f.scheduled = append(f.scheduled, id)
	return id, nil
}

func (f *fakeBackend) Cancel(ctx context.Context, jobID string) error {
	if f.fail {
		return errors.New("connection refused")
	}
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

func TestSchedule(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend)
	at := time.Now().Add(time.Hour)

	a, err := s.Schedule(context.Background(), "order_reminder", []byte(`{"order_id":1}`), at)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if a.ID == "" || a.JobID != "job-1" {
		t.Errorf("action = %+v, want non-empty id and backend job id", a)
	}
	if a.Status != StatusScheduled || !a.At.Equal(at) {
		t.Errorf("action = %+v, want scheduled at %v", a, at)
	}
	if got, ok := s.Lookup(a.ID); !ok || got.Status != StatusScheduled {
		t.Errorf("Lookup(%s) = %+v, %v", a.ID, got, ok)
	}
}

func TestSchedule_BackendDown(t *testing.T) {
	s := New(&fakeBackend{fail: true})
	_, err := s.Schedule(context.Background(), "order_reminder", nil, time.Now())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Schedule with backend down = %v, want ErrUnavailable", err)
	}
}

func TestCancelIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend)
	ctx := context.Background()

	a, err := s.Schedule(ctx, "order_reminder", nil, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Cancel(ctx, a.ID); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	if _, ok := s.Lookup(a.ID); ok {
		t.Error("cancelled action should be pruned from the table")
	}

	// Second cancel: no-op, no second backend call.
	if err := s.Cancel(ctx, a.ID); err != nil {
		t.Errorf("second Cancel: %v", err)
	}
	if len(backend.cancelled) != 1 {
		t.Errorf("backend cancelled %d times, want 1", len(backend.cancelled))
	}
}

func TestCancelAfterFired(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend)
	ctx := context.Background()

	a, err := s.Schedule(ctx, "order_reminder", nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	s.MarkFired(a.ID)

	if err := s.Cancel(ctx, a.ID); err != nil {
		t.Errorf("Cancel after fired = %v, want nil", err)
	}
	if len(backend.cancelled) != 0 {
		t.Error("fired action should not reach the backend on cancel")
	}
	if _, ok := s.Lookup(a.ID); ok {
		t.Error("fired action should be pruned from the table")
	}
}

func TestCancelUnknownAction(t *testing.T) {
	s := New(&fakeBackend{})
	if err := s.Cancel(context.Background(), "no-such-action"); err != nil {
		t.Errorf("Cancel of unknown action = %v, want nil", err)
	}
}

func TestCancel_BackendDown(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend)
	ctx := context.Background()

	a, err := s.Schedule(ctx, "order_reminder", nil, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	backend.fail = true
	err = s.Cancel(ctx, a.ID)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Cancel with backend down = %v, want ErrUnavailable for caller retry", err)
	}
	// Action stays scheduled so the retry actually retries.
	if got, _ := s.Lookup(a.ID); got.Status != StatusScheduled {
		t.Errorf("status after failed cancel = %s, want still scheduled", got.Status)
	}
}

func TestMarkFiredDoesNotReviveCancelled(t *testing.T) {
	s := New(&fakeBackend{})
	ctx := context.Background()

	a, _ := s.Schedule(ctx, "order_reminder", nil, time.Now())
	_ = s.Cancel(ctx, a.ID)
	s.MarkFired(a.ID) // firing raced the cancel

	if _, ok := s.Lookup(a.ID); ok {
		t.Error("action should stay pruned after the raced MarkFired")
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

// The action table holds live actions only: every terminal transition removes
// its entry, so a long-running process does not accumulate fired actions.
func TestTerminalActionsPruned(t *testing.T) {
	s := New(&fakeBackend{})
	ctx := context.Background()

	var jobIDs []string
	for i := 0; i < 5; i++ {
		a, err := s.Schedule(ctx, "order_reminder", nil, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		jobIDs = append(jobIDs, a.JobID)
	}
	cancelMe, err := s.Schedule(ctx, "recovery_check", nil, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Pending(); got != 6 {
		t.Fatalf("Pending() = %d, want 6", got)
	}

	// The worker reports completions by backend job id.
	for _, jobID := range jobIDs {
		s.MarkFiredJob(jobID)
	}
	if got := s.Pending(); got != 1 {
		t.Errorf("Pending() after firing = %d, want 1", got)
	}

	if err := s.Cancel(ctx, cancelMe.ID); err != nil {
		t.Fatal(err)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() after cancel = %d, want 0", got)
	}

	// Unknown job ids are ignored.
	s.MarkFiredJob("no-such-job")
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}
