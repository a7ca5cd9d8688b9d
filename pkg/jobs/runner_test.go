package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitForState(t *testing.T, r *Runner, id string, want State) Status {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, ok := r.Poll(id)
		if !ok {
			t.Fatalf("job %s unknown to runner", id)
		}
		if st.State == want {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	st, _ := r.Poll(id)
	t.Fatalf("job %s never reached state %s, last state %s", id, want, st.State)
	return Status{}
}

func TestDispatchAndComplete(t *testing.T) {
	r := NewRunner(2, 10, time.Minute)
	r.Start()
	defer r.Stop()

	id, err := r.Dispatch(func(ctx context.Context, report func(current, total int)) error {
		report(3, 10)
		return nil
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	st := waitForState(t, r, id, StateDone)
	if st.Current != 3 || st.Total != 10 {
		t.Errorf("progress = (%d, %d), want (3, 10)", st.Current, st.Total)
	}
	if st.Err != nil {
		t.Errorf("unexpected error: %v", st.Err)
	}
}

func TestFailedJobKeepsError(t *testing.T) {
	r := NewRunner(1, 10, time.Minute)
	r.Start()
	defer r.Stop()

	wantErr := errors.New("boom")
	id, err := r.Dispatch(func(ctx context.Context, report func(current, total int)) error {
		return wantErr
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	st := waitForState(t, r, id, StateFailed)
	if !errors.Is(st.Err, wantErr) {
		t.Errorf("error = %v, want %v", st.Err, wantErr)
	}
}

func TestPollUnknownID(t *testing.T) {
	r := NewRunner(1, 10, time.Minute)
	r.Start()
	defer r.Stop()

	if _, ok := r.Poll("nonexistent"); ok {
		t.Error("expected Poll to miss for unknown job ID")
	}
	if r.IsLive("nonexistent") {
		t.Error("unknown job ID should not be live")
	}
}

func TestIsLive(t *testing.T) {
	r := NewRunner(1, 10, time.Minute)
	r.Start()
	defer r.Stop()

	release := make(chan struct{})
	id, err := r.Dispatch(func(ctx context.Context, report func(current, total int)) error {
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	waitForState(t, r, id, StateRunning)
	if !r.IsLive(id) {
		t.Error("running job should be live")
	}

	close(release)
	waitForState(t, r, id, StateDone)
	if r.IsLive(id) {
		t.Error("done job should not be live")
	}
}

func TestTerminalStatusEvictedAfterRetention(t *testing.T) {
	r := NewRunner(1, 10, 20*time.Millisecond)
	r.Start()
	defer r.Stop()

	id, err := r.Dispatch(func(ctx context.Context, report func(current, total int)) error {
		return nil
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	// Within the retention window the finished job is still pollable.
	waitForState(t, r, id, StateDone)

	time.Sleep(40 * time.Millisecond)

	// Dispatch sweeps expired terminal entries.
	if _, err := r.Dispatch(func(ctx context.Context, report func(current, total int)) error {
		return nil
	}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if _, ok := r.Poll(id); ok {
		t.Error("expected terminal status to be evicted after retention window")
	}
}

func TestQueueFull(t *testing.T) {
	r := NewRunner(1, 1, time.Minute)
	r.Start()
	defer r.Stop()

	release := make(chan struct{})
	defer close(release)

	blocker := func(ctx context.Context, report func(current, total int)) error {
		<-release
		return nil
	}

	// First job occupies the worker, second fills the queue.
	if _, err := r.Dispatch(blocker); err != nil {
		t.Fatalf("dispatch 1 failed: %v", err)
	}

	// The worker may not have picked up the first job yet, so fill until
	// the queue rejects.
	var sawFull bool
	for i := 0; i < 3; i++ {
		if _, err := r.Dispatch(blocker); errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
	}
	if !sawFull {
		t.Error("expected ErrQueueFull once queue and worker were saturated")
	}
}
