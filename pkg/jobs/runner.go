// Package jobs provides an in-process background job runner with a fixed
// worker pool and pollable job state.
package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State describes the lifecycle of a dispatched job.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Status is a point-in-time snapshot of a job.
type Status struct {
	ID      string
	State   State
	Current int
	Total   int
	Err     error
}

// Task is the unit of work a job executes. The report callback publishes
// progress visible through Poll.
type Task func(ctx context.Context, report func(current, total int)) error

// ErrQueueFull is returned by Dispatch when the job queue cannot accept
// more work.
var ErrQueueFull = errors.New("jobs: queue full")

type job struct {
	id   string
	task Task
}

type jobStatus struct {
	Status
	// doneAt is set when the job reaches a terminal state and drives
	// eviction of old entries.
	doneAt time.Time
}

// Runner executes tasks on a fixed pool of workers. Job state survives
// only as long as the process; a restart forgets all handles. Terminal
// statuses are kept for the retention window so callers can still poll
// a recently finished job, then evicted.
type Runner struct {
	queue       chan job
	workerCount int
	retention   time.Duration
	workerWg    sync.WaitGroup

	mu       sync.Mutex
	statuses map[string]*jobStatus
	started  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner creates a Runner with the given worker count, queue size and
// terminal-status retention.
func NewRunner(workerCount, queueSize int, retention time.Duration) *Runner {
	if workerCount <= 0 {
		workerCount = 3
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if retention <= 0 {
		retention = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		queue:       make(chan job, queueSize),
		workerCount: workerCount,
		retention:   retention,
		statuses:    make(map[string]*jobStatus),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the worker pool.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}

	for i := 0; i < r.workerCount; i++ {
		r.workerWg.Add(1)
		go r.worker(i)
	}
	r.started = true
	log.Printf("[JobRunner] Started %d workers", r.workerCount)
}

// Stop drains the queue and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	r.cancel()
	close(r.queue)
	r.workerWg.Wait()
	log.Println("[JobRunner] All workers stopped")
}

// Dispatch enqueues a task and returns its job ID.
func (r *Runner) Dispatch(task Task) (string, error) {
	id := uuid.New().String()

	r.mu.Lock()
	r.evictExpiredLocked()
	r.statuses[id] = &jobStatus{Status: Status{ID: id, State: StatePending}}
	r.mu.Unlock()

	select {
	case r.queue <- job{id: id, task: task}:
		return id, nil
	default:
		r.mu.Lock()
		delete(r.statuses, id)
		r.mu.Unlock()
		return "", ErrQueueFull
	}
}

// Poll returns the current status of a job. The second return value is
// false when the runner has no record of the ID.
func (r *Runner) Poll(id string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.statuses[id]
	if !ok {
		return Status{}, false
	}
	return st.Status, true
}

// IsLive reports whether a job ID is known and not yet terminal.
func (r *Runner) IsLive(id string) bool {
	st, ok := r.Poll(id)
	if !ok {
		return false
	}
	return st.State == StatePending || st.State == StateRunning
}

func (r *Runner) worker(id int) {
	defer r.workerWg.Done()

	for j := range r.queue {
		r.runJob(j)
	}

	log.Printf("[JobRunner] Worker %d stopped", id)
}

func (r *Runner) runJob(j job) {
	r.setState(j.id, StateRunning, nil)

	report := func(current, total int) {
		r.mu.Lock()
		if st, ok := r.statuses[j.id]; ok {
			st.Current = current
			st.Total = total
		}
		r.mu.Unlock()
	}

	err := j.task(r.ctx, report)
	if err != nil {
		log.Printf("[JobRunner] Job %s failed: %v", j.id, err)
		r.setState(j.id, StateFailed, err)
		return
	}

	r.setState(j.id, StateDone, nil)
}

func (r *Runner) setState(id string, state State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.statuses[id]; ok {
		st.State = state
		st.Err = err
		if state == StateDone || state == StateFailed {
			st.doneAt = time.Now()
		}
	}
}

// evictExpiredLocked drops terminal statuses older than the retention
// window. Callers must hold mu.
func (r *Runner) evictExpiredLocked() {
	cutoff := time.Now().Add(-r.retention)
	for id, st := range r.statuses {
		if (st.State == StateDone || st.State == StateFailed) && st.doneAt.Before(cutoff) {
			delete(r.statuses, id)
		}
	}
}
