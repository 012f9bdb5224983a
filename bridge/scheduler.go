package bridge

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the worker count of the process-wide scheduler.
var DefaultWorkers = max(64, 4*runtime.GOMAXPROCS(0))

// Scheduler runs submitted tasks in the background with at most a fixed
// number executing at once. Results never flow back to the submitter.
type Scheduler struct {
	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var (
	defaultScheduler     *Scheduler
	defaultSchedulerOnce sync.Once
)

// DefaultScheduler returns the process-wide scheduler. It is created on
// first use and lives until the process exits.
func DefaultScheduler() *Scheduler {
	defaultSchedulerOnce.Do(func() {
		defaultScheduler = NewScheduler(DefaultWorkers)
	})
	return defaultScheduler
}

// NewScheduler returns a scheduler running up to workers tasks at once.
func NewScheduler(workers int) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sem:    semaphore.NewWeighted(int64(workers)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit queues task and returns immediately. The task receives the
// scheduler context, which is cancelled only when Close gives up waiting.
// Submitting to a closed scheduler is a programming error and panics with
// ErrSchedulerClosed.
func (s *Scheduler) Submit(task func(ctx context.Context)) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		panic(ErrSchedulerClosed)
	}
	s.wg.Add(1)
	s.mu.RUnlock()

	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			// Closing: run anyway so the task can report on its cancelled context.
			task(s.ctx)
			return
		}
		defer s.sem.Release(1)
		task(s.ctx)
	}()
}

// Closed reports whether Close was called.
func (s *Scheduler) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close stops accepting tasks and waits for queued and running ones. If ctx
// ends first the scheduler context is cancelled and Close still waits for
// the tasks to return, then reports ctx's error.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
