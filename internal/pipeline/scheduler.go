package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Scheduler runs a task immediately and then on a fixed interval until it is
// stopped. Runs never overlap.
type Scheduler struct {
	interval time.Duration
	task     func(ctx context.Context)

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewScheduler creates a Scheduler.
func NewScheduler(interval time.Duration, task func(ctx context.Context)) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{interval: interval, task: task}
}

// Start begins running the task. Tasks receive a context derived from ctx
// that is only cancelled by ctx itself or a Stop whose deadline expires.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return eris.New("pipeline: scheduler already started")
	}
	s.started = true

	workCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(workCtx)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.task(ctx)
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// Prefer stopping over another run when both are ready.
		select {
		case <-s.stop:
			return
		default:
		}
	}
}

// Stop lets the running task finish and ends the loop. If ctx expires first
// the task's context is cancelled, the loop is awaited, and ctx's error is
// returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stop)
	done, cancel := s.done, s.cancel
	s.mu.Unlock()

	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return eris.Wrap(ctx.Err(), "pipeline: scheduler stop")
	}
}
