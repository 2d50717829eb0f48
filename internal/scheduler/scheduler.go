// Package scheduler runs the SDK's periodic jobs: configuration polling,
// tracking flushes and visitor store purges.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type job struct {
	name     string
	interval time.Duration
	run      func(context.Context)
}

// Scheduler owns a set of named periodic jobs sharing one lifecycle. Jobs
// are registered before Start; Stop cancels them and waits for running
// invocations to return.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	jobs    []job
	cancel  context.CancelFunc
	started bool

	wg sync.WaitGroup
}

// New returns an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Schedule registers a periodic job. Jobs registered after Start are
// ignored.
func (s *Scheduler) Schedule(name string, interval time.Duration, run func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Warn("job scheduled after start is ignored", slog.String("job", name))
		return
	}
	s.jobs = append(s.jobs, job{name: name, interval: interval, run: run})
}

// Start launches one goroutine per registered job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, j)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	defer s.wg.Done()
	s.logger.Debug("job started", slog.String("job", j.name), slog.Duration("interval", j.interval))
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("job stopping", slog.String("job", j.name))
			return
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

// Stop cancels all jobs and waits for running invocations to return.
// The scheduler cannot be restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
