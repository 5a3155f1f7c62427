package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/tasklist/pkg/observability"
)

// JobFunc is one run of a background job
type JobFunc func(ctx context.Context)

// DefaultJobTimeout bounds a single job run
const DefaultJobTimeout = 30 * time.Second

// Scheduler runs named housekeeping jobs on cron schedules. A job that is
// still running when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *observability.Logger
	timeout time.Duration

	mu     sync.Mutex
	jobs   map[string]func()
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Schedules use the five-field cron format
// or descriptors such as "@every 30s".
func NewScheduler(logger *observability.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		logger:  logger.WithField("component", "maintenance"),
		timeout: timeout,
		jobs:    make(map[string]func()),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under name. An empty schedule leaves the job disabled.
func (s *Scheduler) Add(name, schedule string, job JobFunc) error {
	if schedule == "" {
		s.logger.WithField("job", name).Debug("job disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	run := s.wrap(name, job)
	if _, err := s.cron.AddFunc(schedule, run); err != nil {
		return fmt.Errorf("invalid schedule for job %q: %w", name, err)
	}
	s.jobs[name] = run

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": schedule,
	}).Info("job scheduled")
	return nil
}

func (s *Scheduler) wrap(name string, job JobFunc) func() {
	return func() {
		defer observability.RecoverPanic(s.logger, "maintenance job "+name)

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		start := time.Now()
		job(ctx)
		s.logger.WithFields(map[string]interface{}{
			"job":         name,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("job finished")
	}
}

// RunNow runs a registered job synchronously
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	run, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("job %q is not registered", name)
	}
	run()
	return nil
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling, cancels running jobs and waits for them to return
// or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("maintenance jobs did not stop: %w", ctx.Err())
	}
}
