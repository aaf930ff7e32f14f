package background

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrConfiguration marks a misconfigured trigger. It is fatal: callers stop
// the trigger instead of retrying.
var ErrConfiguration = errors.New("background trigger misconfigured")

// Handler runs one wake-up. It must call Finish(taskID) before returning.
type Handler func(ctx context.Context, taskID string)

// Trigger delivers periodic wake-ups to a handler, the way a mobile OS
// schedules background fetches.
type Trigger interface {
	Configure(period time.Duration, persistAcrossRestart bool, handler Handler) error
	Start() error
	Stop() error
	Finish(taskID string) error
	PersistsAcrossRestart() bool
}

// CronTrigger implements Trigger on top of a gocron scheduler.
type CronTrigger struct {
	ctx       context.Context
	scheduler gocron.Scheduler
	clock     clockwork.Clock

	mu      sync.Mutex
	period  time.Duration
	persist bool
	handler Handler
	job     gocron.Job
	pending map[string]time.Time
	err     error
}

// NewCronTrigger creates and starts the underlying scheduler. Wake-ups are
// only delivered after Configure and Start.
func NewCronTrigger(ctx context.Context, clock clockwork.Clock) (*CronTrigger, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.Start()

	return &CronTrigger{
		ctx:       ctx,
		scheduler: s,
		clock:     clock,
		pending:   make(map[string]time.Time),
	}, nil
}

// Configure sets the wake-up period and handler. It must be called before
// Start and cannot be changed while the trigger is running.
func (t *CronTrigger) Configure(period time.Duration, persistAcrossRestart bool, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("%w: handler is required", ErrConfiguration)
	}
	if period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %s", ErrConfiguration, period)
	}
	if t.job != nil {
		return fmt.Errorf("%w: cannot reconfigure a running trigger", ErrConfiguration)
	}
	t.period = period
	t.persist = persistAcrossRestart
	t.handler = handler
	t.err = nil
	return nil
}

// Start arms the periodic job. Starting a running trigger is a no-op.
func (t *CronTrigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler == nil {
		return fmt.Errorf("%w: Start called before Configure", ErrConfiguration)
	}
	if t.err != nil {
		return t.err
	}
	if t.job != nil {
		return nil
	}

	job, err := t.scheduler.NewJob(
		gocron.DurationJob(t.period),
		gocron.NewTask(t.fire),
		gocron.WithName("background-fetch"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create background fetch job: %w", err)
	}
	t.job = job
	log.Printf("Background fetch armed every %s", t.period)
	return nil
}

// Stop disarms the periodic job. Stopping an idle trigger is a no-op.
func (t *CronTrigger) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

func (t *CronTrigger) stopLocked() error {
	if t.job == nil {
		return nil
	}
	id := t.job.ID()
	t.job = nil
	if err := t.scheduler.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		return fmt.Errorf("failed to remove background fetch job: %w", err)
	}
	log.Println("Background fetch disarmed")
	return nil
}

// Finish acknowledges a wake-up so its resources can be reclaimed.
func (t *CronTrigger) Finish(taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[taskID]; !ok {
		return fmt.Errorf("%w: unknown task %q", ErrConfiguration, taskID)
	}
	delete(t.pending, taskID)
	return nil
}

// PersistsAcrossRestart reports whether the trigger should be re-armed when
// the process restarts with tracking still active.
func (t *CronTrigger) PersistsAcrossRestart() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.persist
}

// Running reports whether the periodic job is armed.
func (t *CronTrigger) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job != nil
}

// Err returns the fatal error that disarmed the trigger, if any.
func (t *CronTrigger) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Shutdown stops the underlying scheduler.
func (t *CronTrigger) Shutdown() error {
	return t.scheduler.Shutdown()
}

// fire runs one wake-up. A handler that returns without calling Finish
// disarms the trigger for good.
func (t *CronTrigger) fire() {
	taskID := uuid.NewString()

	t.mu.Lock()
	handler := t.handler
	t.pending[taskID] = t.clock.Now()
	t.mu.Unlock()

	log.Printf("Background fetch task %s started", taskID)
	handler(t.ctx, taskID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, unfinished := t.pending[taskID]; !unfinished {
		return
	}
	delete(t.pending, taskID)
	t.err = fmt.Errorf("%w: task %s returned without Finish", ErrConfiguration, taskID)
	log.Printf("Fatal: %v. Background fetch will not be retried.", t.err)
	if err := t.stopLocked(); err != nil {
		log.Printf("Error disarming background fetch: %v", err)
	}
}
