package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is a unit of work the scheduler runs once.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler fires each registered task once after its delay. Tasks run on
// their own goroutine so they never hold up the foreground process.
type Scheduler struct {
	mu      sync.Mutex
	tasks   []*scheduledTask
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

type scheduledTask struct {
	task  Task
	delay time.Duration
	timer *time.Timer
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: []*scheduledTask{}}
}

// ScheduleTask registers task to run once, delay after Start.
func (s *Scheduler) ScheduleTask(task Task, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if delay < 0 {
		delay = 0
	}
	s.tasks = append(s.tasks, &scheduledTask{
		task:  task,
		delay: delay,
	})
}

// HasTasks reports whether any task was registered.
func (s *Scheduler) HasTasks() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks) > 0
}

// Start arms a timer per task. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, st := range s.tasks {
		s.wg.Add(1)
		st.timer = time.AfterFunc(st.delay, func() {
			defer s.wg.Done()
			if ctx.Err() != nil {
				return
			}
			log.Debug().Str("task", st.task.Name()).Msg("Running task")
			if err := st.task.Run(ctx); err != nil {
				log.Error().Err(err).Str("task", st.task.Name()).Msg("Error running task")
			}
		})
	}
}

// Stop cancels timers that have not fired yet and the context handed to
// running tasks. It does not wait; use Wait for that.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	for _, st := range s.tasks {
		if st.timer != nil && st.timer.Stop() {
			s.wg.Done()
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every fired task has returned and every pending timer
// has either fired or been stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
