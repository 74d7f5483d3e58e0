// Package clock - scheduler.go implements the in-process cron-style
// trigger loop.
//
// Contract (from spec):
//   - Three job classes: collect (multiple times/day), decide_and_execute
//     (once/day), end_of_day (once/day).
//   - On misfire, coalesce: a job fires at most once per scheduled time,
//     even if the tick loop was delayed past it.
//   - At most one instance of a job runs concurrently; an overlapping
//     fire is skipped, not queued.
//   - Misfire grace window: 300 seconds. A scheduled time more than
//     300s in the past when first observed is treated as missed, not fired.
package clock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// MisfireGrace is the window after a scheduled fire time during which a
// late tick loop will still fire the job. Beyond this window the fire
// is considered missed for that day.
const MisfireGrace = 300 * time.Second

// JobType categorizes when a job is expected to run.
type JobType string

const (
	JobTypeCollect JobType = "collect"
	JobTypeDecide  JobType = "decide_and_execute"
	JobTypeEOD     JobType = "end_of_day"
)

// TimeOfDay is a wall-clock trigger time, "HH:MM" in the scheduler's timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("clock: invalid time %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("clock: time %q out of range", s)
	}
	return t, nil
}

// Job is a registered scheduled task.
type Job struct {
	Name     string
	Type     JobType
	Times    []TimeOfDay
	RunFunc  func(ctx context.Context) error

	mu         sync.Mutex
	running    bool
	firedDates map[string]map[TimeOfDay]bool // date -> time -> fired
}

func (j *Job) hasFired(date string, t TimeOfDay) bool {
	if j.firedDates == nil {
		return false
	}
	return j.firedDates[date][t]
}

func (j *Job) markFired(date string, t TimeOfDay) {
	if j.firedDates == nil {
		j.firedDates = map[string]map[TimeOfDay]bool{}
	}
	if j.firedDates[date] == nil {
		j.firedDates[date] = map[TimeOfDay]bool{}
	}
	j.firedDates[date][t] = true
}

// Scheduler fires registered jobs at their configured wall-clock times,
// Monday through Friday in the calendar's timezone, with coalescing and
// max-one-concurrent-instance semantics.
type Scheduler struct {
	calendar *Calendar
	logger   *log.Logger

	mu   sync.Mutex
	jobs []*Job
}

// New creates a scheduler bound to the given calendar.
func New(calendar *Calendar, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Scheduler{calendar: calendar, logger: logger}
}

// RegisterJob adds a job to the scheduler.
func (s *Scheduler) RegisterJob(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	s.logger.Printf("[scheduler] registered job: %s (type: %s)", job.Name, job.Type)
}

// Run blocks, ticking the scheduler loop until ctx is cancelled. On
// SIGINT/SIGTERM (propagated through ctx) no new job fires start. Run
// returns as soon as ctx is cancelled and does not wait for a job
// already running; that job's goroutine continues with the cancelled ctx.
func (s *Scheduler) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = 15 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	s.checkAndFire(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Println("[scheduler] shutting down, no new jobs will start")
			return
		case <-ticker.C:
			s.checkAndFire(ctx)
		}
	}
}

func (s *Scheduler) checkAndFire(ctx context.Context) {
	now := time.Now().In(s.calendar.Location())
	today := now.Format("2006-01-02")

	if !s.calendar.IsTradingDay(now) {
		return
	}

	s.mu.Lock()
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		for _, t := range job.Times {
			target := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, s.calendar.Location())
			due := !now.Before(target) && now.Sub(target) <= MisfireGrace

			job.mu.Lock()
			alreadyFired := job.hasFired(today, t)
			running := job.running
			if due && !alreadyFired && !running {
				job.running = true
				job.markFired(today, t)
			} else {
				due = false
			}
			job.mu.Unlock()

			if !due {
				continue
			}

			go s.fire(ctx, job)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, job *Job) {
	defer func() {
		job.mu.Lock()
		job.running = false
		job.mu.Unlock()
	}()

	s.logger.Printf("[scheduler] firing job: %s", job.Name)
	start := time.Now()
	if err := job.RunFunc(ctx); err != nil {
		s.logger.Printf("[scheduler] job %s returned error: %v", job.Name, err)
		return
	}
	s.logger.Printf("[scheduler] job %s completed in %v", job.Name, time.Since(start))
}

// ForceRun runs a job immediately, bypassing its scheduled times and the
// trading-day gate. Used by manual CLI invocations (spec.md §4.1 "forced
// runs bypass the weekend gate"). It still respects max-one-concurrent.
func (s *Scheduler) ForceRun(ctx context.Context, job *Job) error {
	job.mu.Lock()
	if job.running {
		job.mu.Unlock()
		return fmt.Errorf("clock: job %s is already running", job.Name)
	}
	job.running = true
	job.mu.Unlock()

	defer func() {
		job.mu.Lock()
		job.running = false
		job.mu.Unlock()
	}()

	return job.RunFunc(ctx)
}

// Status reports whether today is a trading day and, if not, why.
func (s *Scheduler) Status() string {
	now := time.Now()
	trading := s.calendar.IsTradingDay(now)
	status := fmt.Sprintf("trading_day=%v", trading)
	if reason := s.calendar.HolidayReason(now); reason != "" {
		status += fmt.Sprintf(" holiday=%s", reason)
	}
	return status
}
