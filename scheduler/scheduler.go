// Package scheduler launches a task on a cron cadence with single-flight runs,
// a fixed retry policy and failure alerts.
//
// Intervals missed while the scheduler was not running are never replayed:
// the first run after start-up is the next tick that falls due.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/engagement/alert"
	"github.com/relloyd/engagement/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/xid"
)

// ErrRunActive is returned by Trigger when another run has not finished.
var ErrRunActive = errors.New("a run is already active")

// ErrStopped is returned by Submit once Start is shutting down.
var ErrStopped = errors.New("scheduler is stopping")

// maxLookbackMinutes bounds the search for the previous tick of a schedule.
const maxLookbackMinutes = 366 * 24 * 60

const defaultHistorySize = 50

type RunState string

const (
	RunStateRunning RunState = "running"
	RunStateSuccess RunState = "success"
	RunStateFailed  RunState = "failed"
)

// Run is one scheduled execution of a task, including its retries.
type Run struct {
	ID           string    `json:"runId"`
	DefinitionID string    `json:"dagId"`
	LogicalDate  time.Time `json:"logicalDate"`
	State        RunState  `json:"state"`
	Attempts     int       `json:"attempts"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
}

// Scheduler runs a Definition on its cron schedule.
type Scheduler struct {
	log         logger.Logger
	def         Definition
	schedule    cron.Schedule
	launcher    Launcher
	alerter     alert.Alerter
	metrics     *Metrics
	historySize int
	now         func() time.Time
	active      int32
	wg          sync.WaitGroup
	submitMu    sync.Mutex
	stopped     bool
	mu          sync.RWMutex
	history     []Run
}

type Option func(s *Scheduler)

// WithMetrics records run and attempt metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithHistorySize sets how many finished and active runs Runs() keeps.
func WithHistorySize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithClock replaces time.Now when working out the logical date of a cron tick.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New validates def and returns a Scheduler that launches its task with launcher.
// Failures are sent to def.OnFailure, or logged if that is nil.
func New(log logger.Logger, def Definition, launcher Launcher, opts ...Option) (*Scheduler, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if launcher == nil {
		return nil, errors.New("nil launcher supplied")
	}
	sched, err := ParseSchedule(def.Schedule)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		log:         log,
		def:         def,
		schedule:    sched,
		launcher:    launcher,
		alerter:     def.OnFailure,
		historySize: defaultHistorySize,
		now:         time.Now,
	}
	if s.alerter == nil {
		s.alerter = &alert.LogAlerter{Log: log}
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Definition returns the registration being scheduled.
func (s *Scheduler) Definition() Definition {
	return s.def
}

// Start registers the cron entry and blocks until ctx is cancelled.
// Ticks that arrive while a run is still active are skipped and counted.
// On return, any active run has finished.
func (s *Scheduler) Start(ctx context.Context) error {
	cl := cronLogger{log: s.log}
	cr := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	id, err := cr.AddFunc(s.def.Schedule, func() { s.onTick(ctx) })
	if err != nil {
		return errors.Wrapf(err, "unable to register %v", s.def.ID)
	}
	cr.Start()
	s.log.Info(fmt.Sprintf("scheduled %v with %q; next run at %v", s.def.ID, s.def.Schedule, cr.Entry(id).Next.Format(time.RFC3339)))
	<-ctx.Done()
	s.log.Info("stopping scheduler for ", s.def.ID)
	<-cr.Stop().Done() // wait for ticks in progress.
	s.submitMu.Lock()
	s.stopped = true
	s.submitMu.Unlock()
	s.wg.Wait() // wait for submitted runs.
	return nil
}

func (s *Scheduler) onTick(ctx context.Context) {
	logical := s.LogicalDate(s.now())
	if logical.Before(s.def.StartDate) {
		s.log.Info("skipping tick for ", logical.Format(time.RFC3339), " before start date")
		return
	}
	if _, err := s.Trigger(ctx, logical); errors.Is(err, ErrRunActive) {
		s.metrics.observeSkip()
		s.log.Warn("skipping tick for ", logical.Format(time.RFC3339), ": ", err)
	}
}

// LogicalDate returns the logical timestamp of the run firing at fire:
// the start of the schedule interval that ends at fire.
func (s *Scheduler) LogicalDate(fire time.Time) time.Time {
	return previousTick(s.schedule, fire.UTC().Truncate(time.Minute))
}

// previousTick finds the latest time before t that sched fires on, at minute resolution.
func previousTick(sched cron.Schedule, t time.Time) time.Time {
	candidate := t.Add(-time.Minute)
	for i := 0; i < maxLookbackMinutes; i++ {
		if sched.Next(candidate.Add(-time.Second)).Equal(candidate) {
			return candidate
		}
		candidate = candidate.Add(-time.Minute)
	}
	return t
}

// Trigger runs the task once for logical, retrying as the definition allows.
// It returns ErrRunActive without launching anything if another run is active.
// The returned error is the last launch error when the run fails.
func (s *Scheduler) Trigger(ctx context.Context, logical time.Time) (Run, error) {
	run, err := s.acquire(logical)
	if err != nil {
		return Run{}, err
	}
	return s.execute(ctx, run)
}

// Submit starts a run for logical in the background and returns it in the running state.
// It returns ErrRunActive if another run is active. ctx bounds the run, not the call.
func (s *Scheduler) Submit(ctx context.Context, logical time.Time) (Run, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	if s.stopped || ctx.Err() != nil {
		return Run{}, ErrStopped
	}
	run, err := s.acquire(logical)
	if err != nil {
		return Run{}, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.execute(ctx, run)
	}()
	return run, nil
}

// acquire claims the single active slot and records a new run.
func (s *Scheduler) acquire(logical time.Time) (Run, error) {
	if !atomic.CompareAndSwapInt32(&s.active, 0, 1) {
		return Run{}, ErrRunActive
	}
	run := Run{
		ID:           xid.New().String(),
		DefinitionID: s.def.ID,
		LogicalDate:  logical,
		State:        RunStateRunning,
		StartedAt:    time.Now(),
	}
	s.record(run)
	return run, nil
}

// execute launches run with retries and releases the active slot when done.
func (s *Scheduler) execute(ctx context.Context, run Run) (Run, error) {
	defer atomic.StoreInt32(&s.active, 0)
	log := s.log.WithField("runId", run.ID)
	log.Info(fmt.Sprintf("run started for %v (logical date %v)", s.def.ID, run.LogicalDate.Format(time.RFC3339)))
	maxAttempts := s.def.MaxAttempts()
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		run.Attempts = attempt
		s.record(run)
		err = s.launcher.Launch(ctx, LaunchRequest{
			RunID:        run.ID,
			DefinitionID: s.def.ID,
			TaskID:       s.def.Task.ID,
			LogicalDate:  run.LogicalDate,
			Attempt:      attempt,
		})
		s.metrics.observeAttempt(err)
		if err == nil {
			break
		}
		final := attempt == maxAttempts
		log.Warn(fmt.Sprintf("attempt %v of %v failed: %v", attempt, maxAttempts, err))
		s.notify(ctx, log, run, attempt, final, err)
		if final {
			break
		}
		delay := time.Duration(s.def.DefaultArgs.RetryDelay)
		log.Info(fmt.Sprintf("retrying in %v", delay))
		if werr := wait(ctx, delay); werr != nil {
			err = errors.Wrap(werr, "retry abandoned")
			s.notify(ctx, log, run, attempt, true, err)
			break
		}
	}
	run.EndedAt = time.Now()
	if err != nil {
		run.State = RunStateFailed
		run.Error = err.Error()
		log.Error(fmt.Sprintf("run failed after %v attempt(s): %v", run.Attempts, err))
	} else {
		run.State = RunStateSuccess
		log.Info(fmt.Sprintf("run succeeded after %v attempt(s)", run.Attempts))
	}
	s.record(run)
	s.metrics.observeRun(run)
	return run, err
}

// notify sends the alert without letting delivery problems affect the run.
func (s *Scheduler) notify(ctx context.Context, log logger.Logger, run Run, attempt int, final bool, cause error) {
	n := alert.Notification{
		DefinitionID: s.def.ID,
		TaskID:       s.def.Task.ID,
		RunID:        run.ID,
		LogicalDate:  run.LogicalDate,
		Attempt:      attempt,
		MaxAttempts:  s.def.MaxAttempts(),
		Final:        final,
		Error:        cause.Error(),
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.alerter.Alert(actx, n); err != nil {
		log.Error("unable to send failure alert: ", err)
	}
}

// record inserts or replaces run in the history, newest first.
func (s *Scheduler) record(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.history {
		if s.history[idx].ID == run.ID {
			s.history[idx] = run
			return
		}
	}
	s.history = append([]Run{run}, s.history...)
	if len(s.history) > s.historySize {
		s.history = s.history[:s.historySize]
	}
}

// Runs returns recent runs, newest first.
func (s *Scheduler) Runs() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	retval := make([]Run, len(s.history))
	copy(retval, s.history)
	return retval
}

// IsActive reports whether a run is in progress.
func (s *Scheduler) IsActive() bool {
	return atomic.LoadInt32(&s.active) == 1
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: ", msg, " ", keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: ", msg, " ", keysAndValues, ": ", err)
}
