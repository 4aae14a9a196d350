package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/metrics"
	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
	"github.com/ErlanBelekov/campsite-scheduler/internal/runid"
	"github.com/robfig/cron/v3"
)

var maintenanceKey = domain.JobKey{Kind: domain.JobKindMaintenance, EntityID: MaintenanceID}

type Config struct {
	Location        *time.Location
	MaintenanceSpec string
	CatchUpOnStart  bool
}

type Executors struct {
	Watch       Executor
	Rebook      Executor
	Maintenance Executor
}

// Scheduler owns one cron timer per active watch and queue entry. Every
// firing goes through execute, which serialises runs per key and records an
// audit row.
type Scheduler struct {
	watches repository.WatchRepository
	entries repository.QueueEntryRepository
	jobLogs repository.JobLogRepository
	execs   map[domain.JobKind]Executor
	logger  *slog.Logger
	cfg     Config

	cron *cron.Cron

	mu       sync.Mutex
	registry map[domain.JobKey]cron.EntryID
	started  bool

	locksMu sync.Mutex
	locks   map[domain.JobKey]*sync.Mutex

	// runCtx is the parent of every timer firing. Stop cancels it so runs
	// blocked on the admission wait return.
	runCtx    context.Context
	runCancel context.CancelFunc
	runsWG    sync.WaitGroup

	catchUpCancel context.CancelFunc
	catchUpWG     sync.WaitGroup
}

func New(
	watches repository.WatchRepository,
	entries repository.QueueEntryRepository,
	jobLogs repository.JobLogRepository,
	execs Executors,
	logger *slog.Logger,
	cfg Config,
) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaintenanceSpec == "" {
		cfg.MaintenanceSpec = "0 3 * * *"
	}
	logger = logger.With("component", "scheduler")

	return &Scheduler{
		watches: watches,
		entries: entries,
		jobLogs: jobLogs,
		execs: map[domain.JobKind]Executor{
			domain.JobKindWatch:       execs.Watch,
			domain.JobKindRebook:      execs.Rebook,
			domain.JobKindMaintenance: execs.Maintenance,
		},
		logger: logger,
		cfg:    cfg,
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
		registry: make(map[domain.JobKey]cron.EntryID),
		locks:    make(map[domain.JobKey]*sync.Mutex),
	}
}

// Start rebuilds every timer from the active rows and starts the clock.
// Calling it again while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if _, err := cron.ParseStandard(s.cfg.MaintenanceSpec); err != nil {
		return fmt.Errorf("register maintenance: parse schedule %q: %w", s.cfg.MaintenanceSpec, err)
	}

	watches, err := s.watches.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("load active watches: %w", err)
	}
	entries, err := s.entries.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("load active queue entries: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	for _, w := range watches {
		if err := s.scheduleWatchLocked(w); err != nil {
			s.logger.ErrorContext(ctx, "schedule watch", "watch_id", w.ID, "error", err)
		}
	}
	for _, e := range entries {
		if err := s.scheduleSTQLocked(e); err != nil {
			s.logger.ErrorContext(ctx, "schedule queue entry", "entry_id", e.ID, "error", err)
		}
	}
	if err := s.registerLocked(maintenanceKey, s.cfg.MaintenanceSpec); err != nil {
		for key := range s.registry {
			s.removeLocked(key)
		}
		return fmt.Errorf("register maintenance: %w", err)
	}

	s.runCtx, s.runCancel = context.WithCancel(context.WithoutCancel(ctx))
	s.cron.Start()
	s.started = true

	s.logger.InfoContext(ctx, "scheduler started",
		"watches", len(watches),
		"queue_entries", len(entries),
		"location", s.cfg.Location.String(),
	)

	if s.cfg.CatchUpOnStart {
		catchUpCtx, cancel := context.WithCancel(s.runCtx)
		s.catchUpCancel = cancel
		s.catchUpWG.Add(1)
		go func() {
			defer s.catchUpWG.Done()
			s.catchUp(catchUpCtx)
		}()
	}
	return nil
}

// Stop cancels every timer and waits for in-flight runs to finish or ctx to
// expire. Runs still waiting for admission give up; runs past that point
// finish their upstream call and writes. Safe to call repeatedly.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	for key := range s.registry {
		s.removeLocked(key)
	}
	if s.catchUpCancel != nil {
		s.catchUpCancel()
		s.catchUpCancel = nil
	}
	s.runCancel()
	s.started = false
	stopped := s.cron.Stop()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.runsWG.Wait()
		s.catchUpWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// ScheduleWatch replaces any timer for w. Inactive watches end up with none.
func (s *Scheduler) ScheduleWatch(w *domain.Watch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleWatchLocked(w)
}

func (s *Scheduler) ScheduleSTQ(e *domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleSTQLocked(e)
}

func (s *Scheduler) scheduleWatchLocked(w *domain.Watch) error {
	key := domain.JobKey{Kind: domain.JobKindWatch, EntityID: w.ID}
	s.removeLocked(key)
	if !w.IsActive {
		return nil
	}
	return s.registerLocked(key, WatchCronSpec(w.CheckIntervalMinutes, w.CreatedAt.In(s.cfg.Location)))
}

func (s *Scheduler) scheduleSTQLocked(e *domain.QueueEntry) error {
	key := domain.JobKey{Kind: domain.JobKindRebook, EntityID: e.ID}
	s.removeLocked(key)
	if !e.IsActive || e.Succeeded() || e.Exhausted() {
		return nil
	}
	return s.registerLocked(key, RebookCronSpec(e.CheckIntervalMinutes))
}

// Unschedule cancels the timer for (kind, id). A missing timer is not an error.
func (s *Scheduler) Unschedule(kind domain.JobKind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(domain.JobKey{Kind: kind, EntityID: id})
}

// Reschedule re-reads the entity and applies its current interval and active
// flag. A deleted entity loses its timer and the not-found error is returned.
func (s *Scheduler) Reschedule(ctx context.Context, kind domain.JobKind, id string) error {
	switch kind {
	case domain.JobKindWatch:
		w, err := s.watches.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrWatchNotFound) {
				s.Unschedule(kind, id)
			}
			return err
		}
		return s.ScheduleWatch(w)
	case domain.JobKindRebook:
		e, err := s.entries.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrQueueEntryNotFound) {
				s.Unschedule(kind, id)
			}
			return err
		}
		return s.ScheduleSTQ(e)
	default:
		return fmt.Errorf("cannot reschedule job kind %q", kind)
	}
}

// ExecuteWatchNow runs the watch executor immediately, waiting for any
// in-progress run of the same watch. The timer is left as is unless the run
// deactivates the watch.
func (s *Scheduler) ExecuteWatchNow(ctx context.Context, id string) (Result, error) {
	return s.execute(ctx, domain.JobKey{Kind: domain.JobKindWatch, EntityID: id}, domain.TriggerManual, true)
}

func (s *Scheduler) ExecuteSTQNow(ctx context.Context, id string) (Result, error) {
	return s.execute(ctx, domain.JobKey{Kind: domain.JobKindRebook, EntityID: id}, domain.TriggerManual, true)
}

// RunMaintenance runs the maintenance job outside its timer.
func (s *Scheduler) RunMaintenance(ctx context.Context) error {
	_, err := s.execute(ctx, maintenanceKey, domain.TriggerManual, true)
	return err
}

// HasTimer reports whether a live timer exists for (kind, id).
func (s *Scheduler) HasTimer(kind domain.JobKind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registry[domain.JobKey{Kind: kind, EntityID: id}]
	return ok
}

// LiveTimers counts registered timers, the maintenance timer included.
func (s *Scheduler) LiveTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registry)
}

// NextRun returns the next firing time for (kind, id).
func (s *Scheduler) NextRun(kind domain.JobKind, id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, ok := s.registry[domain.JobKey{Kind: kind, EntityID: id}]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(entryID).Next, true
}

func (s *Scheduler) registerLocked(key domain.JobKey, spec string) error {
	if _, ok := s.registry[key]; ok {
		return &domain.ScheduleConflictError{Key: key}
	}
	entryID, err := s.cron.AddFunc(spec, func() { s.fire(key) })
	if err != nil {
		return fmt.Errorf("parse schedule %q for %s: %w", spec, key, err)
	}
	s.registry[key] = entryID
	metrics.LiveTimers.WithLabelValues(string(key.Kind)).Inc()
	return nil
}

func (s *Scheduler) removeLocked(key domain.JobKey) {
	entryID, ok := s.registry[key]
	if !ok {
		return
	}
	s.cron.Remove(entryID)
	delete(s.registry, key)
	metrics.LiveTimers.WithLabelValues(string(key.Kind)).Dec()
}

func (s *Scheduler) fire(key domain.JobKey) {
	s.mu.Lock()
	base := s.runCtx
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.runsWG.Add(1)
	s.mu.Unlock()
	defer s.runsWG.Done()

	ctx := runid.NewContext(base, runid.New())
	_, _ = s.execute(ctx, key, domain.TriggerScheduled, false)
}

func (s *Scheduler) catchUp(ctx context.Context) {
	watches, err := s.watches.FindDueForCheck(ctx, time.Now())
	if err != nil {
		s.logger.ErrorContext(ctx, "catch-up: load due watches", "error", err)
	}
	entries, err := s.entries.FindDueForCheck(ctx, time.Now())
	if err != nil {
		s.logger.ErrorContext(ctx, "catch-up: load due queue entries", "error", err)
	}

	keys := make([]domain.JobKey, 0, len(watches)+len(entries))
	for _, w := range watches {
		keys = append(keys, domain.JobKey{Kind: domain.JobKindWatch, EntityID: w.ID})
	}
	for _, e := range entries {
		keys = append(keys, domain.JobKey{Kind: domain.JobKindRebook, EntityID: e.ID})
	}
	if len(keys) == 0 {
		return
	}

	s.logger.InfoContext(ctx, "catching up overdue jobs", "count", len(keys))
	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		runCtx := runid.NewContext(ctx, runid.New())
		_, _ = s.execute(runCtx, key, domain.TriggerCatchUp, false)
	}
}

func (s *Scheduler) keyLock(key domain.JobKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// execute runs the executor for key. Runs for the same key never overlap:
// timer firings that find a run in progress are skipped, manual runs wait.
// Panics are recovered and reported as errors.
func (s *Scheduler) execute(ctx context.Context, key domain.JobKey, trigger domain.Trigger, wait bool) (res Result, err error) {
	exec := s.execs[key.Kind]
	if exec == nil {
		return Result{Status: domain.JobStatusError}, fmt.Errorf("no executor for job kind %q", key.Kind)
	}
	log := s.logger.With("job", key.String(), "trigger", trigger)

	lock := s.keyLock(key)
	if wait {
		lock.Lock()
	} else if !lock.TryLock() {
		metrics.FiringsSkippedTotal.WithLabelValues(string(key.Kind)).Inc()
		log.WarnContext(ctx, "previous run still in progress, firing skipped")
		return skipped("previous run still in progress"), nil
	}
	defer lock.Unlock()

	metrics.ExecutionsInFlight.Inc()
	defer metrics.ExecutionsInFlight.Dec()

	startedAt := time.Now()
	entry := s.openLog(ctx, key, trigger, startedAt)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "executor panicked", "panic", r)
			res = Result{Status: domain.JobStatusError, Message: fmt.Sprintf("panic: %v", r)}
			err = fmt.Errorf("executor panicked: %v", r)
		}

		status := res.Status
		if err != nil {
			status = domain.JobStatusError
		}
		if status == "" {
			status = domain.JobStatusSuccess
		}
		elapsed := time.Since(startedAt)

		s.closeLog(ctx, entry, status, res, err, elapsed)
		metrics.ExecutionDuration.WithLabelValues(string(key.Kind)).Observe(elapsed.Seconds())
		metrics.ExecutionsTotal.WithLabelValues(string(key.Kind), string(trigger), string(status)).Inc()

		if res.Deactivated {
			s.Unschedule(key.Kind, key.EntityID)
		}
		for _, released := range res.Released {
			s.Unschedule(released.Kind, released.EntityID)
		}

		if err != nil {
			log.ErrorContext(ctx, "job run failed", "status", status, "duration", elapsed, "error", err)
		} else {
			log.InfoContext(ctx, "job run finished", "status", status, "duration", elapsed, "deactivated", res.Deactivated)
		}
	}()

	return exec.Execute(ctx, key.EntityID)
}

// openLog writes the audit row before the run so a crash leaves an
// incomplete entry behind. Audit failures never block the run.
func (s *Scheduler) openLog(ctx context.Context, key domain.JobKey, trigger domain.Trigger, startedAt time.Time) *domain.JobLog {
	l := &domain.JobLog{Kind: key.Kind, Trigger: trigger, StartedAt: startedAt}
	if key.Kind != domain.JobKindMaintenance {
		id := key.EntityID
		l.EntityID = &id
	}
	opened, err := s.jobLogs.Open(ctx, l)
	if err != nil {
		s.logger.ErrorContext(ctx, "open job log", "job", key.String(), "error", err)
		return nil
	}
	return opened
}

func (s *Scheduler) closeLog(ctx context.Context, l *domain.JobLog, status domain.JobStatus, res Result, runErr error, elapsed time.Duration) {
	if l == nil {
		return
	}
	var errMsg *string
	switch {
	case runErr != nil:
		msg := runErr.Error()
		errMsg = &msg
	case res.Message != "" && status != domain.JobStatusSuccess:
		msg := res.Message
		errMsg = &msg
	}
	if err := s.jobLogs.Close(context.WithoutCancel(ctx), l.ID, status, errMsg, elapsed.Milliseconds()); err != nil {
		s.logger.ErrorContext(ctx, "close job log", "job_log_id", l.ID, "error", err)
	}
}
