package usecase_test

import (
	"context"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
)

// ---- fakes ----

type fakeWatchRepo struct {
	create   func(ctx context.Context, ownerID string, w *domain.Watch) (*domain.Watch, error)
	findByID func(ctx context.Context, id string) (*domain.Watch, error)
	update   func(ctx context.Context, id string, u domain.WatchUpdate) (*domain.Watch, error)
}

func (r *fakeWatchRepo) Create(ctx context.Context, ownerID string, w *domain.Watch) (*domain.Watch, error) {
	return r.create(ctx, ownerID, w)
}

func (r *fakeWatchRepo) FindByID(ctx context.Context, id string) (*domain.Watch, error) {
	return r.findByID(ctx, id)
}

func (r *fakeWatchRepo) Update(ctx context.Context, id string, u domain.WatchUpdate) (*domain.Watch, error) {
	return r.update(ctx, id, u)
}

func (r *fakeWatchRepo) FindActive(context.Context) ([]*domain.Watch, error) { return nil, nil }
func (r *fakeWatchRepo) FindDueForCheck(context.Context, time.Time) ([]*domain.Watch, error) {
	return nil, nil
}
func (r *fakeWatchRepo) RecordCheck(context.Context, string, domain.WatchCheck) (*domain.Watch, error) {
	return nil, nil
}
func (r *fakeWatchRepo) Deactivate(context.Context, string) error { return nil }
func (r *fakeWatchRepo) Activate(context.Context, string) error   { return nil }
func (r *fakeWatchRepo) DeactivateArrivalBefore(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

type fakeQueueEntryRepo struct {
	create   func(ctx context.Context, ownerID string, e *domain.QueueEntry) (*domain.QueueEntry, error)
	findByID func(ctx context.Context, id string) (*domain.QueueEntry, error)
	update   func(ctx context.Context, id string, u domain.QueueEntryUpdate) (*domain.QueueEntry, error)
}

func (r *fakeQueueEntryRepo) Create(ctx context.Context, ownerID string, e *domain.QueueEntry) (*domain.QueueEntry, error) {
	return r.create(ctx, ownerID, e)
}

func (r *fakeQueueEntryRepo) FindByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	return r.findByID(ctx, id)
}

func (r *fakeQueueEntryRepo) Update(ctx context.Context, id string, u domain.QueueEntryUpdate) (*domain.QueueEntry, error) {
	return r.update(ctx, id, u)
}

func (r *fakeQueueEntryRepo) FindActive(context.Context) ([]*domain.QueueEntry, error) {
	return nil, nil
}
func (r *fakeQueueEntryRepo) FindDueForCheck(context.Context, time.Time) ([]*domain.QueueEntry, error) {
	return nil, nil
}
func (r *fakeQueueEntryRepo) RecordAttempt(context.Context, string, domain.RebookAttempt) (*domain.QueueEntry, error) {
	return nil, nil
}
func (r *fakeQueueEntryRepo) Deactivate(context.Context, string) error { return nil }
func (r *fakeQueueEntryRepo) Activate(context.Context, string) error   { return nil }

type fakeScheduler struct {
	scheduledWatches []string
	scheduledEntries []string
	rescheduled      []domain.JobKey
	executed         []domain.JobKey

	scheduleErr error
	result      scheduler.Result
}

func (s *fakeScheduler) ScheduleWatch(w *domain.Watch) error {
	s.scheduledWatches = append(s.scheduledWatches, w.ID)
	return s.scheduleErr
}

func (s *fakeScheduler) ScheduleSTQ(e *domain.QueueEntry) error {
	s.scheduledEntries = append(s.scheduledEntries, e.ID)
	return s.scheduleErr
}

func (s *fakeScheduler) Reschedule(_ context.Context, kind domain.JobKind, id string) error {
	s.rescheduled = append(s.rescheduled, domain.JobKey{Kind: kind, EntityID: id})
	return nil
}

func (s *fakeScheduler) ExecuteWatchNow(_ context.Context, id string) (scheduler.Result, error) {
	s.executed = append(s.executed, domain.JobKey{Kind: domain.JobKindWatch, EntityID: id})
	return s.result, nil
}

func (s *fakeScheduler) ExecuteSTQNow(_ context.Context, id string) (scheduler.Result, error) {
	s.executed = append(s.executed, domain.JobKey{Kind: domain.JobKindRebook, EntityID: id})
	return s.result, nil
}
