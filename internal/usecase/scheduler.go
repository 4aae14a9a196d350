package usecase

import (
	"context"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
)

// Scheduler is the part of scheduler.Scheduler the usecases drive.
type Scheduler interface {
	ScheduleWatch(w *domain.Watch) error
	ScheduleSTQ(e *domain.QueueEntry) error
	Reschedule(ctx context.Context, kind domain.JobKind, id string) error
	ExecuteWatchNow(ctx context.Context, id string) (scheduler.Result, error)
	ExecuteSTQNow(ctx context.Context, id string) (scheduler.Result, error)
}
