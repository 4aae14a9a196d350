package scheduler

import (
	"context"

	"github.com/ErlanBelekov/campsite-scheduler/internal/admission"
	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

// Result is what one executor run reports back to the scheduler and to
// direct callers of ExecuteNow.
type Result struct {
	Success bool
	Status  domain.JobStatus
	Message string
	Sites   []domain.Site

	// Deactivated means the entity is no longer active after this run and
	// its timer should be cancelled.
	Deactivated bool
	// Released lists other timers this run made obsolete.
	Released []domain.JobKey
}

// Executor runs one job for the given entity id. External-call failures are
// reported through Result; a returned error means the run could not be
// recorded (lookup or persistence failure).
type Executor interface {
	Execute(ctx context.Context, id string) (Result, error)
}

// SessionGate blocks until upstream calls may be made.
type SessionGate interface {
	WaitForActive(ctx context.Context, key string) (admission.WaitResult, error)
}

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

func skipped(msg string) Result {
	return Result{Status: domain.JobStatusSkipped, Message: msg}
}
