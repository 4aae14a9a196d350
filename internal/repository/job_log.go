package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

type JobLogRepository interface {
	// Open writes the row before the executor runs so a crash leaves an
	// incomplete entry (completed_at = NULL) behind.
	Open(ctx context.Context, l *domain.JobLog) (*domain.JobLog, error)
	Close(ctx context.Context, id string, status domain.JobStatus, errMsg *string, durationMS int64) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
