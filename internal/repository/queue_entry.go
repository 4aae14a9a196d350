package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

type QueueEntryRepository interface {
	// Create fails with domain.ErrDuplicateQueueEntry when the booking
	// reference is already enrolled for the owner.
	Create(ctx context.Context, ownerID string, e *domain.QueueEntry) (*domain.QueueEntry, error)
	FindByID(ctx context.Context, id string) (*domain.QueueEntry, error)
	FindActive(ctx context.Context) ([]*domain.QueueEntry, error)
	FindDueForCheck(ctx context.Context, now time.Time) ([]*domain.QueueEntry, error)
	Update(ctx context.Context, id string, u domain.QueueEntryUpdate) (*domain.QueueEntry, error)
	// RecordAttempt increments attempts_count and applies the outcome in one
	// statement. Rows that already succeeded are left untouched and
	// domain.ErrQueueEntryImmutable is returned.
	RecordAttempt(ctx context.Context, id string, a domain.RebookAttempt) (*domain.QueueEntry, error)
	Deactivate(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
}
