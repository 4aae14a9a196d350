package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

type WatchRepository interface {
	Create(ctx context.Context, ownerID string, w *domain.Watch) (*domain.Watch, error)
	FindByID(ctx context.Context, id string) (*domain.Watch, error)
	FindActive(ctx context.Context) ([]*domain.Watch, error)
	// FindDueForCheck returns active watches whose next_check_at is at or
	// before now, or that have never been checked.
	FindDueForCheck(ctx context.Context, now time.Time) ([]*domain.Watch, error)
	Update(ctx context.Context, id string, u domain.WatchUpdate) (*domain.Watch, error)
	// RecordCheck persists one executor run and returns the updated row.
	RecordCheck(ctx context.Context, id string, c domain.WatchCheck) (*domain.Watch, error)
	Deactivate(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
	// DeactivateArrivalBefore soft-deactivates every active watch whose
	// arrival date is before day and returns their ids.
	DeactivateArrivalBefore(ctx context.Context, day time.Time) ([]string, error)
}
