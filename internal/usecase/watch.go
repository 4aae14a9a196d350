package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
	"github.com/shopspring/decimal"
)

const defaultWatchIntervalMinutes = 60

type WatchUsecase struct {
	repo  repository.WatchRepository
	sched Scheduler
}

func NewWatchUsecase(repo repository.WatchRepository, sched Scheduler) *WatchUsecase {
	return &WatchUsecase{repo: repo, sched: sched}
}

type CreateWatchInput struct {
	OwnerID              string
	CampgroundID         string
	ArrivalDate          time.Time
	DepartureDate        time.Time
	Guests               int
	SiteType             *string
	MaxPrice             *decimal.Decimal
	SiteIDs              []string
	CheckIntervalMinutes int
	NotifyOnly           *bool
}

func (u *WatchUsecase) CreateWatch(ctx context.Context, input CreateWatchInput) (*domain.Watch, error) {
	if input.CheckIntervalMinutes == 0 {
		input.CheckIntervalMinutes = defaultWatchIntervalMinutes
	}
	notifyOnly := true
	if input.NotifyOnly != nil {
		notifyOnly = *input.NotifyOnly
	}

	w := &domain.Watch{
		CampgroundID:         input.CampgroundID,
		ArrivalDate:          input.ArrivalDate,
		DepartureDate:        input.DepartureDate,
		Guests:               input.Guests,
		SiteType:             input.SiteType,
		MaxPrice:             input.MaxPrice,
		SiteIDs:              input.SiteIDs,
		CheckIntervalMinutes: input.CheckIntervalMinutes,
		IsActive:             true,
		NotifyOnly:           notifyOnly,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	created, err := u.repo.Create(ctx, input.OwnerID, w)
	if err != nil {
		return nil, fmt.Errorf("create watch: %w", err)
	}
	if err := u.sched.ScheduleWatch(created); err != nil {
		return nil, fmt.Errorf("schedule watch: %w", err)
	}
	return created, nil
}

func (u *WatchUsecase) GetWatch(ctx context.Context, id, ownerID string) (*domain.Watch, error) {
	w, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get watch: %w", err)
	}
	if w.OwnerID != ownerID {
		return nil, domain.ErrWatchNotFound
	}
	return w, nil
}

// UpdateWatch applies u and re-reads the row into the scheduler, so an
// interval or active-flag change takes effect on the next firing.
func (u *WatchUsecase) UpdateWatch(ctx context.Context, id, ownerID string, upd domain.WatchUpdate) (*domain.Watch, error) {
	if _, err := u.GetWatch(ctx, id, ownerID); err != nil {
		return nil, err
	}
	if upd.CheckIntervalMinutes != nil && *upd.CheckIntervalMinutes <= 0 {
		return nil, domain.ErrInvalidInterval
	}

	updated, err := u.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update watch: %w", err)
	}
	if err := u.sched.Reschedule(ctx, domain.JobKindWatch, id); err != nil {
		return nil, fmt.Errorf("reschedule watch: %w", err)
	}
	return updated, nil
}

func (u *WatchUsecase) CheckNow(ctx context.Context, id, ownerID string) (scheduler.Result, error) {
	if _, err := u.GetWatch(ctx, id, ownerID); err != nil {
		return scheduler.Result{}, err
	}
	return u.sched.ExecuteWatchNow(ctx, id)
}
