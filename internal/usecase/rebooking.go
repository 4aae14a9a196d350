package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
)

const (
	defaultRebookIntervalMinutes = 5
	defaultRebookMaxAttempts     = 3
)

var ErrMissingBookingReference = errors.New("booking reference is required")

type RebookingUsecase struct {
	repo  repository.QueueEntryRepository
	sched Scheduler
}

func NewRebookingUsecase(repo repository.QueueEntryRepository, sched Scheduler) *RebookingUsecase {
	return &RebookingUsecase{repo: repo, sched: sched}
}

type EnrollInput struct {
	OwnerID              string
	BookingID            string
	BookingReference     string
	CheckIntervalMinutes int
	MaxAttempts          int
}

func (u *RebookingUsecase) Enroll(ctx context.Context, input EnrollInput) (*domain.QueueEntry, error) {
	if input.BookingReference == "" {
		return nil, ErrMissingBookingReference
	}
	if input.CheckIntervalMinutes == 0 {
		input.CheckIntervalMinutes = defaultRebookIntervalMinutes
	}
	if input.MaxAttempts == 0 {
		input.MaxAttempts = defaultRebookMaxAttempts
	}

	e := &domain.QueueEntry{
		BookingID:            input.BookingID,
		BookingReference:     input.BookingReference,
		IsActive:             true,
		CheckIntervalMinutes: input.CheckIntervalMinutes,
		MaxAttempts:          input.MaxAttempts,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	created, err := u.repo.Create(ctx, input.OwnerID, e)
	if err != nil {
		return nil, fmt.Errorf("enroll booking: %w", err)
	}
	if err := u.sched.ScheduleSTQ(created); err != nil {
		return nil, fmt.Errorf("schedule queue entry: %w", err)
	}
	return created, nil
}

func (u *RebookingUsecase) GetEntry(ctx context.Context, id, ownerID string) (*domain.QueueEntry, error) {
	e, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	if e.OwnerID != ownerID {
		return nil, domain.ErrQueueEntryNotFound
	}
	return e, nil
}

func (u *RebookingUsecase) UpdateEntry(ctx context.Context, id, ownerID string, upd domain.QueueEntryUpdate) (*domain.QueueEntry, error) {
	current, err := u.GetEntry(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if upd.CheckIntervalMinutes != nil && *upd.CheckIntervalMinutes <= 0 {
		return nil, domain.ErrInvalidInterval
	}
	if upd.MaxAttempts != nil {
		if *upd.MaxAttempts <= 0 {
			return nil, domain.ErrInvalidMaxAttempts
		}
		if *upd.MaxAttempts < current.AttemptsCount {
			return nil, domain.ErrMaxAttemptsTooLow
		}
	}

	updated, err := u.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update queue entry: %w", err)
	}
	if err := u.sched.Reschedule(ctx, domain.JobKindRebook, id); err != nil {
		return nil, fmt.Errorf("reschedule queue entry: %w", err)
	}
	return updated, nil
}

func (u *RebookingUsecase) CheckNow(ctx context.Context, id, ownerID string) (scheduler.Result, error) {
	if _, err := u.GetEntry(ctx, id, ownerID); err != nil {
		return scheduler.Result{}, err
	}
	return u.sched.ExecuteSTQNow(ctx, id)
}
