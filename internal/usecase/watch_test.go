package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
	"github.com/ErlanBelekov/campsite-scheduler/internal/usecase"
)

func validWatchInput() usecase.CreateWatchInput {
	return usecase.CreateWatchInput{
		OwnerID:       "user-1",
		CampgroundID:  "cg-1",
		ArrivalDate:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		DepartureDate: time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC),
		Guests:        2,
	}
}

func echoCreate() *fakeWatchRepo {
	return &fakeWatchRepo{create: func(_ context.Context, ownerID string, w *domain.Watch) (*domain.Watch, error) {
		cp := *w
		cp.ID = "w-new"
		cp.OwnerID = ownerID
		return &cp, nil
	}}
}

func TestCreateWatch_AppliesDefaultsAndSchedules(t *testing.T) {
	sched := &fakeScheduler{}
	uc := usecase.NewWatchUsecase(echoCreate(), sched)

	w, err := uc.CreateWatch(context.Background(), validWatchInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.CheckIntervalMinutes != 60 {
		t.Errorf("interval = %d, want 60", w.CheckIntervalMinutes)
	}
	if !w.NotifyOnly || !w.IsActive {
		t.Errorf("notify_only = %v, is_active = %v, want both true", w.NotifyOnly, w.IsActive)
	}
	if w.OwnerID != "user-1" {
		t.Errorf("owner = %q", w.OwnerID)
	}
	if len(sched.scheduledWatches) != 1 || sched.scheduledWatches[0] != "w-new" {
		t.Errorf("scheduled = %v, want [w-new]", sched.scheduledWatches)
	}
}

func TestCreateWatch_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*usecase.CreateWatchInput)
		want   error
	}{
		{"departure before arrival", func(in *usecase.CreateWatchInput) {
			in.DepartureDate = in.ArrivalDate.Add(-24 * time.Hour)
		}, domain.ErrInvalidDates},
		{"zero guests", func(in *usecase.CreateWatchInput) { in.Guests = 0 }, domain.ErrInvalidGuests},
		{"negative interval", func(in *usecase.CreateWatchInput) { in.CheckIntervalMinutes = -5 }, domain.ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &fakeScheduler{}
			uc := usecase.NewWatchUsecase(&fakeWatchRepo{
				create: func(context.Context, string, *domain.Watch) (*domain.Watch, error) {
					t.Fatal("repository called for invalid input")
					return nil, nil
				},
			}, sched)

			in := validWatchInput()
			tt.modify(&in)

			if _, err := uc.CreateWatch(context.Background(), in); !errors.Is(err, tt.want) {
				t.Errorf("want %v, got %v", tt.want, err)
			}
			if len(sched.scheduledWatches) != 0 {
				t.Error("invalid watch scheduled")
			}
		})
	}
}

func TestGetWatch_OtherOwnerIsNotFound(t *testing.T) {
	repo := &fakeWatchRepo{findByID: func(_ context.Context, id string) (*domain.Watch, error) {
		return &domain.Watch{ID: id, OwnerID: "someone-else"}, nil
	}}
	uc := usecase.NewWatchUsecase(repo, &fakeScheduler{})

	if _, err := uc.GetWatch(context.Background(), "w1", "user-1"); !errors.Is(err, domain.ErrWatchNotFound) {
		t.Errorf("want ErrWatchNotFound, got %v", err)
	}
}

func TestUpdateWatch_Reschedules(t *testing.T) {
	repo := &fakeWatchRepo{
		findByID: func(_ context.Context, id string) (*domain.Watch, error) {
			return &domain.Watch{ID: id, OwnerID: "user-1"}, nil
		},
		update: func(_ context.Context, id string, u domain.WatchUpdate) (*domain.Watch, error) {
			return &domain.Watch{ID: id, OwnerID: "user-1", CheckIntervalMinutes: *u.CheckIntervalMinutes}, nil
		},
	}
	sched := &fakeScheduler{}
	uc := usecase.NewWatchUsecase(repo, sched)

	interval := 240
	w, err := uc.UpdateWatch(context.Background(), "w1", "user-1", domain.WatchUpdate{CheckIntervalMinutes: &interval})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.CheckIntervalMinutes != 240 {
		t.Errorf("interval = %d", w.CheckIntervalMinutes)
	}
	want := domain.JobKey{Kind: domain.JobKindWatch, EntityID: "w1"}
	if len(sched.rescheduled) != 1 || sched.rescheduled[0] != want {
		t.Errorf("rescheduled = %v, want [%v]", sched.rescheduled, want)
	}
}

func TestUpdateWatch_RejectsZeroInterval(t *testing.T) {
	repo := &fakeWatchRepo{findByID: func(_ context.Context, id string) (*domain.Watch, error) {
		return &domain.Watch{ID: id, OwnerID: "user-1"}, nil
	}}
	uc := usecase.NewWatchUsecase(repo, &fakeScheduler{})

	zero := 0
	if _, err := uc.UpdateWatch(context.Background(), "w1", "user-1", domain.WatchUpdate{CheckIntervalMinutes: &zero}); !errors.Is(err, domain.ErrInvalidInterval) {
		t.Errorf("want ErrInvalidInterval, got %v", err)
	}
}

func TestCheckNow_RunsExecutorForOwner(t *testing.T) {
	repo := &fakeWatchRepo{findByID: func(_ context.Context, id string) (*domain.Watch, error) {
		return &domain.Watch{ID: id, OwnerID: "user-1"}, nil
	}}
	sched := &fakeScheduler{result: scheduler.Result{Success: true, Status: domain.JobStatusFound}}
	uc := usecase.NewWatchUsecase(repo, sched)

	res, err := uc.CheckNow(context.Background(), "w1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.JobStatusFound {
		t.Errorf("status = %q", res.Status)
	}

	if _, err := uc.CheckNow(context.Background(), "w1", "intruder"); !errors.Is(err, domain.ErrWatchNotFound) {
		t.Errorf("want ErrWatchNotFound, got %v", err)
	}
	if len(sched.executed) != 1 {
		t.Errorf("executed = %v, want one run", sched.executed)
	}
}
