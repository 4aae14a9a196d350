package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/booking"
	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
)

type WatchExecutor struct {
	watches  repository.WatchRepository
	booking  booking.Client
	gate     SessionGate
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewWatchExecutor(
	watches repository.WatchRepository,
	bookingClient booking.Client,
	gate SessionGate,
	notifier Notifier,
	logger *slog.Logger,
) *WatchExecutor {
	return &WatchExecutor{
		watches:  watches,
		booking:  bookingClient,
		gate:     gate,
		notifier: notifier,
		logger:   logger.With("component", "watch_executor"),
		now:      time.Now,
	}
}

// WithClock replaces the time source used for date and next-check math.
func (e *WatchExecutor) WithClock(now func() time.Time) *WatchExecutor {
	e.now = now
	return e
}

func (e *WatchExecutor) Execute(ctx context.Context, id string) (Result, error) {
	w, err := e.watches.FindByID(ctx, id)
	if err != nil {
		return Result{Status: domain.JobStatusError, Message: err.Error()}, fmt.Errorf("load watch: %w", err)
	}
	if !w.IsActive {
		return skipped("watch is inactive"), nil
	}

	now := e.now()
	if w.ArrivalPassed(now) {
		if err := e.watches.Deactivate(ctx, w.ID); err != nil {
			return Result{Status: domain.JobStatusError, Message: err.Error()}, fmt.Errorf("deactivate watch: %w", err)
		}
		e.logger.InfoContext(ctx, "arrival date passed, watch deactivated", "watch_id", w.ID, "arrival", w.ArrivalDate.Format(time.DateOnly))
		return Result{Status: domain.JobStatusFailed, Message: "date passed", Deactivated: true}, nil
	}

	wait, err := e.gate.WaitForActive(ctx, "")
	// Cancellation only interrupts the admission wait; from here the run
	// completes so its result is recorded.
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		return e.recordError(ctx, w, now, err)
	}

	avail, err := e.booking.CheckAvailability(ctx, wait.Session.SessionKey, booking.AvailabilityQuery{
		CampgroundID:  w.CampgroundID,
		ArrivalDate:   w.ArrivalDate,
		DepartureDate: w.DepartureDate,
		Guests:        w.Guests,
	})
	if err != nil {
		return e.recordError(ctx, w, now, err)
	}

	sites := FilterSites(avail.Sites, w)
	found := len(sites) > 0

	check := domain.WatchCheck{
		CheckedAt:   now,
		NextCheckAt: now.Add(time.Duration(w.CheckIntervalMinutes) * time.Minute),
		Result:      domain.CheckResultNotFound,
		Sites:       sites,
		Deactivate:  found && w.NotifyOnly,
	}
	if found {
		check.Result = domain.CheckResultFound
	}

	updated, err := e.watches.RecordCheck(ctx, w.ID, check)
	if err != nil {
		return Result{Status: domain.JobStatusError, Message: err.Error()}, fmt.Errorf("record watch check: %w", err)
	}

	if !found {
		e.logger.DebugContext(ctx, "no matching sites", "watch_id", w.ID, "returned", len(avail.Sites))
		return Result{Success: true, Status: domain.JobStatusNotFound}, nil
	}

	e.logger.InfoContext(ctx, "matching sites found", "watch_id", w.ID, "count", len(sites))
	e.notifier.Notify(ctx, domain.Notification{
		OwnerID:  w.OwnerID,
		Kind:     domain.NotificationWatchFound,
		EntityID: w.ID,
		Title:    fmt.Sprintf("%d campsite(s) available", len(sites)),
		Body:     foundBody(w, sites),
	})
	if !w.NotifyOnly {
		e.logger.WarnContext(ctx, "auto-book is not implemented, watch stays active", "watch_id", w.ID)
	}

	return Result{
		Success:     true,
		Status:      domain.JobStatusFound,
		Sites:       sites,
		Deactivated: !updated.IsActive,
	}, nil
}

// recordError stores a failed check and still advances next_check_at; the
// next scheduled firing is the retry.
func (e *WatchExecutor) recordError(ctx context.Context, w *domain.Watch, now time.Time, cause error) (Result, error) {
	msg := cause.Error()
	e.logger.WarnContext(ctx, "availability check failed", "watch_id", w.ID, "error", cause)

	_, err := e.watches.RecordCheck(ctx, w.ID, domain.WatchCheck{
		CheckedAt:   now,
		NextCheckAt: now.Add(time.Duration(w.CheckIntervalMinutes) * time.Minute),
		Result:      domain.CheckResultError,
		Error:       &msg,
	})
	if err != nil {
		return Result{Status: domain.JobStatusError, Message: msg}, fmt.Errorf("record watch error: %w", err)
	}
	return Result{Status: domain.JobStatusError, Message: msg}, nil
}

// FilterSites keeps available sites that pass every filter set on w.
func FilterSites(sites []domain.Site, w *domain.Watch) []domain.Site {
	var wanted map[string]struct{}
	if len(w.SiteIDs) > 0 {
		wanted = make(map[string]struct{}, len(w.SiteIDs))
		for _, id := range w.SiteIDs {
			wanted[id] = struct{}{}
		}
	}

	var out []domain.Site
	for _, s := range sites {
		if !s.Available {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[s.SiteID]; !ok {
				continue
			}
		}
		if w.SiteType != nil && !strings.EqualFold(s.SiteType, *w.SiteType) {
			continue
		}
		if w.MaxPrice != nil && s.Price.GreaterThan(*w.MaxPrice) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func foundBody(w *domain.Watch, sites []domain.Site) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Campground %s, %s to %s, %d guest(s):",
		w.CampgroundID, w.ArrivalDate.Format(time.DateOnly), w.DepartureDate.Format(time.DateOnly), w.Guests)
	for _, s := range sites {
		fmt.Fprintf(&b, "\n- %s (%s) %s", s.Name, s.SiteType, s.Price.StringFixed(2))
	}
	return b.String()
}
