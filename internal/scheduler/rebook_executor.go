package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/booking"
	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
)

type RebookExecutor struct {
	entries  repository.QueueEntryRepository
	booking  booking.Client
	gate     SessionGate
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewRebookExecutor(
	entries repository.QueueEntryRepository,
	bookingClient booking.Client,
	gate SessionGate,
	notifier Notifier,
	logger *slog.Logger,
) *RebookExecutor {
	return &RebookExecutor{
		entries:  entries,
		booking:  bookingClient,
		gate:     gate,
		notifier: notifier,
		logger:   logger.With("component", "rebook_executor"),
		now:      time.Now,
	}
}

func (e *RebookExecutor) WithClock(now func() time.Time) *RebookExecutor {
	e.now = now
	return e
}

func (e *RebookExecutor) Execute(ctx context.Context, id string) (Result, error) {
	entry, err := e.entries.FindByID(ctx, id)
	if err != nil {
		return Result{Status: domain.JobStatusError, Message: err.Error()}, fmt.Errorf("load queue entry: %w", err)
	}
	if entry.Succeeded() || entry.Exhausted() {
		// Lowering max_attempts to the current count leaves an exhausted row
		// that no attempt will ever close.
		if entry.IsActive {
			if err := e.entries.Deactivate(ctx, entry.ID); err != nil {
				return Result{Status: domain.JobStatusError, Message: err.Error()}, fmt.Errorf("deactivate finished queue entry: %w", err)
			}
			e.logger.InfoContext(ctx, "finished queue entry deactivated", "entry_id", entry.ID,
				"attempts", entry.AttemptsCount, "max_attempts", entry.MaxAttempts)
		}
		return Result{Status: domain.JobStatusSkipped, Message: "queue entry is finished", Deactivated: true}, nil
	}
	if !entry.IsActive {
		return skipped("queue entry is inactive"), nil
	}

	// Admission failures are not rebooking attempts and do not count
	// against max_attempts.
	wait, err := e.gate.WaitForActive(ctx, "")
	if err != nil {
		e.logger.WarnContext(ctx, "admission unavailable, attempt not made", "entry_id", entry.ID, "error", err)
		return Result{Status: domain.JobStatusError, Message: err.Error()}, nil
	}
	// Past the admission wait the attempt is made and counted even if the
	// run is cancelled.
	ctx = context.WithoutCancel(ctx)

	now := e.now()
	attempt := domain.RebookAttempt{
		CheckedAt:   now,
		NextCheckAt: now.Add(time.Duration(entry.CheckIntervalMinutes) * time.Minute),
	}

	res, callErr := e.booking.Rebook(ctx, wait.Session.SessionKey, entry.BookingReference)
	switch {
	case callErr != nil:
		msg := callErr.Error()
		attempt.Outcome = domain.RebookOutcomeError
		attempt.Error = &msg
	case !res.Success:
		msg := res.Message
		if msg == "" {
			msg = "rebooking not available"
		}
		attempt.Outcome = domain.RebookOutcomeUnavailable
		attempt.Error = &msg
	default:
		attempt.Outcome = domain.RebookOutcomeSuccess
		attempt.Success = true
		if res.NewReference != "" {
			ref := res.NewReference
			attempt.NewBookingReference = &ref
		}
	}

	updated, err := e.entries.RecordAttempt(ctx, entry.ID, attempt)
	if errors.Is(err, domain.ErrQueueEntryImmutable) {
		return Result{Status: domain.JobStatusSkipped, Message: "queue entry is finished", Deactivated: true}, nil
	}
	if err != nil {
		return Result{Status: domain.JobStatusError, Message: err.Error()}, fmt.Errorf("record rebook attempt: %w", err)
	}

	log := e.logger.With("entry_id", entry.ID, "attempt", updated.AttemptsCount, "max_attempts", updated.MaxAttempts)

	if attempt.Success {
		log.InfoContext(ctx, "rebooking succeeded", "new_reference", res.NewReference)
		e.notifier.Notify(ctx, domain.Notification{
			OwnerID:  entry.OwnerID,
			Kind:     domain.NotificationRebookSuccess,
			EntityID: entry.ID,
			Title:    "Booking " + entry.BookingReference + " rebooked",
			Body:     rebookSuccessBody(entry.BookingReference, res.NewReference),
		})
		return Result{Success: true, Status: domain.JobStatusSuccess, Deactivated: true}, nil
	}

	msg := *attempt.Error
	if !updated.IsActive && updated.Exhausted() {
		log.WarnContext(ctx, "rebooking attempts exhausted", "error", msg)
		e.notifier.Notify(ctx, domain.Notification{
			OwnerID:  entry.OwnerID,
			Kind:     domain.NotificationRebookExhausted,
			EntityID: entry.ID,
			Title:    "Could not rebook " + entry.BookingReference,
			Body:     fmt.Sprintf("Gave up after %d attempts. Last error: %s", updated.AttemptsCount, msg),
		})
		return Result{Status: domain.JobStatusFailed, Message: msg, Deactivated: true}, nil
	}

	log.InfoContext(ctx, "rebooking attempt failed", "outcome", attempt.Outcome, "error", msg)
	return Result{Status: domain.JobStatusFailed, Message: msg, Deactivated: !updated.IsActive}, nil
}

func rebookSuccessBody(oldRef, newRef string) string {
	if newRef == "" {
		return fmt.Sprintf("Booking %s was moved through the rebooking queue.", oldRef)
	}
	return fmt.Sprintf("Booking %s was moved through the rebooking queue. New reference: %s.", oldRef, newRef)
}
