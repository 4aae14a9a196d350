package scheduler_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/booking"
	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
)

func newEntry(id string, maxAttempts int) *domain.QueueEntry {
	return &domain.QueueEntry{
		ID:                   id,
		OwnerID:              "user-1",
		BookingID:            "booking-1",
		BookingReference:     "BK-100",
		IsActive:             true,
		CheckIntervalMinutes: 5,
		MaxAttempts:          maxAttempts,
		CreatedAt:            fixedNow.Add(-time.Hour),
	}
}

func rebookFailing(err error) *fakeBooking {
	return &fakeBooking{rebookFn: func(context.Context, string, string) (*booking.RebookResult, error) {
		return nil, err
	}}
}

func newRebookExecutor(repo *fakeQueueEntryRepo, b *fakeBooking, gate *fakeGate, n *fakeNotifier) *scheduler.RebookExecutor {
	return scheduler.NewRebookExecutor(repo, b, gate, n, testLogger).
		WithClock(func() time.Time { return fixedNow })
}

func TestRebookExecutor_ExhaustsAfterMaxAttempts(t *testing.T) {
	repo := newFakeQueueEntryRepo(newEntry("e1", 3))
	b := rebookFailing(&domain.RebookError{BookingReference: "BK-100", Err: errors.New("503")})
	n := &fakeNotifier{}
	exec := newRebookExecutor(repo, b, &fakeGate{}, n)

	var last scheduler.Result
	for i := range 3 {
		res, err := exec.Execute(context.Background(), "e1")
		if err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i+1, err)
		}
		last = res
		if i < 2 && res.Deactivated {
			t.Fatalf("attempt %d: deactivated early", i+1)
		}
	}

	got := repo.get("e1")
	if got.AttemptsCount != 3 {
		t.Errorf("attempts_count = %d, want 3", got.AttemptsCount)
	}
	if got.IsActive {
		t.Error("entry still active after exhausting attempts")
	}
	if got.LastResult == nil || *got.LastResult != domain.RebookOutcomeError {
		t.Errorf("last_result = %v, want error", got.LastResult)
	}
	if got.LastError == nil || *got.LastError == "" {
		t.Error("last_error not recorded")
	}
	if !last.Deactivated || last.Status != domain.JobStatusFailed {
		t.Errorf("last result = %+v", last)
	}
	if kinds := n.kinds(); !slices.Equal(kinds, []domain.NotificationKind{domain.NotificationRebookExhausted}) {
		t.Errorf("notifications = %v", kinds)
	}

	// A fourth firing must not call upstream or bump the counter.
	res, err := exec.Execute(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.JobStatusSkipped || b.rebookCalls != 3 {
		t.Errorf("fourth run: status = %q, rebook calls = %d", res.Status, b.rebookCalls)
	}
}

func TestRebookExecutor_Success(t *testing.T) {
	repo := newFakeQueueEntryRepo(newEntry("e1", 3))
	b := &fakeBooking{rebookFn: func(_ context.Context, sessionKey, ref string) (*booking.RebookResult, error) {
		if sessionKey != "sess-1" || ref != "BK-100" {
			t.Errorf("Rebook(%q, %q)", sessionKey, ref)
		}
		return &booking.RebookResult{Success: true, NewReference: "BK-200"}, nil
	}}
	n := &fakeNotifier{}

	res, err := newRebookExecutor(repo, b, &fakeGate{}, n).Execute(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Success || res.Status != domain.JobStatusSuccess || !res.Deactivated {
		t.Errorf("result = %+v", res)
	}
	got := repo.get("e1")
	if got.IsActive || got.SuccessDate == nil || !got.SuccessDate.Equal(fixedNow) {
		t.Errorf("entry = %+v", got)
	}
	if got.NewBookingReference == nil || *got.NewBookingReference != "BK-200" {
		t.Errorf("new reference = %v", got.NewBookingReference)
	}
	if got.AttemptsCount != 1 {
		t.Errorf("attempts_count = %d, want 1", got.AttemptsCount)
	}
	if kinds := n.kinds(); !slices.Equal(kinds, []domain.NotificationKind{domain.NotificationRebookSuccess}) {
		t.Errorf("notifications = %v", kinds)
	}
}

func TestRebookExecutor_UnavailableStaysActive(t *testing.T) {
	repo := newFakeQueueEntryRepo(newEntry("e1", 3))
	b := &fakeBooking{rebookFn: func(context.Context, string, string) (*booking.RebookResult, error) {
		return &booking.RebookResult{Success: false, Message: "no inventory"}, nil
	}}

	res, err := newRebookExecutor(repo, b, &fakeGate{}, &fakeNotifier{}).Execute(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Deactivated || res.Message != "no inventory" {
		t.Errorf("result = %+v", res)
	}
	got := repo.get("e1")
	if !got.IsActive || got.AttemptsCount != 1 || *got.LastResult != domain.RebookOutcomeUnavailable {
		t.Errorf("entry = %+v", got)
	}
}

func TestRebookExecutor_AdmissionFailureIsNotAnAttempt(t *testing.T) {
	repo := newFakeQueueEntryRepo(newEntry("e1", 3))
	b := rebookFailing(errors.New("unreachable"))
	gate := &fakeGate{err: context.Canceled}

	res, err := newRebookExecutor(repo, b, gate, &fakeNotifier{}).Execute(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.JobStatusError {
		t.Errorf("status = %q, want error", res.Status)
	}
	if repo.get("e1").AttemptsCount != 0 || b.rebookCalls != 0 {
		t.Error("admission failure counted as a rebooking attempt")
	}
}

func TestRebookExecutor_MissingEntry(t *testing.T) {
	_, err := newRebookExecutor(newFakeQueueEntryRepo(), rebookFailing(nil), &fakeGate{}, &fakeNotifier{}).
		Execute(context.Background(), "nope")
	if !errors.Is(err, domain.ErrQueueEntryNotFound) {
		t.Errorf("want ErrQueueEntryNotFound, got %v", err)
	}
}

func TestRebookExecutor_ExhaustedButActiveRowIsDeactivated(t *testing.T) {
	e := newEntry("e1", 3)
	e.AttemptsCount = 3
	repo := newFakeQueueEntryRepo(e)
	b := rebookFailing(errors.New("must not be called"))

	res, err := newRebookExecutor(repo, b, &fakeGate{}, &fakeNotifier{}).Execute(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != domain.JobStatusSkipped || !res.Deactivated {
		t.Errorf("result = %+v", res)
	}
	if repo.get("e1").IsActive {
		t.Error("exhausted entry still active")
	}
	if b.rebookCalls != 0 {
		t.Errorf("rebook calls = %d, want 0", b.rebookCalls)
	}
}

func TestRebookExecutor_CancelAfterAdmissionStillRecordsAttempt(t *testing.T) {
	repo := newFakeQueueEntryRepo(newEntry("e1", 3))
	ctx, cancel := context.WithCancel(context.Background())
	b := &fakeBooking{rebookFn: func(callCtx context.Context, _, _ string) (*booking.RebookResult, error) {
		cancel()
		if err := callCtx.Err(); err != nil {
			t.Errorf("rebook call ctx cancelled: %v", err)
		}
		return &booking.RebookResult{Success: false, Message: "no inventory"}, nil
	}}

	if _, err := newRebookExecutor(repo, b, &fakeGate{}, &fakeNotifier{}).Execute(ctx, "e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.get("e1"); got.AttemptsCount != 1 {
		t.Errorf("attempts_count = %d, want 1", got.AttemptsCount)
	}
}
