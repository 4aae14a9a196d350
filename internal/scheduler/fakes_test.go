package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/admission"
	"github.com/ErlanBelekov/campsite-scheduler/internal/booking"
	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// ---- watch repository ----

type fakeWatchRepo struct {
	mu      sync.Mutex
	watches map[string]*domain.Watch
	checks  []domain.WatchCheck

	recordErr error
}

func newFakeWatchRepo(ws ...*domain.Watch) *fakeWatchRepo {
	r := &fakeWatchRepo{watches: make(map[string]*domain.Watch)}
	for _, w := range ws {
		r.watches[w.ID] = w
	}
	return r
}

func (r *fakeWatchRepo) get(id string) *domain.Watch {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.watches[id]
	return &cp
}

func (r *fakeWatchRepo) Create(_ context.Context, ownerID string, w *domain.Watch) (*domain.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	cp.OwnerID = ownerID
	r.watches[cp.ID] = &cp
	return &cp, nil
}

func (r *fakeWatchRepo) FindByID(_ context.Context, id string) (*domain.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok {
		return nil, domain.ErrWatchNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWatchRepo) FindActive(context.Context) ([]*domain.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Watch
	for _, w := range r.watches {
		if w.IsActive {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeWatchRepo) FindDueForCheck(_ context.Context, now time.Time) ([]*domain.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Watch
	for _, w := range r.watches {
		if w.IsActive && (w.NextCheckAt == nil || !w.NextCheckAt.After(now)) {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeWatchRepo) Update(_ context.Context, id string, u domain.WatchUpdate) (*domain.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok {
		return nil, domain.ErrWatchNotFound
	}
	if u.CheckIntervalMinutes != nil {
		w.CheckIntervalMinutes = *u.CheckIntervalMinutes
	}
	if u.IsActive != nil {
		w.IsActive = *u.IsActive
	}
	if u.NotifyOnly != nil {
		w.NotifyOnly = *u.NotifyOnly
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWatchRepo) RecordCheck(_ context.Context, id string, c domain.WatchCheck) (*domain.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return nil, r.recordErr
	}
	w, ok := r.watches[id]
	if !ok {
		return nil, domain.ErrWatchNotFound
	}
	r.checks = append(r.checks, c)

	checked, next, result := c.CheckedAt, c.NextCheckAt, c.Result
	w.LastCheckedAt = &checked
	w.NextCheckAt = &next
	w.LastResult = &result
	w.LastError = c.Error
	if c.Result == domain.CheckResultFound {
		w.FoundCount++
		w.LastFoundSites = c.Sites
	}
	if c.Deactivate {
		w.IsActive = false
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWatchRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok {
		return domain.ErrWatchNotFound
	}
	w.IsActive = false
	return nil
}

func (r *fakeWatchRepo) Activate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok {
		return domain.ErrWatchNotFound
	}
	w.IsActive = true
	return nil
}

func (r *fakeWatchRepo) DeactivateArrivalBefore(_ context.Context, day time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, w := range r.watches {
		if w.IsActive && w.ArrivalDate.Before(day) {
			w.IsActive = false
			ids = append(ids, w.ID)
		}
	}
	return ids, nil
}

// ---- queue entry repository ----

type fakeQueueEntryRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.QueueEntry
}

func newFakeQueueEntryRepo(es ...*domain.QueueEntry) *fakeQueueEntryRepo {
	r := &fakeQueueEntryRepo{entries: make(map[string]*domain.QueueEntry)}
	for _, e := range es {
		r.entries[e.ID] = e
	}
	return r
}

func (r *fakeQueueEntryRepo) get(id string) *domain.QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.entries[id]
	return &cp
}

func (r *fakeQueueEntryRepo) Create(_ context.Context, ownerID string, e *domain.QueueEntry) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.OwnerID == ownerID && existing.BookingReference == e.BookingReference {
			return nil, domain.ErrDuplicateQueueEntry
		}
	}
	cp := *e
	cp.OwnerID = ownerID
	r.entries[cp.ID] = &cp
	return &cp, nil
}

func (r *fakeQueueEntryRepo) FindByID(_ context.Context, id string) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrQueueEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeQueueEntryRepo) FindActive(context.Context) ([]*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.QueueEntry
	for _, e := range r.entries {
		if e.IsActive {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeQueueEntryRepo) FindDueForCheck(_ context.Context, now time.Time) ([]*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.QueueEntry
	for _, e := range r.entries {
		if e.IsActive && (e.NextCheckAt == nil || !e.NextCheckAt.After(now)) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeQueueEntryRepo) Update(_ context.Context, id string, u domain.QueueEntryUpdate) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrQueueEntryNotFound
	}
	if e.Succeeded() {
		return nil, domain.ErrQueueEntryImmutable
	}
	if u.CheckIntervalMinutes != nil {
		e.CheckIntervalMinutes = *u.CheckIntervalMinutes
	}
	if u.MaxAttempts != nil {
		e.MaxAttempts = *u.MaxAttempts
	}
	if u.IsActive != nil {
		e.IsActive = *u.IsActive
	}
	e.IsActive = e.IsActive && e.AttemptsCount < e.MaxAttempts
	cp := *e
	return &cp, nil
}

// RecordAttempt mirrors the single-statement update in the postgres repo.
func (r *fakeQueueEntryRepo) RecordAttempt(_ context.Context, id string, a domain.RebookAttempt) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrQueueEntryNotFound
	}
	if e.Succeeded() || e.Exhausted() {
		return nil, domain.ErrQueueEntryImmutable
	}

	e.AttemptsCount++
	checked, next, outcome := a.CheckedAt, a.NextCheckAt, a.Outcome
	e.LastCheckedAt = &checked
	e.NextCheckAt = &next
	e.LastResult = &outcome
	e.LastError = a.Error
	if a.Success {
		e.SuccessDate = &checked
		e.NewBookingReference = a.NewBookingReference
	}
	e.IsActive = e.IsActive && !a.Success && e.AttemptsCount < e.MaxAttempts

	cp := *e
	return &cp, nil
}

func (r *fakeQueueEntryRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrQueueEntryNotFound
	}
	e.IsActive = false
	return nil
}

func (r *fakeQueueEntryRepo) Activate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrQueueEntryNotFound
	}
	e.IsActive = true
	return nil
}

// ---- job logs ----

type closedLog struct {
	id     string
	status domain.JobStatus
	errMsg *string
}

type fakeJobLogRepo struct {
	mu      sync.Mutex
	opened  []domain.JobLog
	closed  []closedLog
	deleted int
	nextID  int
}

func (r *fakeJobLogRepo) Open(_ context.Context, l *domain.JobLog) (*domain.JobLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *l
	cp.ID = strconv.Itoa(r.nextID)
	r.opened = append(r.opened, cp)
	return &cp, nil
}

func (r *fakeJobLogRepo) Close(_ context.Context, id string, status domain.JobStatus, errMsg *string, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, closedLog{id: id, status: status, errMsg: errMsg})
	return nil
}

func (r *fakeJobLogRepo) DeleteBefore(context.Context, time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleted, nil
}

func (r *fakeJobLogRepo) statuses() []domain.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.JobStatus, 0, len(r.closed))
	for _, c := range r.closed {
		out = append(out, c.status)
	}
	return out
}

type fakeNotificationRepo struct {
	deleted int
	err     error
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	return n, nil
}

func (r *fakeNotificationRepo) DeleteBefore(context.Context, time.Time) (int, error) {
	return r.deleted, r.err
}

// ---- collaborators ----

type fakeGate struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (g *fakeGate) WaitForActive(context.Context, string) (admission.WaitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return admission.WaitResult{}, g.err
	}
	exp := time.Now().Add(time.Hour)
	return admission.WaitResult{Session: &domain.AdmissionSession{
		SessionKey: "sess-1",
		Status:     domain.SessionActive,
		ExpiresAt:  &exp,
	}}, nil
}

type fakeBooking struct {
	mu                sync.Mutex
	availabilityCalls int
	rebookCalls       int

	checkAvailabilityFn func(ctx context.Context, sessionKey string, q booking.AvailabilityQuery) (*booking.AvailabilityResult, error)
	rebookFn            func(ctx context.Context, sessionKey, ref string) (*booking.RebookResult, error)
}

func (b *fakeBooking) CheckAvailability(ctx context.Context, sessionKey string, q booking.AvailabilityQuery) (*booking.AvailabilityResult, error) {
	b.mu.Lock()
	b.availabilityCalls++
	b.mu.Unlock()
	return b.checkAvailabilityFn(ctx, sessionKey, q)
}

func (b *fakeBooking) Rebook(ctx context.Context, sessionKey, ref string) (*booking.RebookResult, error) {
	b.mu.Lock()
	b.rebookCalls++
	b.mu.Unlock()
	return b.rebookFn(ctx, sessionKey, ref)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *fakeNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}
