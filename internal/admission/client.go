package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/metrics"
	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	defaultPollInterval  = 10 * time.Second
	defaultRetryInterval = 3 * time.Second
	defaultRefreshBuffer = time.Minute
	refreshCallTimeout   = 30 * time.Second

	waitFlightKey = "wait-for-active"
)

type Options struct {
	PollInterval  time.Duration
	RetryInterval time.Duration
	RefreshBuffer time.Duration

	Now    func() time.Time
	NewKey func() string
}

// WaitResult is shared by every caller attached to the same wait.
type WaitResult struct {
	Session *domain.AdmissionSession
	Polls   int
	Waited  time.Duration
	Shared  bool
}

// Client owns the process-wide admission session. All mutation of the
// session goes through its methods.
type Client struct {
	api    API
	repo   repository.SessionRepository
	logger *slog.Logger

	pollInterval  time.Duration
	retryInterval time.Duration
	refreshBuffer time.Duration
	now           func() time.Time
	newKey        func() string

	// reqMu keeps at most one admission request in flight.
	reqMu sync.Mutex

	mu           sync.RWMutex
	session      *domain.AdmissionSession
	refreshTimer *time.Timer
	refreshGen   uint64

	flight singleflight.Group

	baseCtx context.Context
	cancel  context.CancelFunc

	listenersMu sync.Mutex
	listeners   map[int]func(domain.SessionEvent)
	nextID      int
}

func NewClient(api API, repo repository.SessionRepository, logger *slog.Logger, opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.RefreshBuffer < 0 {
		opts.RefreshBuffer = defaultRefreshBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewKey == nil {
		opts.NewKey = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		api:           api,
		repo:          repo,
		logger:        logger.With("component", "admission"),
		pollInterval:  opts.PollInterval,
		retryInterval: opts.RetryInterval,
		refreshBuffer: opts.RefreshBuffer,
		now:           opts.Now,
		newKey:        opts.NewKey,
		baseCtx:       ctx,
		cancel:        cancel,
		listeners:     make(map[int]func(domain.SessionEvent)),
	}
}

// Restore loads the persisted session. An expired row is deleted instead of
// being reused.
func (c *Client) Restore(ctx context.Context) error {
	s, err := c.repo.Load(ctx)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	if s.ExpiresAt == nil || s.Expired(c.now()) {
		c.logger.Info("discarding expired admission session", "session_key", s.SessionKey)
		if err := c.repo.Delete(ctx); err != nil {
			return fmt.Errorf("delete expired session: %w", err)
		}
		c.emit(domain.SessionEvent{Kind: domain.SessionEventExpired, Session: s})
		return nil
	}

	c.mu.Lock()
	c.session = s
	c.armRefreshLocked(*s.ExpiresAt)
	c.mu.Unlock()

	c.logger.Info("admission session restored", "status", s.Status, "expires_at", s.ExpiresAt)
	c.emit(domain.SessionEvent{Kind: domain.SessionEventStatus, Session: copySession(s)})
	return nil
}

// CheckOrCreateSession sends key, or the current key, or a fresh one when
// neither exists, to the admission endpoint. State is only replaced after a
// successful response and a successful write.
func (c *Client) CheckOrCreateSession(ctx context.Context, key string) (*domain.AdmissionSession, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	now := c.now()
	prev := c.Current()
	if key == "" {
		if prev != nil && !prev.Expired(now) {
			key = prev.SessionKey
		} else {
			key = c.newKey()
		}
	}

	resp, err := c.api.CheckCreateSession(ctx, key)
	if err != nil {
		metrics.AdmissionRequestsTotal.WithLabelValues("error").Inc()
		aerr := &domain.AdmissionError{Op: "check-create-session", Err: err}
		c.emit(domain.SessionEvent{Kind: domain.SessionEventError, Err: aerr})
		return nil, aerr
	}
	if resp.ExpirySeconds <= 0 {
		metrics.AdmissionRequestsTotal.WithLabelValues("invalid").Inc()
		aerr := &domain.AdmissionError{Op: "check-create-session", Err: errors.New("response has no expiry")}
		c.emit(domain.SessionEvent{Kind: domain.SessionEventError, Err: aerr})
		return nil, aerr
	}
	metrics.AdmissionRequestsTotal.WithLabelValues("ok").Inc()

	sessionKey := resp.SessionKey
	if sessionKey == "" {
		sessionKey = key
	}
	createdAt := now
	if prev != nil && prev.SessionKey == sessionKey {
		createdAt = prev.CreatedAt
	}
	expiresAt := now.Add(time.Duration(resp.ExpirySeconds) * time.Second)

	s := &domain.AdmissionSession{
		SessionKey:       sessionKey,
		Status:           domain.ParseSessionStatus(resp.Status),
		QueuePosition:    resp.QueuePosition,
		EstimatedWaitSec: resp.WaitTime,
		ExpiresAt:        &expiresAt,
		CreatedAt:        createdAt,
		LastCheckedAt:    now,
	}

	if err := c.repo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	c.mu.Lock()
	c.session = s
	c.armRefreshLocked(expiresAt)
	c.mu.Unlock()

	c.logger.Debug("admission session checked",
		"status", s.Status,
		"queue_position", s.QueuePosition,
		"wait_time", s.EstimatedWaitSec,
		"expires_at", expiresAt,
	)

	c.emit(domain.SessionEvent{Kind: domain.SessionEventStatus, Session: copySession(s)})
	switch s.Status {
	case domain.SessionActive:
		if prev == nil || prev.Status != domain.SessionActive || prev.SessionKey != s.SessionKey {
			c.emit(domain.SessionEvent{Kind: domain.SessionEventActive, Session: copySession(s)})
		}
	case domain.SessionWaiting:
		c.emit(domain.SessionEvent{Kind: domain.SessionEventWaiting, Session: copySession(s)})
	}

	return copySession(s), nil
}

// WaitForActive returns as soon as the session is usable. Concurrent callers
// attach to one shared wait; key only matters for the caller that starts it.
// The shared wait keeps polling until it succeeds or the client is closed;
// ctx only bounds how long this caller waits for it.
func (c *Client) WaitForActive(ctx context.Context, key string) (WaitResult, error) {
	if s := c.Current(); s != nil && s.Usable(c.now()) {
		return WaitResult{Session: s}, nil
	}

	ch := c.flight.DoChan(waitFlightKey, func() (any, error) {
		return c.waitLoop(key)
	})

	select {
	case <-ctx.Done():
		return WaitResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return WaitResult{}, r.Err
		}
		res := r.Val.(WaitResult)
		res.Session = copySession(res.Session)
		res.Shared = r.Shared
		return res, nil
	}
}

func (c *Client) waitLoop(key string) (WaitResult, error) {
	ctx := c.baseCtx
	start := c.now()

	if s := c.Current(); s != nil {
		switch {
		case s.Usable(start):
			return WaitResult{Session: s}, nil
		case s.Expired(start):
			c.discard(ctx, s)
			key = ""
		}
	}

	polls := 0
	for {
		s, err := c.CheckOrCreateSession(ctx, key)
		polls++
		key = ""

		delay := c.pollInterval
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return WaitResult{}, ctx.Err()
			}
			c.logger.Warn("admission check failed, retrying", "error", err, "retry_in", c.retryInterval)
			delay = c.retryInterval
		case s.Usable(c.now()):
			c.logger.Info("admission session active", "polls", polls, "waited", c.now().Sub(start))
			return WaitResult{Session: s, Polls: polls, Waited: c.now().Sub(start)}, nil
		default:
			c.logger.Info("waiting in admission queue",
				"status", s.Status,
				"queue_position", s.QueuePosition,
				"estimated_wait", c.EstimatedWaitFormatted(),
			)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return WaitResult{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// discard drops an expired session from memory and storage.
func (c *Client) discard(ctx context.Context, s *domain.AdmissionSession) {
	c.mu.Lock()
	if c.session != nil && c.session.SessionKey == s.SessionKey {
		c.session = nil
		c.stopRefreshLocked()
	}
	c.mu.Unlock()

	if err := c.repo.Delete(ctx); err != nil {
		c.logger.Error("delete expired session", "error", err)
	}
	c.emit(domain.SessionEvent{Kind: domain.SessionEventExpired, Session: s})
}

// Clear forgets the session and deletes the persisted row. A check already
// in flight completes first so it cannot write the session back afterwards.
func (c *Client) Clear(ctx context.Context) error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	c.mu.Lock()
	c.session = nil
	c.stopRefreshLocked()
	c.mu.Unlock()

	if err := c.repo.Delete(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.emit(domain.SessionEvent{Kind: domain.SessionEventStatus})
	return nil
}

// Close cancels any shared wait and the refresh timer.
func (c *Client) Close() {
	c.cancel()
	c.mu.Lock()
	c.stopRefreshLocked()
	c.mu.Unlock()
}

func (c *Client) armRefreshLocked(expiresAt time.Time) {
	c.stopRefreshLocked()

	until := expiresAt.Sub(c.now())
	delay := until - c.refreshBuffer
	if delay <= 0 {
		delay = until / 2
	}

	gen := c.refreshGen
	c.refreshTimer = time.AfterFunc(delay, func() { c.refresh(gen) })
}

func (c *Client) stopRefreshLocked() {
	c.refreshGen++
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

// refresh makes exactly one attempt. Failure is reported to subscribers and
// the next caller establishes a new session lazily.
func (c *Client) refresh(gen uint64) {
	c.mu.RLock()
	stale := c.refreshGen != gen
	c.mu.RUnlock()
	if stale || c.baseCtx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.baseCtx, refreshCallTimeout)
	defer cancel()

	if _, err := c.CheckOrCreateSession(ctx, ""); err != nil {
		c.logger.Warn("admission session refresh failed", "error", err)
		c.emit(domain.SessionEvent{Kind: domain.SessionEventExpired, Session: c.Current(), Err: err})
	}
}

// Current returns a copy of the cached session, or nil.
func (c *Client) Current() *domain.AdmissionSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySession(c.session)
}

func (c *Client) IsActive() bool {
	s := c.Current()
	return s != nil && s.Usable(c.now())
}

// IsExpired is true when there is no session or its expiry has passed.
func (c *Client) IsExpired() bool {
	s := c.Current()
	return s == nil || s.ExpiresAt == nil || s.Expired(c.now())
}

func (c *Client) TimeRemaining() time.Duration {
	s := c.Current()
	if s == nil || s.ExpiresAt == nil {
		return 0
	}
	return max(s.ExpiresAt.Sub(c.now()), 0)
}

func (c *Client) TimeRemainingFormatted() string {
	return FormatDuration(c.TimeRemaining())
}

func (c *Client) EstimatedWaitFormatted() string {
	s := c.Current()
	if s == nil || s.EstimatedWaitSec == nil {
		return "unknown"
	}
	return FormatDuration(time.Duration(*s.EstimatedWaitSec) * time.Second)
}

// Subscribe registers fn for every session event. Listeners run on the
// goroutine that produced the event and must not block.
func (c *Client) Subscribe(fn func(domain.SessionEvent)) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Client) emit(ev domain.SessionEvent) {
	if ev.At.IsZero() {
		ev.At = c.now()
	}
	c.listenersMu.Lock()
	fns := make([]func(domain.SessionEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func copySession(s *domain.AdmissionSession) *domain.AdmissionSession {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
