package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/email"
	"github.com/ErlanBelekov/campsite-scheduler/internal/metrics"
	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
)

const deliveryTimeout = 30 * time.Second

// Fanout persists each notification and emails its owner. Delivery runs in
// the background and never reports failure to the caller.
type Fanout struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	sender        email.Sender
	logger        *slog.Logger

	wg sync.WaitGroup
}

func NewFanout(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	sender email.Sender,
	logger *slog.Logger,
) *Fanout {
	return &Fanout{
		notifications: notifications,
		users:         users,
		sender:        sender,
		logger:        logger.With("component", "notify"),
	}
}

func (f *Fanout) Notify(ctx context.Context, n domain.Notification) {
	// Delivery outlives the firing that produced it.
	ctx = context.WithoutCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				f.logger.ErrorContext(ctx, "notification delivery panicked", "kind", n.Kind, "panic", r)
				metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()

		outcome := f.deliver(ctx, n)
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), outcome).Inc()
	}()
}

// Wait blocks until every pending delivery has finished.
func (f *Fanout) Wait() {
	f.wg.Wait()
}

func (f *Fanout) deliver(ctx context.Context, n domain.Notification) string {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if _, err := f.notifications.Create(ctx, &n); err != nil {
		f.logger.ErrorContext(ctx, "persist notification", "kind", n.Kind, "entity_id", n.EntityID, "error", err)
		return "failed"
	}

	user, err := f.users.FindByID(ctx, n.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			f.logger.WarnContext(ctx, "notification owner unknown", "owner_id", n.OwnerID)
			return "no_address"
		}
		f.logger.ErrorContext(ctx, "load notification owner", "owner_id", n.OwnerID, "error", err)
		return "failed"
	}
	if user.Email == nil || *user.Email == "" {
		return "no_address"
	}

	if err := f.sender.Send(ctx, render(*user.Email, n)); err != nil {
		f.logger.ErrorContext(ctx, "send notification email", "kind", n.Kind, "owner_id", n.OwnerID, "error", err)
		return "failed"
	}

	f.logger.InfoContext(ctx, "notification sent", "kind", n.Kind, "entity_id", n.EntityID)
	return "sent"
}

func render(to string, n domain.Notification) email.Message {
	return email.Message{
		To:      to,
		Subject: n.Title,
		HTML:    fmt.Sprintf("<h2>%s</h2><p>%s</p>", html.EscapeString(n.Title), html.EscapeString(n.Body)),
		Text:    n.Title + "\n\n" + n.Body,
		Tag:     string(n.Kind),
	}
}
