package domain

import "time"

type NotificationKind string

const (
	NotificationWatchFound      NotificationKind = "watch_found"
	NotificationRebookSuccess   NotificationKind = "rebook_success"
	NotificationRebookExhausted NotificationKind = "rebook_exhausted"
)

type Notification struct {
	ID        string
	OwnerID   string
	Kind      NotificationKind
	EntityID  string
	Title     string
	Body      string
	CreatedAt time.Time
}
