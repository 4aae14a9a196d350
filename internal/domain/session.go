package domain

import (
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("admission session not found")

type SessionStatus string

const (
	SessionActive  SessionStatus = "Active"
	SessionWaiting SessionStatus = "Waiting"
	SessionUnknown SessionStatus = "Unknown"
)

func ParseSessionStatus(s string) SessionStatus {
	switch SessionStatus(s) {
	case SessionActive, SessionWaiting:
		return SessionStatus(s)
	default:
		return SessionUnknown
	}
}

// AdmissionSession is the upstream queue-admission grant. One per process.
type AdmissionSession struct {
	SessionKey       string
	Status           SessionStatus
	QueuePosition    *int
	EstimatedWaitSec *int
	ExpiresAt        *time.Time
	CreatedAt        time.Time
	LastCheckedAt    time.Time
}

func (s *AdmissionSession) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// Usable reports whether upstream calls may be made with this session.
func (s *AdmissionSession) Usable(now time.Time) bool {
	return s.Status == SessionActive && s.ExpiresAt != nil && s.ExpiresAt.After(now)
}

type SessionEventKind string

const (
	SessionEventStatus  SessionEventKind = "status"
	SessionEventWaiting SessionEventKind = "waiting"
	SessionEventActive  SessionEventKind = "session_active"
	SessionEventExpired SessionEventKind = "session_expired"
	SessionEventError   SessionEventKind = "error"
)

// SessionEvent is emitted by the admission client to its subscribers.
// Session is a copy and is nil for expired events after a failed refresh.
type SessionEvent struct {
	Kind    SessionEventKind
	Session *AdmissionSession
	Err     error
	At      time.Time
}
