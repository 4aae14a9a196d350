package domain

import (
	"errors"
	"time"
)

var (
	ErrQueueEntryNotFound  = errors.New("queue entry not found")
	ErrDuplicateQueueEntry = errors.New("booking is already enrolled")
	ErrInvalidMaxAttempts  = errors.New("max attempts must be greater than zero")
	ErrQueueEntryImmutable = errors.New("queue entry already succeeded")
	ErrMaxAttemptsTooLow   = errors.New("max attempts cannot be below attempts already made")
)

type RebookOutcome string

const (
	RebookOutcomeSuccess     RebookOutcome = "success"
	RebookOutcomeUnavailable RebookOutcome = "unavailable"
	RebookOutcomeError       RebookOutcome = "error"
)

// QueueEntry tracks an attempt to move an existing booking through the
// upstream skip-the-queue rebooking flow.
type QueueEntry struct {
	ID               string
	OwnerID          string
	BookingID        string
	BookingReference string

	IsActive             bool
	CheckIntervalMinutes int
	AttemptsCount        int
	MaxAttempts          int

	LastCheckedAt *time.Time
	NextCheckAt   *time.Time
	LastResult    *RebookOutcome
	LastError     *string

	SuccessDate         *time.Time
	NewBookingReference *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *QueueEntry) Validate() error {
	if e.CheckIntervalMinutes <= 0 {
		return ErrInvalidInterval
	}
	if e.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	return nil
}

func (e *QueueEntry) Succeeded() bool { return e.SuccessDate != nil }

func (e *QueueEntry) Exhausted() bool { return e.AttemptsCount >= e.MaxAttempts }

// RebookAttempt is the outcome of one rebooking call. The repository
// increments attempts_count and deactivates the row when Success is set or
// the incremented count reaches max_attempts.
type RebookAttempt struct {
	CheckedAt           time.Time
	NextCheckAt         time.Time
	Outcome             RebookOutcome
	Error               *string
	Success             bool
	NewBookingReference *string
}

type QueueEntryUpdate struct {
	CheckIntervalMinutes *int
	MaxAttempts          *int
	IsActive             *bool
}
