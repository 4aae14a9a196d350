package domain

import "fmt"

// AdmissionError means the upstream queue was unreachable or answered with
// something unusable.
type AdmissionError struct {
	Op  string
	Err error
}

func (e *AdmissionError) Error() string { return fmt.Sprintf("admission %s: %v", e.Op, e.Err) }
func (e *AdmissionError) Unwrap() error { return e.Err }

type AvailabilityCheckError struct {
	CampgroundID string
	Err          error
}

func (e *AvailabilityCheckError) Error() string {
	return fmt.Sprintf("availability check for campground %s: %v", e.CampgroundID, e.Err)
}
func (e *AvailabilityCheckError) Unwrap() error { return e.Err }

type RebookError struct {
	BookingReference string
	Err              error
}

func (e *RebookError) Error() string {
	return fmt.Sprintf("rebook %s: %v", e.BookingReference, e.Err)
}
func (e *RebookError) Unwrap() error { return e.Err }

// PersistenceError wraps any datastore failure that is not a domain error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// ScheduleConflictError is returned when a key is registered while a timer
// for it is still live.
type ScheduleConflictError struct {
	Key JobKey
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("job %s is already scheduled", e.Key)
}
