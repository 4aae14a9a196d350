package domain

import (
	"fmt"
	"time"
)

type JobKind string

const (
	JobKindWatch       JobKind = "watch"
	JobKindRebook      JobKind = "stq"
	JobKindMaintenance JobKind = "maintenance"
)

// JobKey identifies one live timer in the scheduler registry.
type JobKey struct {
	Kind     JobKind
	EntityID string
}

func (k JobKey) String() string { return fmt.Sprintf("%s:%s", k.Kind, k.EntityID) }

type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerCatchUp   Trigger = "catch_up"
)

type JobStatus string

const (
	JobStatusSuccess  JobStatus = "success"
	JobStatusFound    JobStatus = "found"
	JobStatusNotFound JobStatus = "not_found"
	JobStatusFailed   JobStatus = "failed"
	JobStatusError    JobStatus = "error"
	JobStatusSkipped  JobStatus = "skipped"
)

// JobLog is the audit row written for every executor run.
type JobLog struct {
	ID          string
	Kind        JobKind
	EntityID    *string
	Trigger     Trigger
	Status      *JobStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	DurationMS  *int64
	Error       *string
}
