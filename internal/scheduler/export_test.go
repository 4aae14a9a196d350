package scheduler

import "github.com/ErlanBelekov/campsite-scheduler/internal/domain"

// Fire runs key the way its cron timer would.
func (s *Scheduler) Fire(key domain.JobKey) { s.fire(key) }
