package handler

import (
	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
)

type runResponse struct {
	Success     bool             `json:"success"`
	Status      domain.JobStatus `json:"status"`
	Message     string           `json:"message,omitempty"`
	Sites       []domain.Site    `json:"sites,omitempty"`
	Deactivated bool             `json:"deactivated"`
}

func toRunResponse(r scheduler.Result) runResponse {
	return runResponse{
		Success:     r.Success,
		Status:      r.Status,
		Message:     r.Message,
		Sites:       r.Sites,
		Deactivated: r.Deactivated,
	}
}
