package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/admission"
	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	defaultWaitTimeout = 30 * time.Second
	maxWaitTimeout     = 5 * time.Minute
)

type sessionClient interface {
	Current() *domain.AdmissionSession
	IsActive() bool
	TimeRemainingFormatted() string
	EstimatedWaitFormatted() string
	WaitForActive(ctx context.Context, key string) (admission.WaitResult, error)
	Clear(ctx context.Context) error
}

// SessionHandler exposes the process-wide admission session. There is one
// session per process, so every authenticated user sees the same one.
type SessionHandler struct {
	client sessionClient
	logger *slog.Logger
}

func NewSessionHandler(client sessionClient, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{client: client, logger: logger.With("component", "session_handler")}
}

type sessionResponse struct {
	Status        domain.SessionStatus `json:"status"`
	Active        bool                 `json:"active"`
	QueuePosition *int                 `json:"queue_position,omitempty"`
	EstimatedWait string               `json:"estimated_wait"`
	TimeRemaining string               `json:"time_remaining"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
	LastCheckedAt *time.Time           `json:"last_checked_at,omitempty"`
}

func (h *SessionHandler) describe() sessionResponse {
	s := h.client.Current()
	if s == nil {
		return sessionResponse{
			Status:        domain.SessionUnknown,
			EstimatedWait: h.client.EstimatedWaitFormatted(),
			TimeRemaining: h.client.TimeRemainingFormatted(),
		}
	}
	checked := s.LastCheckedAt
	return sessionResponse{
		Status:        s.Status,
		Active:        h.client.IsActive(),
		QueuePosition: s.QueuePosition,
		EstimatedWait: h.client.EstimatedWaitFormatted(),
		TimeRemaining: h.client.TimeRemainingFormatted(),
		ExpiresAt:     s.ExpiresAt,
		LastCheckedAt: &checked,
	}
}

func (h *SessionHandler) Get(ctx *gin.Context) {
	if h.client.Current() == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errNoSession})
		return
	}
	ctx.JSON(http.StatusOK, h.describe())
}

// Wait blocks until the session is active or the timeout elapses. A timeout
// is not an error: the shared wait keeps running and the caller gets 202
// with the current queue state.
func (h *SessionHandler) Wait(ctx *gin.Context) {
	timeout := defaultWaitTimeout
	if raw := ctx.Query("timeout"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "timeout must be a positive number of seconds"})
			return
		}
		timeout = min(time.Duration(secs)*time.Second, maxWaitTimeout)
	}

	waitCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
	defer cancel()

	_, err := h.client.WaitForActive(waitCtx, "")
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, h.describe())
	case errors.Is(err, context.DeadlineExceeded):
		ctx.JSON(http.StatusAccepted, h.describe())
	default:
		respondError(ctx, h.logger, "wait for admission", err)
	}
}

func (h *SessionHandler) Delete(ctx *gin.Context) {
	if err := h.client.Clear(ctx.Request.Context()); err != nil {
		respondError(ctx, h.logger, "clear admission session", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
