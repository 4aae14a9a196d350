package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
	"github.com/ErlanBelekov/campsite-scheduler/internal/transport/http/middleware"
	"github.com/ErlanBelekov/campsite-scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

type rebookingUsecaser interface {
	Enroll(ctx context.Context, input usecase.EnrollInput) (*domain.QueueEntry, error)
	GetEntry(ctx context.Context, id, ownerID string) (*domain.QueueEntry, error)
	UpdateEntry(ctx context.Context, id, ownerID string, u domain.QueueEntryUpdate) (*domain.QueueEntry, error)
	CheckNow(ctx context.Context, id, ownerID string) (scheduler.Result, error)
}

type RebookingHandler struct {
	uc     rebookingUsecaser
	logger *slog.Logger
}

func NewRebookingHandler(uc rebookingUsecaser, logger *slog.Logger) *RebookingHandler {
	return &RebookingHandler{uc: uc, logger: logger.With("component", "rebooking_handler")}
}

type enrollRequest struct {
	BookingID            string `json:"booking_id"             binding:"omitempty,max=128"`
	BookingReference     string `json:"booking_reference"      binding:"required,max=128"`
	CheckIntervalMinutes int    `json:"check_interval_minutes" binding:"omitempty,min=1,max=1440"`
	MaxAttempts          int    `json:"max_attempts"           binding:"omitempty,min=1,max=1000"`
}

type updateEntryRequest struct {
	CheckIntervalMinutes *int  `json:"check_interval_minutes" binding:"omitempty,min=1,max=1440"`
	MaxAttempts          *int  `json:"max_attempts"           binding:"omitempty,min=1,max=1000"`
	IsActive             *bool `json:"is_active"`
}

type entryResponse struct {
	ID                   string                `json:"id"`
	BookingID            string                `json:"booking_id,omitempty"`
	BookingReference     string                `json:"booking_reference"`
	IsActive             bool                  `json:"is_active"`
	CheckIntervalMinutes int                   `json:"check_interval_minutes"`
	AttemptsCount        int                   `json:"attempts_count"`
	MaxAttempts          int                   `json:"max_attempts"`
	LastCheckedAt        *time.Time            `json:"last_checked_at,omitempty"`
	NextCheckAt          *time.Time            `json:"next_check_at,omitempty"`
	LastResult           *domain.RebookOutcome `json:"last_result,omitempty"`
	LastError            *string               `json:"last_error,omitempty"`
	SuccessDate          *time.Time            `json:"success_date,omitempty"`
	NewBookingReference  *string               `json:"new_booking_reference,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
}

func toEntryResponse(e *domain.QueueEntry) entryResponse {
	return entryResponse{
		ID:                   e.ID,
		BookingID:            e.BookingID,
		BookingReference:     e.BookingReference,
		IsActive:             e.IsActive,
		CheckIntervalMinutes: e.CheckIntervalMinutes,
		AttemptsCount:        e.AttemptsCount,
		MaxAttempts:          e.MaxAttempts,
		LastCheckedAt:        e.LastCheckedAt,
		NextCheckAt:          e.NextCheckAt,
		LastResult:           e.LastResult,
		LastError:            e.LastError,
		SuccessDate:          e.SuccessDate,
		NewBookingReference:  e.NewBookingReference,
		CreatedAt:            e.CreatedAt,
	}
}

func (h *RebookingHandler) Enroll(ctx *gin.Context) {
	var req enrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.uc.Enroll(ctx.Request.Context(), usecase.EnrollInput{
		OwnerID:              ctx.GetString(middleware.UserIDKey),
		BookingID:            req.BookingID,
		BookingReference:     req.BookingReference,
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		MaxAttempts:          req.MaxAttempts,
	})
	if err != nil {
		respondError(ctx, h.logger, "enroll booking", err)
		return
	}
	ctx.JSON(http.StatusCreated, toEntryResponse(e))
}

func (h *RebookingHandler) GetByID(ctx *gin.Context) {
	e, err := h.uc.GetEntry(ctx.Request.Context(), ctx.Param("id"), ctx.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(ctx, h.logger, "get rebooking entry", err)
		return
	}
	ctx.JSON(http.StatusOK, toEntryResponse(e))
}

func (h *RebookingHandler) Update(ctx *gin.Context) {
	var req updateEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.uc.UpdateEntry(ctx.Request.Context(), ctx.Param("id"), ctx.GetString(middleware.UserIDKey), domain.QueueEntryUpdate{
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		MaxAttempts:          req.MaxAttempts,
		IsActive:             req.IsActive,
	})
	if err != nil {
		respondError(ctx, h.logger, "update rebooking entry", err)
		return
	}
	ctx.JSON(http.StatusOK, toEntryResponse(e))
}

func (h *RebookingHandler) Check(ctx *gin.Context) {
	res, err := h.uc.CheckNow(ctx.Request.Context(), ctx.Param("id"), ctx.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(ctx, h.logger, "check rebooking entry", err)
		return
	}
	ctx.JSON(http.StatusOK, toRunResponse(res))
}
