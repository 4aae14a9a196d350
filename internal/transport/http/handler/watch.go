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
	"github.com/shopspring/decimal"
)

type watchUsecaser interface {
	CreateWatch(ctx context.Context, input usecase.CreateWatchInput) (*domain.Watch, error)
	GetWatch(ctx context.Context, id, ownerID string) (*domain.Watch, error)
	UpdateWatch(ctx context.Context, id, ownerID string, u domain.WatchUpdate) (*domain.Watch, error)
	CheckNow(ctx context.Context, id, ownerID string) (scheduler.Result, error)
}

type WatchHandler struct {
	uc     watchUsecaser
	logger *slog.Logger
}

func NewWatchHandler(uc watchUsecaser, logger *slog.Logger) *WatchHandler {
	return &WatchHandler{uc: uc, logger: logger.With("component", "watch_handler")}
}

type createWatchRequest struct {
	CampgroundID         string           `json:"campground_id"          binding:"required,max=128"`
	ArrivalDate          string           `json:"arrival_date"           binding:"required"`
	DepartureDate        string           `json:"departure_date"         binding:"required"`
	Guests               int              `json:"guests"                 binding:"required,min=1,max=50"`
	SiteType             *string          `json:"site_type"              binding:"omitempty,max=64"`
	MaxPrice             *decimal.Decimal `json:"max_price"`
	SiteIDs              []string         `json:"site_ids"               binding:"omitempty,max=100,dive,required"`
	CheckIntervalMinutes int              `json:"check_interval_minutes" binding:"omitempty,min=1,max=10080"`
	NotifyOnly           *bool            `json:"notify_only"`
}

type updateWatchRequest struct {
	CheckIntervalMinutes *int             `json:"check_interval_minutes" binding:"omitempty,min=1,max=10080"`
	IsActive             *bool            `json:"is_active"`
	NotifyOnly           *bool            `json:"notify_only"`
	SiteType             *string          `json:"site_type"              binding:"omitempty,max=64"`
	MaxPrice             *decimal.Decimal `json:"max_price"`
	SiteIDs              []string         `json:"site_ids"               binding:"omitempty,max=100,dive,required"`
}

type watchResponse struct {
	ID                   string              `json:"id"`
	CampgroundID         string              `json:"campground_id"`
	ArrivalDate          string              `json:"arrival_date"`
	DepartureDate        string              `json:"departure_date"`
	Guests               int                 `json:"guests"`
	SiteType             *string             `json:"site_type,omitempty"`
	MaxPrice             *decimal.Decimal    `json:"max_price,omitempty"`
	SiteIDs              []string            `json:"site_ids,omitempty"`
	CheckIntervalMinutes int                 `json:"check_interval_minutes"`
	IsActive             bool                `json:"is_active"`
	NotifyOnly           bool                `json:"notify_only"`
	LastCheckedAt        *time.Time          `json:"last_checked_at,omitempty"`
	NextCheckAt          *time.Time          `json:"next_check_at,omitempty"`
	LastResult           *domain.CheckResult `json:"last_result,omitempty"`
	LastError            *string             `json:"last_error,omitempty"`
	FoundCount           int                 `json:"found_count"`
	LastFoundSites       []domain.Site       `json:"last_found_sites,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

func toWatchResponse(w *domain.Watch) watchResponse {
	return watchResponse{
		ID:                   w.ID,
		CampgroundID:         w.CampgroundID,
		ArrivalDate:          w.ArrivalDate.Format(time.DateOnly),
		DepartureDate:        w.DepartureDate.Format(time.DateOnly),
		Guests:               w.Guests,
		SiteType:             w.SiteType,
		MaxPrice:             w.MaxPrice,
		SiteIDs:              w.SiteIDs,
		CheckIntervalMinutes: w.CheckIntervalMinutes,
		IsActive:             w.IsActive,
		NotifyOnly:           w.NotifyOnly,
		LastCheckedAt:        w.LastCheckedAt,
		NextCheckAt:          w.NextCheckAt,
		LastResult:           w.LastResult,
		LastError:            w.LastError,
		FoundCount:           w.FoundCount,
		LastFoundSites:       w.LastFoundSites,
		CreatedAt:            w.CreatedAt,
	}
}

func (h *WatchHandler) Create(ctx *gin.Context) {
	var req createWatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	arrival, errA := time.Parse(time.DateOnly, req.ArrivalDate)
	departure, errD := time.Parse(time.DateOnly, req.DepartureDate)
	if errA != nil || errD != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDateFormat})
		return
	}

	w, err := h.uc.CreateWatch(ctx.Request.Context(), usecase.CreateWatchInput{
		OwnerID:              ctx.GetString(middleware.UserIDKey),
		CampgroundID:         req.CampgroundID,
		ArrivalDate:          arrival,
		DepartureDate:        departure,
		Guests:               req.Guests,
		SiteType:             req.SiteType,
		MaxPrice:             req.MaxPrice,
		SiteIDs:              req.SiteIDs,
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		NotifyOnly:           req.NotifyOnly,
	})
	if err != nil {
		respondError(ctx, h.logger, "create watch", err)
		return
	}

	ctx.JSON(http.StatusCreated, toWatchResponse(w))
}

func (h *WatchHandler) GetByID(ctx *gin.Context) {
	w, err := h.uc.GetWatch(ctx.Request.Context(), ctx.Param("id"), ctx.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(ctx, h.logger, "get watch", err)
		return
	}
	ctx.JSON(http.StatusOK, toWatchResponse(w))
}

func (h *WatchHandler) Update(ctx *gin.Context) {
	var req updateWatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.uc.UpdateWatch(ctx.Request.Context(), ctx.Param("id"), ctx.GetString(middleware.UserIDKey), domain.WatchUpdate{
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		IsActive:             req.IsActive,
		NotifyOnly:           req.NotifyOnly,
		SiteType:             req.SiteType,
		MaxPrice:             req.MaxPrice,
		SiteIDs:              req.SiteIDs,
	})
	if err != nil {
		respondError(ctx, h.logger, "update watch", err)
		return
	}
	ctx.JSON(http.StatusOK, toWatchResponse(w))
}

// Check runs the watch now and returns the run's outcome. The recurring
// schedule is not touched unless the run deactivates the watch.
func (h *WatchHandler) Check(ctx *gin.Context) {
	res, err := h.uc.CheckNow(ctx.Request.Context(), ctx.Param("id"), ctx.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(ctx, h.logger, "check watch", err)
		return
	}
	ctx.JSON(http.StatusOK, toRunResponse(res))
}
