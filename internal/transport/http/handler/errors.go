package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer    = "Internal server error"
	errWatchNotFound     = "Watch not found"
	errEntryNotFound     = "Rebooking entry not found"
	errDuplicateEntry    = "Booking is already enrolled for rebooking"
	errEntryFinished     = "Rebooking entry already finished"
	errNoSession         = "No admission session"
	errAdmissionFailed   = "Admission queue unavailable"
	errInvalidDateFormat = "Dates must be formatted as YYYY-MM-DD"
)

// respondError maps domain errors onto status codes. Anything unrecognised
// is logged and hidden behind a 500.
func respondError(ctx *gin.Context, logger *slog.Logger, op string, err error) {
	var admissionErr *domain.AdmissionError

	switch {
	case errors.Is(err, domain.ErrWatchNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errWatchNotFound})
	case errors.Is(err, domain.ErrQueueEntryNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errEntryNotFound})
	case errors.Is(err, domain.ErrDuplicateQueueEntry):
		ctx.JSON(http.StatusConflict, gin.H{"error": errDuplicateEntry})
	case errors.Is(err, domain.ErrQueueEntryImmutable):
		ctx.JSON(http.StatusConflict, gin.H{"error": errEntryFinished})
	case errors.Is(err, domain.ErrInvalidDates),
		errors.Is(err, domain.ErrInvalidGuests),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrInvalidMaxAttempts),
		errors.Is(err, domain.ErrMaxAttemptsTooLow),
		errors.Is(err, usecase.ErrMissingBookingReference):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &admissionErr):
		logger.WarnContext(ctx.Request.Context(), op, "error", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": errAdmissionFailed})
	default:
		logger.ErrorContext(ctx.Request.Context(), op, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
